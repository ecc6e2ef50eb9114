package indexer

import (
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/kafka"
)

// EventPublisher is the subset of a Kafka producer the build notifier uses.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// EventNotifier publishes every build report as an index-complete event keyed
// by build id.
type EventNotifier struct {
	publisher EventPublisher
}

func NewEventNotifier(publisher EventPublisher) *EventNotifier {
	return &EventNotifier{publisher: publisher}
}

func (n *EventNotifier) IndexBuilt(ctx context.Context, report BuildReport) error {
	if err := n.publisher.Publish(ctx, kafka.Event{
		Type:  kafka.EventIndexComplete,
		Key:   report.BuildID,
		Value: report,
		Time:  report.StartedAt.Add(report.Elapsed),
	}); err != nil {
		return fmt.Errorf("publishing index-complete event: %w", err)
	}
	return nil
}
