// Package kafka announces finished index builds so that rankers sharing a
// Redis cache can drop lists computed against the previous index.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType   = "event-type"
	HeaderContentType = "content-type"

	EventIndexComplete = "index.complete"
)

// Event is one message to publish. Key picks the partition and Value is
// JSON-encoded; a zero Time is stamped at encoding.
type Event struct {
	Type  string
	Key   string
	Value any
	Time  time.Time
}

// Message encodes e as a Kafka message carrying its type in a header.
func (e Event) Message() (kafka.Message, error) {
	value, err := json.Marshal(e.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling %s event: %w", e.Type, err)
	}
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return kafka.Message{
		Key:   []byte(e.Key),
		Value: value,
		Time:  ts.UTC(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
			{Key: HeaderContentType, Value: []byte("application/json")},
		},
	}, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes events to one topic synchronously.
type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		MaxAttempts:            3,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic)
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

func (p *Producer) Publish(ctx context.Context, event Event) error {
	msg, err := event.Message()
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			"type", event.Type,
			"key", event.Key,
			"error", err,
		)
		return fmt.Errorf("publishing %s event: %w", event.Type, err)
	}
	p.logger.Debug("event published",
		"type", event.Type,
		"key", event.Key,
		"value_size", len(msg.Value),
	)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
