// Package executor ranks query batches: queries are scored concurrently
// against the read-only index and their lists are emitted in batch order.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/output"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/stats"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/tracing"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
)

// Result is the outcome of one query. Matched counts scored documents before
// truncation.
type Result struct {
	Query   parser.Query       `json:"query"`
	Model   ranker.Model       `json:"model"`
	Results []ranker.ScoredDoc `json:"results"`
	Matched int                `json:"matched"`
	Cached  bool               `json:"cached"`
	Elapsed time.Duration      `json:"elapsed_ns"`
	Err     error              `json:"-"`
}

// BatchSummary counts the outcomes of one batch.
type BatchSummary struct {
	RunID      string
	Queries    int
	Failed     int
	ZeroResult int
	Stats      stats.QueryBatch
	Elapsed    time.Duration
}

type Options struct {
	// RunID labels a batch; a fresh id is minted per batch when empty.
	RunID string

	// Namespace separates cached lists of different indexes.
	Namespace   string
	RunTag      string
	MaxResults  int
	Concurrency int
	Cache       *cache.RankCache
	Metrics     *metrics.Metrics
}

type Executor struct {
	ranker *ranker.Ranker
	opts   Options
	logger *slog.Logger
}

func New(r *ranker.Ranker, opts Options) *Executor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Executor{
		ranker: r,
		opts:   opts,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Execute ranks one query, consulting the cache when one is configured.
func (e *Executor) Execute(ctx context.Context, model ranker.Model, plan parser.QueryPlan, avgQueryLength float64) Result {
	start := time.Now()
	res := Result{Query: plan.Query, Model: model}

	compute := func() (ranker.Ranking, error) {
		return e.ranker.RankTop(ctx, model, plan, avgQueryLength, e.opts.MaxResults)
	}
	var ranking ranker.Ranking
	if e.opts.Cache != nil {
		ranking, res.Cached, res.Err = e.opts.Cache.GetOrCompute(ctx, cache.Key{
			Namespace:      e.opts.Namespace,
			Model:          model,
			Params:         e.ranker.Params(),
			Terms:          plan.Terms,
			AvgQueryLength: avgQueryLength,
			Limit:          e.opts.MaxResults,
		}, compute)
	} else {
		ranking, res.Err = compute()
	}
	res.Results = ranking.Results
	res.Matched = ranking.Matched
	res.Elapsed = time.Since(start)
	e.record(ctx, res)
	return res
}

// RunBatch ranks every plan and writes the lists to sink in batch order.
// A failing query is logged and skipped; cancellation and sink failures stop
// the batch.
func (e *Executor) RunBatch(ctx context.Context, model ranker.Model, plans []parser.QueryPlan, sink output.Sink) (BatchSummary, error) {
	summary := BatchSummary{
		RunID:   e.opts.RunID,
		Queries: len(plans),
		Stats:   stats.CollectQueries(plans),
	}
	if summary.RunID == "" {
		summary.RunID = uuid.NewString()
	}
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "ranking-run", summary.RunID)
	defer func() {
		span.End()
		span.Log(e.logger)
	}()
	span.SetAttr("model", model.String())
	span.SetAttr("queries", len(plans))

	avgQueryLength := summary.Stats.AvgLength()
	results := make([]Result, len(plans))
	p := pool.New().WithMaxGoroutines(e.opts.Concurrency).WithContext(ctx)
	for i := range plans {
		i := i
		p.Go(func(ctx context.Context) error {
			qctx := logger.WithQueryID(ctx, plans[i].Query.ID)
			results[i] = e.Execute(qctx, model, plans[i], avgQueryLength)
			return ctx.Err()
		})
	}
	if err := p.Wait(); err != nil {
		return summary, fmt.Errorf("ranking batch: %w", err)
	}

	for _, res := range results {
		if res.Err != nil {
			summary.Failed++
			continue
		}
		if res.Matched == 0 {
			summary.ZeroResult++
		}
		run := output.Run{
			QueryID: res.Query.ID,
			Model:   model,
			RunTag:  e.opts.RunTag,
			Results: res.Results,
		}
		if err := sink.WriteRun(ctx, run); err != nil {
			return summary, fmt.Errorf("writing results of query %s: %w", res.Query.ID, err)
		}
	}
	summary.Elapsed = time.Since(start)
	e.logger.Info("ranking run complete",
		"run_id", summary.RunID,
		"model", model.String(),
		"queries", summary.Queries,
		"failed", summary.Failed,
		"zero_result", summary.ZeroResult,
		"avg_query_length", avgQueryLength,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (e *Executor) record(ctx context.Context, res Result) {
	log := logger.FromContext(ctx)
	resultType := "ok"
	switch {
	case res.Err != nil:
		resultType = "error"
		log.Error("query failed", "model", res.Model.String(), "error", res.Err)
	case res.Matched == 0:
		resultType = "zero_result"
		log.Debug("query matched no documents", "query", res.Query.Text)
	default:
		log.Debug("query ranked",
			"model", res.Model.String(),
			"matched", res.Matched,
			"cached", res.Cached,
			"elapsed", res.Elapsed,
		)
	}
	if m := e.opts.Metrics; m != nil {
		m.QueriesTotal.WithLabelValues(res.Model.String(), resultType).Inc()
		m.QueryLatency.WithLabelValues(res.Model.String()).Observe(res.Elapsed.Seconds())
		if res.Err == nil {
			m.ResultsCount.Observe(float64(res.Matched))
		}
	}
}
