// Package indexer runs the one-shot index build: forward index, external
// sort, then delta-encoded postings with their term directory.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/extsort"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/forward"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/tracing"
	"github.com/google/uuid"
)

// BuildReport summarises one completed build.
type BuildReport struct {
	BuildID        string        `json:"build_id"`
	IndexDir       string        `json:"index_dir"`
	Documents      int64         `json:"documents"`
	Skipped        int64         `json:"skipped"`
	Terms          int64         `json:"terms"`
	Tokens         int64         `json:"tokens"`
	ForwardRecords int64         `json:"forward_records"`
	SortRuns       int           `json:"sort_runs"`
	PostingsBytes  int64         `json:"postings_bytes"`
	StartedAt      time.Time     `json:"started_at"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	// Phases holds the wall time of each build phase keyed by phase name.
	Phases map[string]time.Duration `json:"phases_ns"`
}

// Notifier is told about every successful build. Notification failures are
// logged and never fail the build.
type Notifier interface {
	IndexBuilt(ctx context.Context, report BuildReport) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, report BuildReport) error

func (f NotifierFunc) IndexBuilt(ctx context.Context, report BuildReport) error {
	return f(ctx, report)
}

type Engine struct {
	indexCfg  config.IndexConfig
	buildCfg  config.BuildConfig
	sortCfg   config.SortConfig
	metrics   *metrics.Metrics
	notifiers []Notifier
	logger    *slog.Logger
}

// NewEngine creates a build engine. m may be nil.
func NewEngine(cfg *config.Config, m *metrics.Metrics, notifiers ...Notifier) *Engine {
	return &Engine{
		indexCfg:  cfg.Index,
		buildCfg:  cfg.Build,
		sortCfg:   cfg.Sort,
		metrics:   m,
		notifiers: notifiers,
		logger:    slog.Default().With("component", "indexer"),
	}
}

// Run opens the configured document source and builds the index. An
// unreadable source is logged and yields an empty index.
func (e *Engine) Run(ctx context.Context) (BuildReport, error) {
	src, err := source.Open(e.buildCfg)
	if err != nil {
		e.logger.Error("document source unavailable, building an empty index",
			"source", e.buildCfg.Source,
			"error", err,
		)
		src = source.NewMemory()
	}
	return e.Build(ctx, src)
}

// Build indexes every document of src into the configured index directory.
func (e *Engine) Build(ctx context.Context, src source.Source) (BuildReport, error) {
	report := BuildReport{
		BuildID:   uuid.NewString(),
		IndexDir:  e.indexCfg.Dir,
		StartedAt: time.Now(),
	}
	ctx, root := tracing.StartSpan(ctx, "index-build", report.BuildID)
	defer func() {
		root.End()
		root.Log(e.logger)
	}()

	if err := os.MkdirAll(e.indexCfg.Dir, 0o755); err != nil {
		return report, apperrors.Storage("creating", e.indexCfg.Dir, err)
	}
	layout := index.Layout{Dir: e.indexCfg.Dir}

	normalizer := tokenizer.New(e.loadStopWords(), nil)
	fwd, err := e.buildForward(ctx, layout, normalizer, src)
	if err != nil {
		return report, fmt.Errorf("forward index: %w", err)
	}
	report.Documents = fwd.Documents
	report.Skipped = fwd.Skipped
	report.Terms = fwd.Terms
	report.Tokens = fwd.Tokens
	report.ForwardRecords = fwd.Records

	sortStats, err := e.sortForward(ctx, layout)
	if err != nil {
		return report, fmt.Errorf("sorting forward index: %w", err)
	}
	report.SortRuns = sortStats.Runs

	inv, err := e.buildInverted(ctx, layout)
	if err != nil {
		return report, fmt.Errorf("inverted index: %w", err)
	}
	report.PostingsBytes = inv.PostingsBytes
	report.Elapsed = time.Since(report.StartedAt)
	report.Phases = root.Durations()

	root.SetAttr("documents", report.Documents)
	root.SetAttr("terms", report.Terms)
	if e.metrics != nil {
		e.metrics.LexiconSize.Set(float64(report.Terms))
		e.metrics.CorpusDocuments.Set(float64(report.Documents))
	}
	e.logger.Info("index build complete",
		"build_id", report.BuildID,
		"dir", report.IndexDir,
		"documents", report.Documents,
		"skipped", report.Skipped,
		"terms", report.Terms,
		"postings_bytes", report.PostingsBytes,
		"elapsed", report.Elapsed,
	)
	e.notify(ctx, report)
	return report, nil
}

func (e *Engine) loadStopWords() tokenizer.StopWords {
	stop, err := tokenizer.LoadStopWords(e.buildCfg.StopList)
	if err != nil {
		e.logger.Warn("stop list unavailable, indexing without stop-words",
			"path", e.buildCfg.StopList,
			"error", err,
		)
	}
	return stop
}

func (e *Engine) buildForward(ctx context.Context, layout index.Layout, normalizer *tokenizer.Normalizer, src source.Source) (summary forward.Summary, err error) {
	ctx, span := tracing.StartChildSpan(ctx, "forward")
	defer func() { e.endPhase(span, err) }()

	term := e.indexCfg.LineTerminator
	docs, err := index.CreateTable(layout.DocIDs(), term)
	if err != nil {
		return forward.Summary{}, err
	}
	terms, err := index.CreateTable(layout.TermIDs(), term)
	if err != nil {
		docs.Close()
		return forward.Summary{}, err
	}
	fwd, err := index.CreateTable(layout.Forward(), term)
	if err != nil {
		docs.Close()
		terms.Close()
		return forward.Summary{}, err
	}

	builder := forward.NewBuilder(forward.NewBuildContext(), normalizer, forward.Writers{
		Documents: docs,
		Terms:     terms,
		Forward:   fwd,
	})
	summary, err = builder.Build(ctx, src)
	for _, w := range []*index.TableWriter{docs, terms, fwd} {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(summary.Documents - summary.Skipped))
		e.metrics.DocsSkippedTotal.Add(float64(summary.Skipped))
	}
	span.SetAttr("documents", summary.Documents)
	span.SetAttr("records", summary.Records)
	return summary, err
}

func (e *Engine) sortForward(ctx context.Context, layout index.Layout) (stats extsort.Stats, err error) {
	ctx, span := tracing.StartChildSpan(ctx, "sort")
	defer func() { e.endPhase(span, err) }()

	sorter := extsort.New(e.sortCfg, e.indexCfg.LineTerminator, index.CompareForward, index.ValidateForward)
	stats, err = sorter.SortFile(ctx, layout.Forward(), layout.SortedForward())
	if e.metrics != nil {
		e.metrics.SortChunksTotal.Add(float64(stats.Runs))
	}
	span.SetAttr("runs", stats.Runs)
	return stats, err
}

func (e *Engine) buildInverted(ctx context.Context, layout index.Layout) (summary segment.Summary, err error) {
	_, span := tracing.StartChildSpan(ctx, "inverted")
	defer func() { e.endPhase(span, err) }()

	summary, err = segment.NewWriter().WriteFiles(layout, e.indexCfg.LineTerminator)
	if e.metrics != nil {
		e.metrics.PostingListsTotal.Add(float64(summary.Terms))
	}
	span.SetAttr("terms", summary.Terms)
	return summary, err
}

func (e *Engine) endPhase(span *tracing.Span, err error) {
	span.EndErr(err)
	if e.metrics != nil {
		e.metrics.BuildPhaseDuration.WithLabelValues(span.Name).Observe(span.Duration.Seconds())
	}
}

func (e *Engine) notify(ctx context.Context, report BuildReport) {
	for _, n := range e.notifiers {
		if err := n.IndexBuilt(ctx, report); err != nil {
			e.logger.Error("build notification failed",
				"build_id", report.BuildID,
				"error", err,
			)
		}
	}
}
