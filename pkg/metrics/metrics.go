// Package metrics defines the Prometheus collectors for index builds and
// ranking runs and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the indexer and the ranker.
type Metrics struct {
	DocsIndexedTotal   prometheus.Counter
	DocsSkippedTotal   prometheus.Counter
	BuildPhaseDuration *prometheus.HistogramVec
	SortChunksTotal    prometheus.Counter
	PostingListsTotal  prometheus.Counter
	QueriesTotal       *prometheus.CounterVec
	QueryLatency       *prometheus.HistogramVec
	ResultsCount       prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	LexiconSize        prometheus.Gauge
	CorpusDocuments    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them with reg. A nil reg gets a
// private registry, which keeps repeated construction in tests from panicking
// on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		private := prometheus.NewRegistry()
		reg = private
		gatherer = private
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total documents tokenized into the forward index.",
			},
		),
		DocsSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_skipped_total",
				Help: "Total documents that were assigned an id but could not be read.",
			},
		),
		BuildPhaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "index_build_phase_duration_seconds",
				Help:    "Duration of each index build phase in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"phase"},
		),
		SortChunksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "external_sort_chunks_total",
				Help: "Total sorted runs spilled to disk by the external sort.",
			},
		),
		PostingListsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "posting_lists_written_total",
				Help: "Total posting lists written to the inverted index.",
			},
		),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ranking_queries_total",
				Help: "Total queries ranked by model and result type (ok, zero_result, error).",
			},
			[]string{"model", "result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ranking_query_latency_seconds",
				Help:    "Per-query ranking latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
			},
			[]string{"model"},
		),
		ResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ranking_results_count",
				Help:    "Number of documents scored per query.",
				Buckets: []float64{0, 1, 10, 100, 1000, 10000, 100000},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ranking_cache_hits_total",
				Help: "Total ranked-list cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ranking_cache_misses_total",
				Help: "Total ranked-list cache misses.",
			},
		),
		LexiconSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "lexicon_terms",
				Help: "Number of distinct terms in the last built or loaded index.",
			},
		),
		CorpusDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "corpus_documents",
				Help: "Number of documents in the last built or loaded index.",
			},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.DocsIndexedTotal,
		m.DocsSkippedTotal,
		m.BuildPhaseDuration,
		m.SortChunksTotal,
		m.PostingListsTotal,
		m.QueriesTotal,
		m.QueryLatency,
		m.ResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.LexiconSize,
		m.CorpusDocuments,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered with.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
