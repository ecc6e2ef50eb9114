package executor

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/indextest"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/output"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/stats"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return nil, redis.Nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) FlushByPattern(context.Context, string) (int64, error) { return 0, nil }

type brokenSink struct{}

func (brokenSink) WriteRun(context.Context, output.Run) error { return errors.New("disk full") }
func (brokenSink) Close() error                              { return nil }

func newExecutor(t *testing.T, opts Options) *Executor {
	t.Helper()
	idx := indextest.CatCorpus(t)
	corpus, err := stats.Collect(idx)
	require.NoError(t, err)
	return New(ranker.New(idx, corpus, ranker.DefaultParams()), opts)
}

func catPlans() []parser.QueryPlan {
	return []parser.QueryPlan{
		{Query: parser.Query{ID: "q1", Text: "cat"}, Terms: []string{"cat"}},
		{Query: parser.Query{ID: "q2", Text: "dog"}, Terms: []string{"dog"}},
		{Query: parser.Query{ID: "q3", Text: "ran"}, Terms: []string{"ran"}},
	}
}

func TestRunBatchWritesInQueryOrder(t *testing.T) {
	e := newExecutor(t, Options{RunTag: "run1", Concurrency: 3, Metrics: metrics.New(nil)})
	var buf bytes.Buffer
	sink := output.NewTRECWriter(&buf)

	summary, err := e.RunBatch(context.Background(), ranker.OkapiTF, catPlans(), sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, 3, summary.Queries)
	assert.Equal(t, 1, summary.ZeroResult)
	assert.Zero(t, summary.Failed)
	assert.NotEmpty(t, summary.RunID)
	assert.InDelta(t, 1.0, summary.Stats.AvgLength(), 1e-12)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "q1\t0\tdoc1\t1\t"))
	assert.True(t, strings.HasPrefix(lines[1], "q1\t0\tdoc2\t2\t"))
	assert.True(t, strings.HasPrefix(lines[2], "q3\t0\tdoc2\t1\t"))
	for _, l := range lines {
		assert.True(t, strings.HasSuffix(l, "\trun1"))
	}
}

func TestExecuteTruncatesToMaxResults(t *testing.T) {
	e := newExecutor(t, Options{MaxResults: 1})

	res := e.Execute(context.Background(), ranker.BM25, catPlans()[0], 1)
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Matched)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "doc1", res.Results[0].Reference)
}

func TestExecuteUsesCache(t *testing.T) {
	rc := cache.New(&mapStore{data: make(map[string][]byte)}, time.Minute, nil)
	e := newExecutor(t, Options{Namespace: "cats", Cache: rc})

	first := e.Execute(context.Background(), ranker.Laplace, catPlans()[0], 1)
	require.NoError(t, first.Err)
	assert.False(t, first.Cached)

	second := e.Execute(context.Background(), ranker.Laplace, catPlans()[0], 1)
	require.NoError(t, second.Err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)
}

func TestExecuteDoesNotShareCacheAcrossParams(t *testing.T) {
	rc := cache.New(&mapStore{data: make(map[string][]byte)}, time.Minute, nil)
	idx := indextest.CatCorpus(t)
	corpus, err := stats.Collect(idx)
	require.NoError(t, err)

	tuned := ranker.DefaultParams()
	tuned.OkapiK = 3
	tuned.OkapiLengthWeight = 0.1
	plan := catPlans()[2]

	first := New(ranker.New(idx, corpus, ranker.DefaultParams()), Options{Namespace: "cats", Cache: rc}).
		Execute(context.Background(), ranker.OkapiTF, plan, 1)
	require.NoError(t, first.Err)

	second := New(ranker.New(idx, corpus, tuned), Options{Namespace: "cats", Cache: rc}).
		Execute(context.Background(), ranker.OkapiTF, plan, 1)
	require.NoError(t, second.Err)
	assert.False(t, second.Cached)

	fresh, err := ranker.New(idx, corpus, tuned).Rank(context.Background(), ranker.OkapiTF, plan, 1)
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.InDelta(t, fresh[0].Score, second.Results[0].Score, 1e-12)
	assert.NotEqual(t, first.Results[0].Score, second.Results[0].Score)
}

func TestExecuteReportsRankingFailure(t *testing.T) {
	e := newExecutor(t, Options{})

	res := e.Execute(context.Background(), ranker.Model(42), catPlans()[0], 1)
	assert.Error(t, res.Err)
}

func TestRunBatchSkipsFailedQueries(t *testing.T) {
	e := newExecutor(t, Options{})
	var buf bytes.Buffer

	summary, err := e.RunBatch(context.Background(), ranker.Model(42), catPlans(), output.NewTRECWriter(&buf))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Failed)
}

func TestRunBatchStopsOnSinkFailure(t *testing.T) {
	e := newExecutor(t, Options{})

	_, err := e.RunBatch(context.Background(), ranker.BM25, catPlans(), brokenSink{})
	assert.ErrorContains(t, err, "disk full")
}

func TestRunBatchCancelled(t *testing.T) {
	e := newExecutor(t, Options{Concurrency: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.RunBatch(ctx, ranker.BM25, catPlans(), output.NewTRECWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, err, context.Canceled)
}
