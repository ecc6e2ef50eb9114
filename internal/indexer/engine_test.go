package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	events []kafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event kafka.Event) error {
	p.events = append(p.events, event)
	return p.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Index.Dir = filepath.Join(t.TempDir(), "index")
	cfg.Build.StopList = filepath.Join(t.TempDir(), "missing-stoplist.txt")
	cfg.Sort.ChunkRecords = 1
	cfg.Sort.Parallelism = 2
	return cfg
}

func testCorpus() *source.Memory {
	return source.NewMemory(
		source.Document{Reference: "d1", Text: "cat sat cat"},
		source.Document{Reference: "d2", Text: source.Unreadable},
		source.Document{Reference: "d3", Text: "dog cat"},
	)
}

func TestBuildWritesQueryableIndex(t *testing.T) {
	cfg := testConfig(t)
	pub := &recordingPublisher{}
	engine := NewEngine(cfg, metrics.New(nil), NewEventNotifier(pub))

	report, err := engine.Build(context.Background(), testCorpus())
	require.NoError(t, err)

	assert.NotEmpty(t, report.BuildID)
	assert.Equal(t, int64(3), report.Documents)
	assert.Equal(t, int64(1), report.Skipped)
	assert.Equal(t, int64(3), report.Terms)
	assert.Equal(t, int64(4), report.ForwardRecords)
	assert.Equal(t, 4, report.SortRuns)
	phases := make([]string, 0, len(report.Phases))
	for name := range report.Phases {
		phases = append(phases, name)
	}
	assert.ElementsMatch(t, []string{"forward", "sort", "inverted"}, phases)

	postings, err := os.ReadFile(filepath.Join(cfg.Index.Dir, index.PostingsFile))
	require.NoError(t, err)
	assert.Equal(t, "1\t1:1\t0:2\t2:2\n2\t1:2\n3\t3:1\n", string(postings))
	assert.Equal(t, int64(len(postings)), report.PostingsBytes)

	idx, err := segment.Open(cfg.Index.Dir)
	require.NoError(t, err)
	defer idx.Close()

	assert.Equal(t, 3, idx.Documents.Len())
	ref, ok := idx.Documents.Reference(2)
	assert.True(t, ok)
	assert.Equal(t, "d2", ref)

	cat, err := idx.LookupTerm("cat")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cat.CorpusFrequency)
	assert.Equal(t, int64(2), cat.DocumentFrequency)
	list, err := idx.Postings.ReadEntry(cat, true)
	require.NoError(t, err)
	assert.Equal(t, index.PostingList{
		{DocID: 1, Frequency: 2, Positions: []int{1, 3}},
		{DocID: 3, Frequency: 1, Positions: []int{2}},
	}, list)

	dog, err := idx.LookupTerm("dog")
	require.NoError(t, err)
	assert.Equal(t, int64(20), dog.Offset)

	require.Len(t, pub.events, 1)
	assert.Equal(t, report.BuildID, pub.events[0].Key)
	assert.Equal(t, kafka.EventIndexComplete, pub.events[0].Type)
}

func TestBuildIsDeterministic(t *testing.T) {
	read := func() map[string]string {
		cfg := testConfig(t)
		_, err := NewEngine(cfg, nil).Build(context.Background(), testCorpus())
		require.NoError(t, err)
		out := make(map[string]string)
		for _, name := range []string{index.DocIDsFile, index.TermIDsFile, index.PostingsFile, index.DirectoryFile} {
			data, err := os.ReadFile(filepath.Join(cfg.Index.Dir, name))
			require.NoError(t, err)
			out[name] = string(data)
		}
		return out
	}
	assert.Equal(t, read(), read())
}

func TestBuildCRLFTerminator(t *testing.T) {
	cfg := testConfig(t)
	cfg.Index.LineTerminator = "\r\n"

	_, err := NewEngine(cfg, nil).Build(context.Background(), testCorpus())
	require.NoError(t, err)

	idx, err := segment.Open(cfg.Index.Dir)
	require.NoError(t, err)
	defer idx.Close()

	dog, err := idx.LookupTerm("dog")
	require.NoError(t, err)
	list, err := idx.Postings.ReadEntry(dog, false)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{3: 1}, list.Frequencies())
}

func TestBuildEmptyCorpus(t *testing.T) {
	cfg := testConfig(t)

	report, err := NewEngine(cfg, nil).Build(context.Background(), source.NewMemory())
	require.NoError(t, err)
	assert.Zero(t, report.Documents)

	idx, err := segment.Open(cfg.Index.Dir)
	require.NoError(t, err)
	defer idx.Close()
	assert.Zero(t, idx.Terms.Len())
}

func TestRunWithMissingSourceBuildsEmptyIndex(t *testing.T) {
	cfg := testConfig(t)
	cfg.Build.Source = filepath.Join(t.TempDir(), "nowhere")

	report, err := NewEngine(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Documents)
}

func TestNotificationFailureDoesNotFailBuild(t *testing.T) {
	cfg := testConfig(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	called := false
	engine := NewEngine(cfg, nil,
		NewEventNotifier(pub),
		NotifierFunc(func(context.Context, BuildReport) error {
			called = true
			return nil
		}),
	)

	_, err := engine.Build(context.Background(), testCorpus())
	require.NoError(t, err)
	assert.Len(t, pub.events, 1)
	assert.True(t, called)
}

func TestBuildCancelled(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(cfg, nil).Build(ctx, testCorpus())
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkBuild(b *testing.B) {
	docs := make([]source.Document, 200)
	for i := range docs {
		docs[i] = source.Document{
			Reference: filepath.Join("doc", string(rune('a'+i%26)), string(rune('a'+i/26))),
			Text:      "the quick brown fox jumps over the lazy dog while the cat sleeps near the warm fire",
		}
	}
	src := source.NewMemory(docs...)
	for i := 0; i < b.N; i++ {
		cfg := config.Default()
		cfg.Index.Dir = b.TempDir()
		if _, err := NewEngine(cfg, nil).Build(context.Background(), src); err != nil {
			b.Fatal(err)
		}
	}
}
