// Package indextest builds small on-disk indexes for tests of the read side.
package indextest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/stretchr/testify/require"
)

// Build indexes docs (in order) into a temporary directory using stop as the
// stop list, and returns the opened index. It is closed when the test ends.
func Build(t testing.TB, stop []string, docs ...source.Document) *segment.Index {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Index.Dir = filepath.Join(dir, "index")
	if len(stop) > 0 {
		cfg.Build.StopList = filepath.Join(dir, "stoplist.txt")
		require.NoError(t, os.WriteFile(cfg.Build.StopList, []byte(strings.Join(stop, "\n")+"\n"), 0o644))
	}

	_, err := indexer.NewEngine(cfg, nil).Build(context.Background(), source.NewMemory(docs...))
	require.NoError(t, err)

	idx, err := segment.Open(cfg.Index.Dir)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// CatCorpus is the two-document corpus "the cat sat" / "the cat ran" with
// "the" as the only stop word.
func CatCorpus(t testing.TB) *segment.Index {
	return Build(t, []string{"the"},
		source.Document{Reference: "doc1", Text: "the cat sat"},
		source.Document{Reference: "doc2", Text: "the cat ran"},
	)
}
