package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func corpusConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	corpus := filepath.Join(dir, "corpus")
	require.NoError(t, os.Mkdir(corpus, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "a.txt"), []byte("the cat sat"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(corpus, "b.txt"), []byte("the cat ran"), 0o644))

	cfg := config.Default()
	cfg.Build.Source = corpus
	cfg.Build.Offline = true
	cfg.Index.Dir = filepath.Join(dir, "index")
	return cfg
}

func TestRunWritesReport(t *testing.T) {
	cfg := corpusConfig(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, &out))

	var report indexer.BuildReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, int64(2), report.Documents)
	assert.FileExists(t, filepath.Join(cfg.Index.Dir, "term_info.txt"))
}

func TestRunReturnsStorageFailure(t *testing.T) {
	cfg := corpusConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	cfg.Index.Dir = filepath.Join(blocker, "index")

	var out bytes.Buffer
	assert.Error(t, run(context.Background(), cfg, &out))
	assert.Zero(t, out.Len())
}
