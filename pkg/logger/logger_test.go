package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandlerJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, "warn", "json"))

	log.Info("dropped")
	log.Warn("kept", "component", "test")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "test", record["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestSetupWithFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	closer := Setup(config.LoggingConfig{
		Level:     "info",
		Format:    "text",
		File:      filepath.Join(t.TempDir(), "ranker.log"),
		MaxSizeMB: 1,
	})
	slog.Info("written to file")
	assert.NoError(t, closer.Close())
}

func TestFromContextAddsQueryID(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(NewHandler(&buf, "info", "json")))

	ctx := WithQueryID(context.Background(), "202")
	FromContext(ctx).Info("scored")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "202", record["query_id"])
}
