package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey struct{}

// Setup installs the process-wide slog default. When cfg.File is set, records
// are written to stderr and to a size-rotated log file.
func Setup(cfg config.LoggingConfig) io.Closer {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}
	slog.SetDefault(slog.New(NewHandler(out, cfg.Level, cfg.Format)))
	return closer
}

// NewHandler builds the slog handler used by Setup.
func NewHandler(w io.Writer, level string, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	default:
		return slog.NewTextHandler(w, opts)
	}
}

func WithQueryID(ctx context.Context, queryID string) context.Context {
	return context.WithValue(ctx, contextKey{}, queryID)
}

func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if queryID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("query_id", queryID)
	}
	return logger
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
