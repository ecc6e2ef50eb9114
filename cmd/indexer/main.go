package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	source := flag.String("source", "", "corpus directory (offline) or URL list file (online)")
	stopList := flag.String("stoplist", "", "stop-word list file")
	offline := flag.Bool("offline", true, "read documents from a local directory instead of fetching URLs")
	stripHeader := flag.Bool("strip-header", false, "drop the header block that ends at the second blank line")
	indexDir := flag.String("index-dir", "", "directory the index files are written to")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Build.Source = *source
		case "stoplist":
			cfg.Build.StopList = *stopList
		case "offline":
			cfg.Build.Offline = *offline
		case "strip-header":
			cfg.Build.StripHeader = *stripHeader
		case "index-dir":
			cfg.Index.Dir = *indexDir
		}
	})

	logCloser := logger.Setup(cfg.Logging)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, os.Stdout)
	stop()
	if err != nil {
		slog.Error("index build failed", "error", err)
	}
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

// run builds the index described by cfg and writes the build report to w.
// Everything opened here is closed before it returns.
func run(ctx context.Context, cfg *config.Config, w io.Writer) error {
	slog.Info("starting index build",
		"source", cfg.Build.Source,
		"offline", cfg.Build.Offline,
		"index_dir", cfg.Index.Dir,
	)

	m := metrics.New(nil)
	checker := health.NewChecker(5 * time.Second)
	checker.Register("source", func(context.Context) error {
		_, err := os.Stat(cfg.Build.Source)
		return err
	})
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port, metrics.Route{Path: "/healthz", Handler: checker.Handler()})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	var notifiers []indexer.Notifier
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
		defer producer.Close()
		notifiers = append(notifiers, indexer.NewEventNotifier(producer))
		slog.Info("index-complete events enabled", "topic", cfg.Kafka.Topics.IndexComplete)
	}
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, rank cache will not be invalidated", "error", err)
		} else {
			defer redisClient.Close()
			checker.RegisterOptional("redis", redisClient.Ping)
			rankCache := cache.New(redisClient, cfg.Redis.CacheTTL, m)
			notifiers = append(notifiers, indexer.NotifierFunc(func(ctx context.Context, _ indexer.BuildReport) error {
				return rankCache.Invalidate(ctx)
			}))
		}
	}

	report, err := indexer.NewEngine(cfg, m, notifiers...).Run(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing build report: %w", err)
	}
	return nil
}
