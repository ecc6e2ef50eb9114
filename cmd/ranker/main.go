package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/output"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/stats"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/resilience"
	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	indexDir := flag.String("index-dir", "", "directory holding the built index")
	queries := flag.String("queries", "", "query file: topics .xml or tab-separated id/text")
	model := flag.String("model", "", "okapi-tf, tf-idf, bm25, laplace, jelinek-mercer (or 1-5)")
	outPath := flag.String("output", "", "TREC run output file")
	stopList := flag.String("stoplist", "", "stop-word list the index was built with")
	runTag := flag.String("run-tag", "", "run tag written in the last column")
	maxResults := flag.Int("max-results", 0, "results kept per query (0 keeps all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "index-dir":
			cfg.Index.Dir = *indexDir
		case "queries":
			cfg.Ranking.Queries = *queries
		case "model":
			cfg.Ranking.Model = *model
		case "output":
			cfg.Ranking.Output = *outPath
		case "stoplist":
			cfg.Build.StopList = *stopList
		case "run-tag":
			cfg.Ranking.RunTag = *runTag
		case "max-results":
			cfg.Ranking.MaxResults = *maxResults
		}
	})

	logCloser := logger.Setup(cfg.Logging)
	err = run(cfg)
	if err != nil {
		slog.Error("ranking run failed", "error", err)
	}
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	selected, err := ranker.ParseModel(cfg.Ranking.Model)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker(5 * time.Second)
	checker.Register("index", func(context.Context) error {
		return index.Layout{Dir: cfg.Index.Dir}.Verify()
	})
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port, metrics.Route{Path: "/healthz", Handler: checker.Handler()})
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	idx, err := segment.Open(cfg.Index.Dir)
	if err != nil {
		return fmt.Errorf("opening index %s: %w", cfg.Index.Dir, err)
	}
	defer idx.Close()
	corpus, err := stats.Collect(idx)
	if err != nil {
		return err
	}
	m.LexiconSize.Set(float64(corpus.VocabularySize()))
	m.CorpusDocuments.Set(float64(corpus.DocumentCount()))

	stopWords, err := tokenizer.LoadStopWords(cfg.Build.StopList)
	if err != nil {
		slog.Warn("stop list unavailable, queries keep stop-words", "path", cfg.Build.StopList, "error", err)
	}
	batch, err := parser.Load(cfg.Ranking.Queries)
	if err != nil {
		return fmt.Errorf("loading queries: %w", err)
	}
	plans := parser.ParseAll(batch, tokenizer.New(stopWords, nil))

	report := stats.NewReport(corpus, stats.CollectQueries(plans))
	slog.Info("corpus statistics", "report", report)
	if _, err := report.WriteTo(os.Stdout); err != nil {
		return err
	}

	opts := executor.Options{
		RunID:       uuid.NewString(),
		RunTag:      cfg.Ranking.RunTag,
		MaxResults:  cfg.Ranking.MaxResults,
		Concurrency: cfg.Ranking.Concurrency,
		Metrics:     m,
	}
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, rank caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			checker.RegisterOptional("redis", redisClient.Ping)
			opts.Cache = cache.New(redisClient, cfg.Redis.CacheTTL, m).
				WithBreaker(resilience.NewBreaker("redis", resilience.BreakerConfig{
					Threshold: cfg.Redis.BreakerThreshold,
					Cooldown:  cfg.Redis.BreakerCooldown,
				}))
			opts.Namespace, _ = filepath.Abs(cfg.Index.Dir)
		}
	}

	trec, err := output.CreateTREC(cfg.Ranking.Output)
	if err != nil {
		return err
	}
	sinks := output.MultiSink{trec}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, results go to the run file only", "error", err)
		} else {
			defer db.Close()
			checker.Register("postgres", db.DB.PingContext)
			pgSink := output.NewPostgresSink(db, opts.RunID)
			if err := pgSink.EnsureSchema(ctx); err != nil {
				return err
			}
			sinks = append(sinks, pgSink)
		}
	}

	summary, err := executor.New(ranker.New(idx, corpus, ranker.ParamsFromConfig(cfg.Ranking)), opts).
		RunBatch(ctx, selected, plans, sinks)
	if cerr := sinks.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	slog.Info("results written",
		"output", cfg.Ranking.Output,
		"model", selected.String(),
		"queries", summary.Queries,
		"failed", summary.Failed,
	)
	return nil
}
