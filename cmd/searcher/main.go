package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "scheme", cfg.Weighting.Scheme)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	tok, err := tokenizer.New(cfg.Index.StemCacheSize)
	if err != nil {
		slog.Error("failed to create tokenizer", "error", err)
		os.Exit(1)
	}
	snapshots, closeSnapshots, err := snapshot.Open(ctx, cfg, m)
	if err != nil {
		slog.Error("failed to open snapshot store", "error", err)
		os.Exit(1)
	}
	defer closeSnapshots()

	store, _, err := indexer.NewEngine(tok, snapshots, m).LoadOrBuild(ctx, cfg.Index.DocumentsDir, cfg.Index.UseStoredIndex)
	if err != nil {
		slog.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	scheme, err := weighting.New(store, cfg.Weighting)
	if err != nil {
		slog.Error("failed to build weighting scheme", "error", err)
		os.Exit(1)
	}
	exec := executor.New(engine.New(tok, store, scheme), m)
	slog.Info("index ready", "scheme", scheme.Name(), "documents", store.DocumentCount(), "terms", store.TermCount())

	var queryCache *cache.QueryCache
	redisClient, err := resilience.Value(ctx, "redis-connect", resilience.FromConfig(cfg.Retry),
		func() (*pkgredis.Client, error) { return pkgredis.NewClient(ctx, cfg.Redis) })
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis, m)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	aggregator := analytics.NewAggregator()
	var publisher kafka.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = producer

		var invalidator reload.Invalidator
		if queryCache != nil {
			invalidator = queryCache
		}
		reloader := reload.New(snapshots, tok, cfg.Weighting, exec, invalidator, m)
		// one group per replica: every searcher must see every snapshot
		group := cfg.Kafka.ConsumerGroup + "-" + uuid.NewString()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SnapshotPublished, group, reloader.Handle)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("snapshot consumer error", "error", err)
			}
		}()
		slog.Info("listening for snapshot announcements", "topic", cfg.Kafka.Topics.SnapshotPublished, "group", group)
	}
	collector := analytics.NewCollector(publisher, aggregator, 10000)
	collector.Start(ctx)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := exec.Stats()
		if stats.Documents > 0 {
			return health.ComponentHealth{
				Status:  health.StatusUp,
				Message: fmt.Sprintf("%d documents, generation %d", stats.Documents, stats.Generation),
			}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "no documents"}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	var resultCache handler.ResultCache
	if queryCache != nil {
		resultCache = queryCache
	}
	h := handler.New(exec, resultCache, collector, cfg.Search.DefaultLimit, cfg.Search.MaxResults)
	analyticsH := analytics.NewHandler(aggregator)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown starts; handlers may still
	// be tracking events until it completes.
	<-shutdownDone
	collector.Close()
	slog.Info("search service stopped")
}
