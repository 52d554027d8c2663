package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rebuild := flag.Bool("rebuild", false, "ignore any stored snapshot and index the documents directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer",
		"documents_dir", cfg.Index.DocumentsDir,
		"snapshot_backend", cfg.Index.SnapshotBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, !*rebuild && cfg.Index.UseStoredIndex); err != nil {
		slog.Error("indexer failed", "error", err)
		os.Exit(1)
	}
	slog.Info("indexer finished")
}

func run(ctx context.Context, cfg *config.Config, useStored bool) error {
	m := metrics.New(nil)

	tok, err := tokenizer.New(cfg.Index.StemCacheSize)
	if err != nil {
		return err
	}
	snapshots, closeSnapshots, err := snapshot.Open(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer closeSnapshots()

	store, fromSnapshot, err := indexer.NewEngine(tok, snapshots, m).LoadOrBuild(ctx, cfg.Index.DocumentsDir, useStored)
	if err != nil {
		return err
	}
	if fromSnapshot {
		slog.Info("stored snapshot is current, nothing to publish", "location", snapshots.Location())
		return nil
	}

	if len(cfg.Kafka.Brokers) == 0 {
		slog.Info("no kafka brokers configured, snapshot not announced")
		return nil
	}
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SnapshotPublished)
	defer producer.Close()
	event := snapshot.Published{
		Name:      cfg.Index.SnapshotName,
		Backend:   snapshots.Backend(),
		Location:  snapshots.Location(),
		Documents: store.DocumentCount(),
		Terms:     store.TermCount(),
		CreatedAt: time.Now().UTC(),
	}
	if err := producer.Publish(ctx, kafka.Event{Key: event.Name, Value: event}); err != nil {
		return fmt.Errorf("announcing snapshot: %w", err)
	}
	slog.Info("snapshot announced",
		"topic", cfg.Kafka.Topics.SnapshotPublished,
		"location", event.Location,
		"documents", event.Documents,
		"terms", event.Terms,
	)
	return nil
}
