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

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/trec"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	topicsFile := flag.String("topics", "", "topics file (overrides run.topicsFile)")
	runsFile := flag.String("runs", "", "output run file, - for stdout (overrides run.runsFile)")
	scheme := flag.String("scheme", "", "weighting scheme: tf or smart (overrides weighting.scheme)")
	smart := flag.String("smart", "", "SMART code such as lnc or l.t.c (overrides weighting.smart)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *topicsFile != "" {
		cfg.Run.TopicsFile = *topicsFile
	}
	if *runsFile != "" {
		cfg.Run.RunsFile = *runsFile
	}
	if *scheme != "" {
		cfg.Weighting.Scheme = *scheme
	}
	if *smart != "" {
		cfg.Weighting.SMART = *smart
	}

	// stdout may carry the run itself
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Weighting.Scheme == config.SchemeSMART {
		// fail before spending time on the index
		if _, err := weighting.ParseSMART(cfg.Weighting.SMART); err != nil {
			return err
		}
	}
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

	store, _, err := indexer.NewEngine(tok, snapshots, m).LoadOrBuild(ctx, cfg.Index.DocumentsDir, cfg.Index.UseStoredIndex)
	if err != nil {
		return err
	}
	scheme, err := weighting.New(store, cfg.Weighting)
	if err != nil {
		return err
	}
	slog.Info("index ready",
		"scheme", scheme.Name(),
		"documents", store.DocumentCount(),
		"terms", store.TermCount(),
	)

	topics, err := trec.ReadTopicsFile(cfg.Run.TopicsFile)
	if err != nil {
		return err
	}

	out := os.Stdout
	if cfg.Run.RunsFile != "-" {
		if err := os.MkdirAll(filepath.Dir(cfg.Run.RunsFile), 0o755); err != nil {
			return fmt.Errorf("creating runs directory: %w", err)
		}
		f, err := os.Create(cfg.Run.RunsFile)
		if err != nil {
			return fmt.Errorf("creating run file: %w", err)
		}
		defer f.Close()
		out = f
	}

	runner := trec.NewRunner(engine.New(tok, store, scheme), scheme.Name(), cfg.Search.Workers, cfg.Run.RunTag, m)
	if _, err := runner.Run(ctx, topics, out); err != nil {
		return err
	}
	if out != os.Stdout {
		if err := out.Close(); err != nil {
			return fmt.Errorf("closing run file: %w", err)
		}
		slog.Info("run file written", "path", cfg.Run.RunsFile)
	}
	return nil
}
