// Package reload replaces the searcher's engine when the indexer announces
// a new snapshot.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/snapshot"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/weighting"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

// Swapper installs a new engine; *executor.Executor implements it.
type Swapper interface {
	Swap(eng *engine.Engine) uint64
}

// Invalidator drops cached results; *cache.QueryCache implements it.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

type Reloader struct {
	store     snapshot.Store
	tok       engine.Tokenizer
	weighting config.WeightingConfig
	target    Swapper
	cache     Invalidator
	metrics   *metrics.Metrics
	logger    *slog.Logger
	mu        sync.Mutex
}

// New returns a Reloader reading from store. cache and m may be nil.
func New(store snapshot.Store, tok engine.Tokenizer, wc config.WeightingConfig, target Swapper, cache Invalidator, m *metrics.Metrics) *Reloader {
	return &Reloader{
		store:     store,
		tok:       tok,
		weighting: wc,
		target:    target,
		cache:     cache,
		metrics:   m,
		logger:    slog.Default().With("component", "index-reloader"),
	}
}

// Handle is a kafka.MessageHandler for snapshot.Published events.
// Undecodable events and events for another snapshot are skipped so they
// do not block the partition.
func (r *Reloader) Handle(ctx context.Context, _ []byte, value []byte) error {
	event, err := kafka.DecodeJSON[snapshot.Published](value)
	if err != nil {
		r.logger.Error("skipping undecodable snapshot event", "error", err)
		return nil
	}
	if event.Backend != r.store.Backend() || event.Location != r.store.Location() {
		r.logger.Debug("ignoring snapshot event for another store",
			"backend", event.Backend,
			"location", event.Location,
		)
		return nil
	}
	return r.Reload(ctx, event)
}

// Reload loads the snapshot, rebuilds the weighting scheme over it and
// swaps the new engine in. Reloads never run concurrently.
func (r *Reloader) Reload(ctx context.Context, event snapshot.Published) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eng, err := r.build(ctx)
	if err != nil {
		r.record("error")
		return err
	}
	if eng.Store().DocumentCount() != event.Documents || eng.Store().TermCount() != event.Terms {
		r.logger.Warn("loaded snapshot differs from the announced one",
			"announced_documents", event.Documents,
			"loaded_documents", eng.Store().DocumentCount(),
			"announced_terms", event.Terms,
			"loaded_terms", eng.Store().TermCount(),
		)
	}
	generation := r.target.Swap(eng)
	if r.cache != nil {
		if _, err := r.cache.Invalidate(ctx); err != nil {
			// keys are namespaced by snapshot fingerprint, stale entries just expire
			r.logger.Warn("cache invalidation after reload failed", "error", err)
		}
	}
	r.record("ok")
	r.logger.Info("index reloaded",
		"generation", generation,
		"location", event.Location,
		"created_at", event.CreatedAt,
	)
	return nil
}

func (r *Reloader) build(ctx context.Context) (*engine.Engine, error) {
	store, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", r.store.Location(), err)
	}
	scheme, err := weighting.New(store, r.weighting)
	if err != nil {
		return nil, fmt.Errorf("building weighting scheme: %w", err)
	}
	return engine.New(r.tok, store, scheme), nil
}

func (r *Reloader) record(status string) {
	if r.metrics != nil {
		r.metrics.IndexReloadsTotal.WithLabelValues(status).Inc()
	}
}
