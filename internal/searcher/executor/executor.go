// Package executor runs parsed queries against the active engine. The
// engine can be replaced while queries are in flight; each query sees
// exactly one (store, scheme) pair.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Words      []string           `json:"words"`
	Scheme     string             `json:"scheme"`
	Generation uint64             `json:"generation"`
	TotalHits  int                `json:"total_hits"`
	Results    []ranker.ScoredDoc `json:"results"`
	TermStats  map[string]int     `json:"term_stats"`
}

// IndexStats describes the engine currently serving queries.
type IndexStats struct {
	Documents  int       `json:"documents"`
	Terms      int       `json:"terms"`
	Scheme     string    `json:"scheme"`
	Generation  uint64    `json:"generation"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
}

type active struct {
	engine      *engine.Engine
	generation  uint64
	fingerprint string
	loadedAt    time.Time
}

func newActive(eng *engine.Engine, generation uint64) *active {
	return &active{
		engine:      eng,
		generation:  generation,
		fingerprint: eng.Store().Fingerprint(),
		loadedAt:    time.Now(),
	}
}

type Executor struct {
	current atomic.Pointer[active]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New serves queries from eng until the first Swap. m may be nil.
func New(eng *engine.Engine, m *metrics.Metrics) *Executor {
	e := &Executor{
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
	e.current.Store(newActive(eng, 1))
	if m != nil {
		m.IndexDocuments.Set(float64(eng.Store().DocumentCount()))
		m.IndexTerms.Set(float64(eng.Store().TermCount()))
	}
	return e
}

// Swap installs eng for all subsequent queries and returns its generation.
func (e *Executor) Swap(eng *engine.Engine) uint64 {
	next := newActive(eng, 0)
	for {
		old := e.current.Load()
		next.generation = old.generation + 1
		if e.current.CompareAndSwap(old, next) {
			e.logger.Info("engine swapped",
				"generation", next.generation,
				"fingerprint", next.fingerprint,
				"scheme", eng.Scheme().Name(),
				"documents", eng.Store().DocumentCount(),
				"terms", eng.Store().TermCount(),
			)
			if e.metrics != nil {
				e.metrics.IndexDocuments.Set(float64(eng.Store().DocumentCount()))
				e.metrics.IndexTerms.Set(float64(eng.Store().TermCount()))
			}
			return next.generation
		}
	}
}

// Namespace identifies the active engine for cache keys: the scheme and the
// postings fingerprint. Processes serving the same snapshot with the same
// scheme share entries; any other snapshot gets a different namespace.
func (e *Executor) Namespace() string {
	cur := e.current.Load()
	return cur.engine.Scheme().Name() + "@" + cur.fingerprint
}

func (e *Executor) Stats() IndexStats {
	cur := e.current.Load()
	return IndexStats{
		Documents:  cur.engine.Store().DocumentCount(),
		Terms:      cur.engine.Store().TermCount(),
		Scheme:     cur.engine.Scheme().Name(),
		Generation:  cur.generation,
		Fingerprint: cur.fingerprint,
		LoadedAt:    cur.loadedAt,
	}
}

// Execute scores plan and returns at most limit results; limit <= 0
// returns every match.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	cur := e.current.Load()
	scheme := cur.engine.Scheme().Name()
	result := &SearchResult{
		Query:      plan.RawQuery,
		Words:      plan.Words,
		Scheme:     scheme,
		Generation: cur.generation,
		Results:    []ranker.ScoredDoc{},
		TermStats:  map[string]int{},
	}
	if err := ctx.Err(); err != nil {
		e.record(scheme, "error", 0, 0)
		return nil, fmt.Errorf("executing query: %w: %w", apperrors.ErrTimeout, err)
	}
	if plan.Empty() {
		e.record(scheme, "zero_result", 0, 0)
		return result, nil
	}

	start := time.Now()
	vector := cur.engine.Vector(plan.Text)
	scores := cur.engine.Score(vector)
	result.Results = ranker.TopK(scores, limit)
	result.TotalHits = len(scores)
	for term := range vector {
		if df := len(cur.engine.Store().DocumentsFor(term)); df > 0 {
			result.TermStats[term] = df
		}
	}
	elapsed := time.Since(start)

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	e.record(scheme, resultType, elapsed, len(result.Results))
	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"words", plan.Words,
		"generation", cur.generation,
		"candidates", result.TotalHits,
		"results", len(result.Results),
		"elapsed", elapsed,
	)
	return result, nil
}

func (e *Executor) record(scheme, resultType string, elapsed time.Duration, results int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType, scheme).Inc()
	if resultType != "error" {
		e.metrics.SearchLatency.WithLabelValues(scheme).Observe(elapsed.Seconds())
		e.metrics.SearchResultsCount.Observe(float64(results))
	}
}
