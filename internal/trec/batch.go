package trec

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

// Searcher ranks the documents matching a sanitized query text.
type Searcher interface {
	RunQuery(text string) []ranker.ScoredDoc
}

// Summary describes a finished batch.
type Summary struct {
	Topics       int
	EmptyQueries int
	Lines        int
	Elapsed      time.Duration
}

// Runner scores every topic of a batch and writes the run.
type Runner struct {
	searcher Searcher
	scheme   string
	workers  int
	tag      string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewRunner returns a Runner scoring up to workers topics at once. scheme
// labels latency metrics; m may be nil.
func NewRunner(s Searcher, scheme string, workers int, tag string, m *metrics.Metrics) *Runner {
	if workers <= 0 {
		workers = 1
	}
	if tag == "" {
		tag = DefaultRunTag
	}
	return &Runner{
		searcher: s,
		scheme:   scheme,
		workers:  workers,
		tag:      tag,
		metrics:  m,
		logger:   slog.Default().With("component", "trec-runner"),
	}
}

// Run scores topics concurrently and writes their results to w in topic
// order.
func (r *Runner) Run(ctx context.Context, topics []Topic, w io.Writer) (Summary, error) {
	start := time.Now()
	results := make([][]ranker.ScoredDoc, len(topics))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, topic := range topics {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if topic.Plan.Empty() {
				results[i] = []ranker.ScoredDoc{}
				return nil
			}
			qstart := time.Now()
			results[i] = r.searcher.RunQuery(topic.Plan.Text)
			if r.metrics != nil {
				r.metrics.SearchLatency.WithLabelValues(r.scheme).Observe(time.Since(qstart).Seconds())
				r.metrics.SearchResultsCount.Observe(float64(len(results[i])))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("scoring topics: %w", err)
	}

	bw := bufio.NewWriter(w)
	summary := Summary{Topics: len(topics)}
	for i, topic := range topics {
		if topic.Plan.Empty() {
			summary.EmptyQueries++
			r.logger.Warn("query has no usable words", "query_id", topic.ID, "line", topic.Line)
		}
		if err := WriteRun(bw, topic.ID, results[i], r.tag); err != nil {
			return Summary{}, err
		}
		summary.Lines += len(results[i])
	}
	if err := bw.Flush(); err != nil {
		return Summary{}, fmt.Errorf("flushing run: %w", err)
	}
	summary.Elapsed = time.Since(start)
	r.logger.Info("run written",
		"topics", summary.Topics,
		"empty_queries", summary.EmptyQueries,
		"lines", summary.Lines,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}
