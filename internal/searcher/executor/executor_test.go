package executor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/weighting"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
)

func newEngine(t *testing.T, docs map[string]string) *engine.Engine {
	t.Helper()
	tok, err := tokenizer.New(64)
	if err != nil {
		t.Fatal(err)
	}
	store := index.NewPostings()
	for id, text := range docs {
		store.AddDocument(id, tok.Tokenize(text))
	}
	return engine.New(tok, store, weighting.NewTFCosine(store))
}

func TestExecute(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	exec := New(newEngine(t, map[string]string{
		"doc1": "cat dog cat",
		"doc2": "dog bird",
		"doc3": "fish",
	}), m)

	result, err := exec.Execute(context.Background(), parser.Parse("cat, dog!"), 1)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.TotalHits != 2 {
		t.Errorf("TotalHits = %d, want 2", result.TotalHits)
	}
	if len(result.Results) != 1 || result.Results[0].DocID != "doc1" {
		t.Errorf("Results = %v, want [doc1]", result.Results)
	}
	if result.TermStats["dog"] != 2 || result.TermStats["cat"] != 1 {
		t.Errorf("TermStats = %v", result.TermStats)
	}
	if result.Scheme != "tf-cosine" || result.Generation != 1 {
		t.Errorf("scheme/generation = %s/%d", result.Scheme, result.Generation)
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("hit", "tf-cosine")); got != 1 {
		t.Errorf("hit counter = %v, want 1", got)
	}
}

func TestExecuteEmptyAndZeroResult(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	exec := New(newEngine(t, map[string]string{"doc1": "cat"}), m)

	for _, q := range []string{"a ?", "zebra"} {
		result, err := exec.Execute(context.Background(), parser.Parse(q), 10)
		if err != nil {
			t.Fatalf("Execute(%q): %v", q, err)
		}
		if result.TotalHits != 0 || result.Results == nil || len(result.Results) != 0 {
			t.Errorf("Execute(%q) = %+v, want empty non-nil results", q, result)
		}
	}
	if got := testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("zero_result", "tf-cosine")); got != 2 {
		t.Errorf("zero_result counter = %v, want 2", got)
	}
}

func TestExecuteCancelled(t *testing.T) {
	exec := New(newEngine(t, map[string]string{"doc1": "cat"}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := exec.Execute(ctx, parser.Parse("cat"), 10)
	if !errors.Is(err, apperrors.ErrTimeout) || !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want ErrTimeout wrapping context.Canceled", err)
	}
}

func TestNamespaceFollowsSnapshotContent(t *testing.T) {
	older := New(newEngine(t, map[string]string{"doc1": "cat dog"}), nil)
	newer := New(newEngine(t, map[string]string{"doc1": "cat dog", "doc2": "cat"}), nil)
	if older.Stats().Generation != newer.Stats().Generation {
		t.Fatal("both executors should start at the same generation")
	}
	if older.Namespace() == newer.Namespace() {
		t.Errorf("different snapshots share namespace %q", older.Namespace())
	}

	// a restarted process over the same snapshot reuses the namespace
	same := New(newEngine(t, map[string]string{"doc1": "cat dog"}), nil)
	if same.Namespace() != older.Namespace() {
		t.Errorf("namespace %q, want %q for identical postings", same.Namespace(), older.Namespace())
	}
	if fp := older.Stats().Fingerprint; fp == "" || !strings.HasSuffix(older.Namespace(), "@"+fp) {
		t.Errorf("namespace %q does not carry fingerprint %q", older.Namespace(), fp)
	}
}

func TestSwap(t *testing.T) {
	exec := New(newEngine(t, map[string]string{"doc1": "cat"}), nil)
	before := exec.Namespace()

	gen := exec.Swap(newEngine(t, map[string]string{"doc2": "cat", "doc3": "cat"}))
	if gen != 2 {
		t.Errorf("generation = %d, want 2", gen)
	}
	if exec.Namespace() == before {
		t.Error("namespace did not change on swap")
	}
	stats := exec.Stats()
	if stats.Documents != 2 || stats.Generation != 2 {
		t.Errorf("Stats = %+v", stats)
	}
	result, err := exec.Execute(context.Background(), parser.Parse("cat"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 2 || result.Results[0].DocID != "doc2" {
		t.Errorf("results after swap = %v", result.Results)
	}
}

func TestSwapDuringQueries(t *testing.T) {
	exec := New(newEngine(t, map[string]string{"doc1": "cat dog"}), nil)
	replacement := newEngine(t, map[string]string{"doc1": "cat dog", "doc2": "dog"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				result, err := exec.Execute(context.Background(), parser.Parse("dog"), 0)
				if err != nil {
					t.Error(err)
					return
				}
				// each query sees one whole generation
				want := int(result.Generation)
				if result.Generation > 2 {
					want = 2
				}
				if result.TotalHits != want {
					t.Errorf("generation %d returned %d hits", result.Generation, result.TotalHits)
					return
				}
			}
		}()
	}
	for i := 0; i < 10; i++ {
		exec.Swap(replacement)
	}
	wg.Wait()
}
