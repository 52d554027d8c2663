package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/errors"
)

type fakeExecutor struct {
	lastPlan  *parser.QueryPlan
	lastLimit int
	calls     int
	err       error
}

func (f *fakeExecutor) Execute(_ context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error) {
	f.calls++
	f.lastPlan, f.lastLimit = plan, limit
	if f.err != nil {
		return nil, f.err
	}
	return &executor.SearchResult{
		Query:     plan.RawQuery,
		Words:     plan.Words,
		Scheme:    "smart:lnc",
		TotalHits: 1,
		Results:   []ranker.ScoredDoc{{DocID: "doc1", Score: 0.5}},
	}, nil
}

func (f *fakeExecutor) Namespace() string { return "smart:lnc@1" }

func (f *fakeExecutor) Stats() executor.IndexStats {
	return executor.IndexStats{Documents: 2, Terms: 5, Scheme: "smart:lnc", Generation: 1}
}

type mapCache struct {
	results map[string]*executor.SearchResult
}

func (c *mapCache) GetOrCompute(_ context.Context, ns string, plan *parser.QueryPlan, limit int,
	computeFn func() (*executor.SearchResult, error)) (*executor.SearchResult, bool, error) {
	key := fmt.Sprintf("%s|%s|%d", ns, plan.Text, limit)
	if r, ok := c.results[key]; ok {
		return r, true, nil
	}
	r, err := computeFn()
	if err != nil {
		return nil, false, err
	}
	c.results[key] = r
	return r, false, nil
}

func (c *mapCache) Invalidate(context.Context) (int64, error) {
	n := int64(len(c.results))
	c.results = map[string]*executor.SearchResult{}
	return n, nil
}

func (c *mapCache) Stats() (int64, int64) { return 0, 0 }

func serve(h *Handler, method, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestSearch(t *testing.T) {
	exec := &fakeExecutor{}
	rec := serve(New(exec, nil, nil, 100, 1000), http.MethodGet, "/api/v1/search?q=cat,+dog&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var result executor.SearchResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Results) != 1 || result.Results[0].DocID != "doc1" {
		t.Errorf("results = %v", result.Results)
	}
	if exec.lastLimit != 5 || exec.lastPlan.Text != "cat dog" {
		t.Errorf("executor got limit %d text %q", exec.lastLimit, exec.lastPlan.Text)
	}
}

func TestSearchLimits(t *testing.T) {
	tests := []struct {
		target    string
		status    int
		wantLimit int
	}{
		{"/api/v1/search?q=cat", http.StatusOK, 100},
		{"/api/v1/search?q=cat&limit=5000", http.StatusOK, 1000},
		{"/api/v1/search?q=cat&limit=0", http.StatusBadRequest, 0},
		{"/api/v1/search?q=cat&limit=ten", http.StatusBadRequest, 0},
		{"/api/v1/search", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		exec := &fakeExecutor{}
		rec := serve(New(exec, nil, nil, 100, 1000), http.MethodGet, tt.target)
		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, tt.status)
		}
		if tt.status == http.StatusOK && exec.lastLimit != tt.wantLimit {
			t.Errorf("%s: limit = %d, want %d", tt.target, exec.lastLimit, tt.wantLimit)
		}
	}
}

func TestSearchErrorStatus(t *testing.T) {
	exec := &fakeExecutor{err: fmt.Errorf("executing query: %w", apperrors.ErrTimeout)}
	rec := serve(New(exec, nil, nil, 10, 100), http.MethodGet, "/api/v1/search?q=cat")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	exec.err = errors.New("boom")
	rec = serve(New(exec, nil, nil, 10, 100), http.MethodGet, "/api/v1/search?q=cat")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestSearchUsesCacheAndTracks(t *testing.T) {
	exec := &fakeExecutor{}
	qc := &mapCache{results: map[string]*executor.SearchResult{}}
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(nil, agg, 8)
	collector.Start(context.Background())
	h := New(exec, qc, collector, 10, 100)

	for i, want := range []string{"MISS", "HIT", "HIT"} {
		rec := serve(h, http.MethodGet, "/api/v1/search?q=cat")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if got := rec.Header().Get(CacheHeader); got != want {
			t.Errorf("request %d: %s = %q, want %q", i, CacheHeader, got, want)
		}
	}
	if exec.calls != 1 {
		t.Errorf("executor called %d times, want 1", exec.calls)
	}
	collector.Close()
	if stats := agg.Stats(); stats.TotalSearches != 3 || stats.CacheHits != 2 {
		t.Errorf("analytics = %+v", stats)
	}

	rec := serve(h, http.MethodPost, "/api/v1/cache/invalidate")
	if rec.Code != http.StatusOK {
		t.Errorf("invalidate status = %d", rec.Code)
	}
	if len(qc.results) != 0 {
		t.Error("cache not invalidated")
	}
}

func TestEmptyQueryBypassesCache(t *testing.T) {
	exec := &fakeExecutor{}
	qc := &mapCache{results: map[string]*executor.SearchResult{}}
	serve(New(exec, qc, nil, 10, 100), http.MethodGet, "/api/v1/search?q=%3F%21")
	if len(qc.results) != 0 {
		t.Error("empty query was cached")
	}
	if exec.calls != 1 || !exec.lastPlan.Empty() {
		t.Errorf("executor calls = %d", exec.calls)
	}
}

func TestCacheDisabled(t *testing.T) {
	h := New(&fakeExecutor{}, nil, nil, 10, 100)
	if rec := serve(h, http.MethodPost, "/api/v1/cache/invalidate"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate status = %d, want 503", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/api/v1/cache/stats"); rec.Code != http.StatusOK {
		t.Errorf("stats status = %d", rec.Code)
	}
}

func TestIndexStats(t *testing.T) {
	rec := serve(New(&fakeExecutor{}, nil, nil, 10, 100), http.MethodGet, "/api/v1/index/stats")
	var stats executor.IndexStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Documents != 2 || stats.Scheme != "smart:lnc" {
		t.Errorf("stats = %+v", stats)
	}
}
