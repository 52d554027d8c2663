// Package e2e exercises a running search service over HTTP. Every test
// skips when the service is not reachable.
//
// Run with:
//
//	E2E_SEARCHER_URL=http://localhost:8080 go test -v ./test/e2e/...
package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

type searchResponse struct {
	Query     string   `json:"query"`
	Words     []string `json:"words"`
	Scheme    string   `json:"scheme"`
	TotalHits int      `json:"total_hits"`
	Results   []struct {
		DocID string  `json:"doc_id"`
		Score float64 `json:"score"`
	} `json:"results"`
}

func searcherURL() string {
	return envOrDefault("E2E_SEARCHER_URL", "http://localhost:8080")
}

func get(t *testing.T, client *http.Client, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(searcherURL() + path)
	if err != nil {
		t.Skipf("search service unavailable: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			resp := get(t, client, path)
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

func TestSearchIsRankedAndRepeatable(t *testing.T) {
	client := &http.Client{Timeout: 10 * time.Second}
	query := envOrDefault("E2E_QUERY", "government information")
	path := "/api/v1/search?q=" + url.QueryEscape(query) + "&limit=20"

	var first searchResponse
	resp := get(t, client, path)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response has no X-Request-ID")
	}
	if err := json.NewDecoder(resp.Body).Decode(&first); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	for i := 1; i < len(first.Results); i++ {
		prev, cur := first.Results[i-1], first.Results[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && prev.DocID > cur.DocID) {
			t.Fatalf("results out of order at %d: %+v then %+v", i, prev, cur)
		}
	}

	var second searchResponse
	if err := json.NewDecoder(get(t, client, path).Body).Decode(&second); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(second.Results) != len(first.Results) {
		t.Fatalf("repeat returned %d results, first returned %d", len(second.Results), len(first.Results))
	}
	for i := range first.Results {
		if first.Results[i] != second.Results[i] {
			t.Errorf("result %d differs: %+v vs %+v", i, first.Results[i], second.Results[i])
		}
	}
	t.Logf("scheme=%s total_hits=%d returned=%d", first.Scheme, first.TotalHits, len(first.Results))
}

func TestSearchRejectsMissingQuery(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	if resp := get(t, client, "/api/v1/search"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestIndexStats(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	var stats map[string]any
	if err := json.NewDecoder(get(t, client, "/api/v1/index/stats").Body).Decode(&stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	for _, field := range []string{"documents", "terms", "scheme", "generation"} {
		if _, ok := stats[field]; !ok {
			t.Errorf("missing field %q in %v", field, stats)
		}
	}
}

func TestAnalyticsCountsSearches(t *testing.T) {
	client := &http.Client{Timeout: 5 * time.Second}
	get(t, client, "/api/v1/search?q=analytics+check")
	time.Sleep(500 * time.Millisecond)

	var stats map[string]any
	if err := json.NewDecoder(get(t, client, "/api/v1/analytics").Body).Decode(&stats); err != nil {
		t.Fatalf("decoding analytics: %v", err)
	}
	if total, _ := stats["total_searches"].(float64); total < 1 {
		t.Errorf("total_searches = %v, want at least 1", stats["total_searches"])
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
