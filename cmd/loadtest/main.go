// Command loadtest drives GET /api/v1/search on a running searcher and
// prints throughput, latency percentiles, the cache-hit ratio and the
// slowest queries.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:8080] [-topics gov/topics/gov.topics] [-duration 30s]
package main

import (
	"cmp"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/trec"
)

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	limit       int
	queries     []string
}

// sample is the outcome of one request. Workers only send samples; the
// report is owned by a single collecting goroutine.
type sample struct {
	query    string
	latency  time.Duration
	status   int
	cacheHit bool
	hits     int
	err      error
}

type queryStats struct {
	count int
	total time.Duration
}

type report struct {
	requests  int
	errors    int
	cacheHits int
	zeroHits  int
	latencies []time.Duration
	statuses  map[int]int
	perQuery  map[string]*queryStats
}

func (r *report) add(s sample) {
	r.requests++
	if s.err != nil {
		r.errors++
		return
	}
	r.statuses[s.status]++
	if s.status != http.StatusOK {
		r.errors++
		return
	}
	r.latencies = append(r.latencies, s.latency)
	if s.cacheHit {
		r.cacheHits++
	}
	if s.hits == 0 {
		r.zeroHits++
	}
	qs := r.perQuery[s.query]
	if qs == nil {
		qs = &queryStats{}
		r.perQuery[s.query] = qs
	}
	qs.count++
	qs.total += s.latency
}

var fallbackQueries = []string{
	"inverted index",
	"term frequency weighting",
	"cosine similarity",
	"document frequency",
	"porter stemming",
	"query expansion",
	"relevance feedback",
	"government documents",
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results requested per query")
	topicsFile := flag.String("topics", "", "topics file to draw queries from")
	flag.Parse()

	queries, err := loadQueries(*topicsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading queries: %v\n", err)
		os.Exit(1)
	}
	opts := options{
		baseURL:     *baseURL,
		concurrency: *concurrency,
		duration:    *duration,
		limit:       *limit,
		queries:     queries,
	}

	fmt.Printf("load test: %s, %d workers, %s, %d distinct queries\n",
		opts.baseURL, opts.concurrency, opts.duration, len(opts.queries))

	r := run(opts)
	r.print(os.Stdout, opts.duration)
	if r.requests == 0 {
		fmt.Fprintln(os.Stderr, "no requests completed; is the searcher running?")
		os.Exit(1)
	}
}

func loadQueries(path string) ([]string, error) {
	if path == "" {
		return fallbackQueries, nil
	}
	topics, err := trec.ReadTopicsFile(path)
	if err != nil {
		return nil, err
	}
	queries := make([]string, 0, len(topics))
	for _, topic := range topics {
		if !topic.Plan.Empty() {
			queries = append(queries, topic.Plan.Text)
		}
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%s has no usable queries", path)
	}
	return queries, nil
}

func run(opts options) *report {
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()

	samples := make(chan sample, opts.concurrency*4)
	var wg sync.WaitGroup
	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for i := offset; ; i++ {
				s := search(ctx, client, opts, opts.queries[i%len(opts.queries)])
				if ctx.Err() != nil {
					return
				}
				samples <- s
			}
		}(w)
	}
	go func() {
		wg.Wait()
		close(samples)
	}()

	r := &report{
		statuses: make(map[int]int),
		perQuery: make(map[string]*queryStats),
	}
	for s := range samples {
		r.add(s)
	}
	return r
}

func search(ctx context.Context, client *http.Client, opts options, query string) sample {
	s := sample{query: query}
	target := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", opts.baseURL, url.QueryEscape(query), opts.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		s.err = err
		return s
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		s.err = err
		return s
	}
	defer resp.Body.Close()

	s.status = resp.StatusCode
	s.cacheHit = resp.Header.Get(handler.CacheHeader) == "HIT"
	if resp.StatusCode == http.StatusOK {
		var result executor.SearchResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			s.err = fmt.Errorf("decoding response: %w", err)
			return s
		}
		s.hits = result.TotalHits
	}
	s.latency = time.Since(start)
	return s
}

func (r *report) print(w *os.File, elapsed time.Duration) {
	fmt.Fprintf(w, "\nrequests   %d (%.1f/s)\n", r.requests, float64(r.requests)/elapsed.Seconds())
	if r.requests == 0 {
		return
	}
	fmt.Fprintf(w, "errors     %d (%.2f%%)\n", r.errors, pct(r.errors, r.requests))
	ok := len(r.latencies)
	fmt.Fprintf(w, "cache hits %d (%.2f%% of successful)\n", r.cacheHits, pct(r.cacheHits, ok))
	fmt.Fprintf(w, "zero hits  %d (%.2f%% of successful)\n", r.zeroHits, pct(r.zeroHits, ok))

	if ok > 0 {
		slices.Sort(r.latencies)
		fmt.Fprintf(w, "\nlatency    min %s  p50 %s  p90 %s  p99 %s  max %s\n",
			r.latencies[0],
			percentile(r.latencies, 50),
			percentile(r.latencies, 90),
			percentile(r.latencies, 99),
			r.latencies[ok-1])
	}

	codes := make([]int, 0, len(r.statuses))
	for code := range r.statuses {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	fmt.Fprintln(w, "\nstatus codes")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d  %d\n", code, r.statuses[code])
	}

	type slow struct {
		query string
		mean  time.Duration
	}
	slowest := make([]slow, 0, len(r.perQuery))
	for q, qs := range r.perQuery {
		slowest = append(slowest, slow{q, qs.total / time.Duration(qs.count)})
	}
	slices.SortFunc(slowest, func(a, b slow) int {
		if c := cmp.Compare(b.mean, a.mean); c != 0 {
			return c
		}
		return cmp.Compare(a.query, b.query)
	})
	fmt.Fprintln(w, "\nslowest queries (mean)")
	for _, s := range slowest[:min(5, len(slowest))] {
		fmt.Fprintf(w, "  %-10s %q\n", s.mean, s.query)
	}
}

func pct(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}
