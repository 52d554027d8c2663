// Package cache keeps executed search results in Redis and collapses
// concurrent identical queries into one execution.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/smart-retrieval/pkg/redis"
)

const keyPrefix = "search:"

type QueryCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over client. m may be nil.
func New(client *pkgredis.Client, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Get looks up a result. namespace identifies the scheme and snapshot that
// produced it, so results never outlive the postings they were scored on.
func (c *QueryCache) Get(ctx context.Context, namespace string, plan *parser.QueryPlan, limit int) (*executor.SearchResult, bool) {
	key := BuildKey(namespace, plan, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, namespace string, plan *parser.QueryPlan, limit int, result *executor.SearchResult) {
	key := BuildKey(namespace, plan, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn once for all
// concurrent callers asking for the same key. The boolean reports a hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	namespace string,
	plan *parser.QueryPlan,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, namespace, plan, limit); ok {
		return result, true, nil
	}
	key := BuildKey(namespace, plan, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		if result, ok := c.Get(ctx, namespace, plan, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, namespace, plan, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate drops every cached result and returns how many keys went.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey derives the Redis key for a query. Queries with the same words
// in any order and case share a key: they produce the same query vector.
func BuildKey(namespace string, plan *parser.QueryPlan, limit int) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", namespace, normalizeQuery(plan), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeQuery(plan *parser.QueryPlan) string {
	lower := cases.Lower(language.Und)
	words := make([]string, len(plan.Words))
	for i, w := range plan.Words {
		words[i] = lower.String(w)
	}
	slices.Sort(words)
	return strings.Join(words, " ")
}
