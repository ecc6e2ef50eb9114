// Package cache keeps ranked lists in Redis so repeated runs of the same
// query batch against an unchanged index skip scoring.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/ranked-retrieval/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "rank:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one ranked list. Namespace names the index it was computed
// against; AvgQueryLength is part of the key because the vector models
// depend on it. Params are the model constants in effect. Limit is the
// number of results kept, 0 for all.
type Key struct {
	Namespace      string
	Model          ranker.Model
	Params         ranker.Params
	Terms          []string
	AvgQueryLength float64
	Limit          int
}

type RankCache struct {
	store   Store
	ttl     time.Duration
	metrics *metrics.Metrics
	group   singleflight.Group
	breaker *resilience.Breaker
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *RankCache {
	return &RankCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "rank-cache"),
	}
}

// WithBreaker routes store calls through b so that an unreachable store is
// skipped instead of being waited on for every query.
func (c *RankCache) WithBreaker(b *resilience.Breaker) *RankCache {
	c.breaker = b
	return c
}

// Get returns the cached list for k. Store failures are logged and count as
// misses.
func (c *RankCache) Get(ctx context.Context, k Key) (ranker.Ranking, bool) {
	key := buildKey(k)
	if !c.allow() {
		c.miss()
		return ranker.Ranking{}, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			c.record(nil)
		} else {
			c.record(err)
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return ranker.Ranking{}, false
	}
	c.record(nil)
	var ranking ranker.Ranking
	if err := json.Unmarshal(data, &ranking); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return ranker.Ranking{}, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "model", k.Model.String(), "key", key)
	return ranking, true
}

func (c *RankCache) Set(ctx context.Context, k Key, ranking ranker.Ranking) {
	key := buildKey(k)
	data, err := json.Marshal(ranking)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if !c.allow() {
		return
	}
	err = c.store.Set(ctx, key, data, c.ttl)
	c.record(err)
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached list for k or computes and stores it.
// Concurrent callers with the same key share one computation.
func (c *RankCache) GetOrCompute(
	ctx context.Context,
	k Key,
	computeFn func() (ranker.Ranking, error),
) (ranker.Ranking, bool, error) {
	if ranking, ok := c.Get(ctx, k); ok {
		return ranking, true, nil
	}
	val, err, _ := c.group.Do(buildKey(k), func() (interface{}, error) {
		ranking, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, k, ranking)
		return ranking, nil
	})
	if err != nil {
		return ranker.Ranking{}, false, err
	}
	return val.(ranker.Ranking), false, nil
}

// Invalidate drops every cached list.
func (c *RankCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating rank cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *RankCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *RankCache) allow() bool {
	return c.breaker == nil || c.breaker.Allow() == nil
}

func (c *RankCache) record(err error) {
	if c.breaker != nil {
		c.breaker.Record(err)
	}
}

func (c *RankCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(k Key) string {
	raw := strings.Join([]string{
		k.Namespace,
		k.Model.String(),
		k.Params.Fingerprint(),
		strconv.FormatFloat(k.AvgQueryLength, 'g', -1, 64),
		strconv.Itoa(k.Limit),
		strings.Join(k.Terms, " "),
	}, "|")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
