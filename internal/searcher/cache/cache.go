// Package cache memoises rankings in Redis. A sweep ranks the same queries
// under many candidates and reruns often repeat whole sweeps, so rankings
// are keyed by index, model, depth and query.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/npleval/internal/eval"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/npleval/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/resilience"
)

const keyPrefix = "npleval:rank:"

// Flusher deletes keys by glob pattern.
type Flusher interface {
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Flusher
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RankingCache is an eval.Ranker that consults Redis before delegating.
// Cache failures are logged and fall through to the wrapped ranker; after
// repeated failures the store is skipped until the breaker's cool-down ends.
type RankingCache struct {
	next    eval.Ranker
	store   Store
	indexID string
	version string
	ttl     time.Duration
	group   singleflight.Group
	breaker *resilience.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New wraps next. Keys are namespaced by indexID so Invalidate can drop one
// index's rankings; version changes whenever the index is rewritten, so
// rankings of an older build are never served.
func New(next eval.Ranker, store Store, indexID, version string, ttl time.Duration, m *metrics.Metrics) *RankingCache {
	return &RankingCache{
		next:    next,
		store:   store,
		indexID: indexID,
		version: version,
		ttl:     ttl,
		breaker: resilience.NewBreaker("ranking-cache", resilience.BreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "ranking-cache", "index_id", indexID),
	}
}

func (c *RankingCache) Rank(ctx context.Context, query string, model eval.Model, depth int) ([]eval.Hit, error) {
	key := c.buildKey(query, model, depth)
	if hits, ok := c.get(ctx, key); ok {
		c.record("hit")
		return hits, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if hits, ok := c.get(ctx, key); ok {
			c.record("hit")
			return hits, nil
		}
		c.record("miss")
		hits, err := c.next.Rank(ctx, query, model, depth)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, hits)
		return hits, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]eval.Hit), nil
}

func (c *RankingCache) get(ctx context.Context, key string) ([]eval.Hit, bool) {
	var (
		data string
		miss bool
	)
	err := c.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.store.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			miss = true
			return nil
		}
		return err
	})
	if err != nil {
		c.logStoreError("cache get failed", key, err)
		return nil, false
	}
	if miss {
		return nil, false
	}
	var hits []eval.Hit
	if err := json.Unmarshal([]byte(data), &hits); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		return nil, false
	}
	return hits, true
}

func (c *RankingCache) set(ctx context.Context, key string, hits []eval.Hit) {
	data, err := json.Marshal(hits)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Do(ctx, func(ctx context.Context) error {
		return c.store.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logStoreError("cache set failed", key, err)
	}
}

func (c *RankingCache) logStoreError(msg, key string, err error) {
	if errors.Is(err, resilience.ErrOpen) {
		c.logger.Debug(msg, "key", key, "error", err)
		return
	}
	c.logger.Error(msg, "key", key, "error", err)
}

func (c *RankingCache) record(result string) {
	if result == "hit" {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.metrics != nil {
		c.metrics.RankingCacheTotal.WithLabelValues(result).Inc()
	}
}

// Invalidate drops every cached ranking of the index, whatever its version.
func Invalidate(ctx context.Context, store Flusher, indexID string) (int64, error) {
	deleted, err := store.FlushByPattern(ctx, namespace(indexID)+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating rankings of index %s: %w", indexID, err)
	}
	slog.Info("cache invalidate", "component", "ranking-cache", "index_id", indexID, "keys_deleted", deleted)
	return deleted, nil
}

func namespace(indexID string) string {
	return keyPrefix + indexID + ":"
}

// Stats returns the hit and miss counts of this cache.
func (c *RankingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *RankingCache) buildKey(query string, model eval.Model, depth int) string {
	raw := strings.Join([]string{
		c.version,
		string(model.Family),
		strconv.FormatFloat(model.Param, 'f', -1, 64),
		strconv.Itoa(depth),
		query,
	}, "|")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", namespace(c.indexID), hash[:16])
}
