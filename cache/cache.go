// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/danielhkuo/flash-survey/metrics"
)

const DefaultTimeout = 300 * time.Millisecond

// Cache is a cache-aside layer over Redis. Redis is never the source of
// truth: anything that goes wrong on the Redis side degrades to a load.
type Cache struct {
	client  redis.Cmdable
	timeout time.Duration
	group   singleflight.Group
}

// New creates a cache; timeout bounds each Redis call
func New(client redis.Cmdable, timeout time.Duration) *Cache {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cache{client: client, timeout: timeout}
}

// Loader rebuilds a value from the source of truth
type Loader[T any] func(ctx context.Context) (T, error)

// GetOrLoad returns the value cached under key, or calls load and caches its
// result for ttl. The bool reports whether the value came from Redis.
//
// A miss, an undecodable entry, a Redis error or a timeout all fall through
// to load. Loader errors are returned and nothing is cached. Concurrent
// misses on the same key within this process share one load.
//
// The shared load is detached from the caller that started it, so one
// canceled request does not fail the others waiting on the same key. Each
// caller still stops waiting when its own ctx is done.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load Loader[T]) (T, bool, error) {
	var zero T

	if v, ok := lookup[T](ctx, c, key); ok {
		return v, true, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := load(loadCtx)
		if err != nil {
			return v, err
		}
		c.store(loadCtx, key, v, ttl)
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(T), false, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func lookup[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var v T

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return v, false
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		metrics.KVErrors.WithLabelValues("cache_get").Inc()
		slog.Warn("cache read failed, loading from source", "key", key, "error", err)
		return v, false
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		slog.Warn("cache entry undecodable, loading from source", "key", key, "error", err)
		var zero T
		return zero, false
	}

	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return v, true
}

// store writes the value with ttl. The caller already has its value, so
// failures are only logged. The write runs even if the request is gone.
func (c *Cache) store(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache value not encodable", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.KVErrors.WithLabelValues("cache_set").Inc()
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}
