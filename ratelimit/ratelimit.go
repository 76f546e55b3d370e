// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/metrics"
)

// Result describes one rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	Degraded  bool
}

// RetryAfter is how long a rejected client should wait
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Limiter is a per-client sliding-window limiter on Redis sorted sets.
// Every attempt is recorded, including rejected ones.
type Limiter struct {
	client  redis.Cmdable
	limit   int
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func New(client redis.Cmdable, limit int, window, timeout time.Duration) *Limiter {
	return &Limiter{
		client:  client,
		limit:   limit,
		window:  window,
		timeout: timeout,
		now:     time.Now,
	}
}

// Allow records an attempt by ip and reports whether it is within the limit.
// Redis failures allow the request.
func (l *Limiter) Allow(ctx context.Context, ip string) Result {
	now := l.now()
	resetAt := now.Add(l.window)
	key := kv.RateLimit(ip)
	windowStart := now.Add(-l.window).UnixMilli()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var card *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		p.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		card = p.ZCard(ctx, key)
		p.PExpire(ctx, key, l.window)
		return nil
	})
	if err != nil {
		slog.Warn("rate limit check degraded, allowing request", "error", err)
		metrics.KVErrors.WithLabelValues("ratelimit").Inc()
		return Result{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: resetAt, Degraded: true}
	}

	count := int(card.Val())
	res := Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(0, l.limit-count),
		ResetAt:   resetAt,
	}
	if !res.Allowed {
		metrics.RateLimitRejections.Inc()
	}
	return res
}
