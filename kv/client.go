// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/metrics"
)

// Connection timeouts for the shared client. Callers bound each operation
// more tightly with their own context deadline.
const (
	dialTimeout  = 2 * time.Second
	readTimeout  = time.Second
	writeTimeout = time.Second
)

// NewClient creates a Redis client from a redis:// or rediss:// URL.
// The connection is lazy; use Health to check reachability.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout
	opts.WriteTimeout = writeTimeout
	// Per-call context deadlines must cut socket reads short
	opts.ContextTimeoutEnabled = true
	return redis.NewClient(opts), nil
}

// HealthStatus is the outcome of a PING
type HealthStatus struct {
	Healthy bool
	Latency time.Duration
	Err     error
}

// Health pings Redis within timeout and reports the round-trip latency
func Health(ctx context.Context, client redis.Cmdable, timeout time.Duration) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx).Err()
	latency := time.Since(start)
	if err != nil {
		metrics.KVErrors.WithLabelValues("ping").Inc()
		return HealthStatus{Healthy: false, Latency: latency, Err: err}
	}
	return HealthStatus{Healthy: true, Latency: latency}
}
