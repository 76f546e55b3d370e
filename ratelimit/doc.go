// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package ratelimit provides a per-IP sliding-window limiter on Redis.

Each attempt adds a member scored by its timestamp to ratelimit:ip:{ip},
trims members older than the window and counts the rest in one MULTI/EXEC.
The request is allowed while the count is at most the limit.

	limiter := ratelimit.New(redisClient, cfg.RateLimit, cfg.RateLimitWindow, cfg.KVTimeout)
	res := limiter.Allow(ctx, clientIP)

Like the admission gate, the limiter fails open when Redis is unavailable.
*/
package ratelimit
