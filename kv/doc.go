// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package kv owns the Redis connection and the key naming scheme.

# Keys

	survey:token:{token}                  cached public survey view
	analytics:survey:{surveyID}           cached analytics view
	voter:survey:{surveyID}:{voterHash}   admission record
	votes:survey:{surveyID}               admitted-submission counter
	submissions:survey:{surveyID}         submission log
	ratelimit:ip:{ip}                     rate limiter window

Every key is built through a function in this package so prefixes stay
disjoint across components.

# Client

	client, err := kv.NewClient(cfg.RedisURL)
	status := kv.Health(ctx, client, cfg.KVTimeout)

Components accept redis.Cmdable so tests can point them at miniredis.
*/
package kv
