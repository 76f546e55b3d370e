// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Flash Survey API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(store, redisClient, cfg)

# Endpoints

Health and metrics:

	GET /health     - Liveness
	GET /health/kv  - Redis PING latency (503 when unreachable)
	GET /metrics    - Prometheus exposition

Survey management (admin, requires Authorization: Bearer <token>):

	POST /surveys                     - Create survey
	GET  /surveys                     - List own surveys
	GET  /survey-analytics/{surveyId} - Per-option counts

Public:

	GET  /survey-by-token/{token} - Survey view
	POST /submit-response         - Submit answers (rate limited per IP)

# Handler Initialization

The router builds the Redis-backed components once and shares them:

	surveyCache := cache.New(client, cfg.KVTimeout)
	gate := admission.NewGate(client, admission.WithTTL(cfg.VoterTTL), ...)
	limiter := ratelimit.New(client, cfg.RateLimit, cfg.RateLimitWindow, cfg.KVTimeout)

The public view and analytics handlers share surveyCache; their keys never
overlap.
*/
package router
