// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

LoadDotEnv reads .env files into the environment, then ParseFlags returns a
Config struct with all settings:

	_ = cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p                    Server port (default: 8080)
	-d                    Database URL
	-t                    Database type, postgres or sqlite
	-r                    Redis URL
	-jwt-secret           Admin JWT secret
	-ip-salt              Voter IP hash salt
	-voter-ttl            Admission record lifetime (default: 168h)
	-survey-cache-ttl     Public survey cache TTL (default: 5m)
	-analytics-cache-ttl  Analytics cache TTL (default: 1m)
	-max-responses        Default response ceiling (default: 100)
	-survey-lifetime      Default survey lifetime (default: 72h)
	-max-questions        Questions per survey (default: 3)
	-kv-timeout           Per-call Redis timeout (default: 300ms)
	-db-timeout           Per-call database timeout (default: 5s)
	-rate-limit           Submissions per IP per window (default: 10)
	-rate-limit-window    Rate limit window (default: 1m)
	-sweep-interval       Closed survey sweep interval, 0 disables (default: 1h)
	-log-level            debug, info, warn or error

# Environment Variables

Flags fall back to environment variables:

	PORT                   → -p
	DATABASE_URL           → -d
	DATABASE_TYPE          → -t
	REDIS_URL              → -r
	JWT_SECRET             → -jwt-secret
	IP_HASH_SALT           → -ip-salt
	VOTER_TTL              → -voter-ttl
	SURVEY_CACHE_TTL       → -survey-cache-ttl
	ANALYTICS_CACHE_TTL    → -analytics-cache-ttl
	VOTE_LIMIT_PER_SURVEY  → -max-responses
	SURVEY_LIFETIME        → -survey-lifetime
	MAX_QUESTIONS          → -max-questions
	KV_TIMEOUT             → -kv-timeout
	DB_TIMEOUT             → -db-timeout
	RATE_LIMIT             → -rate-limit
	RATE_LIMIT_WINDOW      → -rate-limit-window
	SWEEP_INTERVAL         → -sweep-interval
	LOG_LEVEL              → -log-level

Duration variables accept Go durations ("90s") or bare seconds ("90").
CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if required values are missing:

  - DATABASE_URL must be provided
  - JWT_SECRET must be provided
  - IP_HASH_SALT must be provided
*/
package cliparse
