// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Flash Survey API server.

Flash Survey runs short-lived surveys: an admin creates a survey with up to
three multiple-choice questions, shares its public token, and voters answer
it once each until it expires or reaches its response limit.

# Starting the Server

The server requires environment variables or CLI flags for configuration.
A .env file in the working directory is loaded first when present:

	DATABASE_URL=postgres://... JWT_SECRET=... IP_HASH_SALT=... go run .

Or with flags:

	go run . -p 8080 -d "postgres://..." -r "redis://localhost:6379/0"

SQLite works for local development:

	go run . -t sqlite -d "file:flash.db"

# Configuration

Required settings:

  - DATABASE_URL (-d): Database connection string
  - JWT_SECRET (--jwt-secret): HMAC secret for admin bearer tokens
  - IP_HASH_SALT (--ip-salt): Salt for voter IP hashes

Optional settings:

  - PORT (-p): Server port (default: 8080)
  - DATABASE_TYPE (-t): postgres or sqlite (default: postgres)
  - REDIS_URL (-r): Redis URL (default: redis://localhost:6379/0)
  - SWEEP_INTERVAL (--sweep-interval): Closed survey sweep, 0 disables
  - LOG_LEVEL (--log-level): debug, info, warn or error

See package cliparse for the full list.

# Architecture

The SQL database is the source of truth. Redis holds the admission gate,
the view caches and the rate limiter; when it is unreachable the server keeps
serving with admission checks skipped and responses marked degraded.

  - handlers: HTTP request handlers (surveys, public view, responses, analytics)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, admin auth, rate limiting, validation
  - admission: Redis vote admission gate
  - cache: Read-through JSON cache
  - ratelimit: Sliding-window IP rate limiter
  - jobs: asynq sweep of closed surveys
  - db: Schema and SQL store
  - kv: Redis client and key layout
  - auth: Admin tokens and voter hashing
  - metrics: Prometheus collectors
  - logging: slog setup
  - models: Request, response and domain types
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
