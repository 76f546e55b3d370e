// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics holds the Prometheus collectors shared by the gate, the
// cache, the rate limiter and the HTTP layer, and serves them at /metrics.
package metrics
