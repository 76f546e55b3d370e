// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AdmissionDecisions counts gate decisions by outcome and degraded mode
	AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsurvey_admission_decisions_total",
		Help: "Vote admission decisions by outcome",
	}, []string{"outcome", "degraded"})

	// AdmissionCommits counts admission record writes by result
	AdmissionCommits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsurvey_admission_commits_total",
		Help: "Admission record commits by result",
	}, []string{"result"})

	// CacheLookups counts survey cache lookups (hit, miss, error)
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsurvey_cache_lookups_total",
		Help: "Survey cache lookups by result",
	}, []string{"result"})

	// KVErrors counts failed key-value store calls by operation
	KVErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsurvey_kv_errors_total",
		Help: "Key-value store errors by operation",
	}, []string{"operation"})

	// RateLimitRejections counts requests turned away by the per-IP limiter
	RateLimitRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flashsurvey_ratelimit_rejections_total",
		Help: "Requests rejected by the per-IP rate limiter",
	})

	// Submissions counts submission requests by final result
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flashsurvey_submissions_total",
		Help: "Survey response submissions by result",
	}, []string{"result"})

	// RequestDuration tracks HTTP handler latency
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "flashsurvey_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	}, []string{"method", "route", "status"})
)

// Handler serves the default registry in the Prometheus exposition format
func Handler() http.Handler {
	return promhttp.Handler()
}

// Bool renders a label value for boolean dimensions
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
