// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/admission"
	"github.com/danielhkuo/flash-survey/cache"
	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/handlers"
	"github.com/danielhkuo/flash-survey/metrics"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/ratelimit"
)

func NewRouter(store handlers.SurveyStore, client redis.Cmdable, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Redis-backed components
	surveyCache := cache.New(client, cfg.KVTimeout)
	gate := admission.NewGate(client,
		admission.WithTTL(cfg.VoterTTL),
		admission.WithTimeout(cfg.KVTimeout),
	)
	limiter := ratelimit.New(client, cfg.RateLimit, cfg.RateLimitWindow, cfg.KVTimeout)

	// Initialize handlers
	surveyHandler := handlers.NewSurveyHandler(store, cfg)
	publicHandler := handlers.NewPublicHandler(store, surveyCache, cfg)
	responseHandler := handlers.NewResponseHandler(store, gate, cfg)
	analyticsHandler := handlers.NewAnalyticsHandler(store, surveyCache, cfg)
	healthHandler := handlers.NewHealthHandler(client, cfg)

	requireAdmin := middleware.RequireAdmin(cfg.JWTSecret)
	rateLimited := middleware.WithRateLimit(limiter)

	// Health checks
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/kv", middleware.WithLogging(healthHandler.KVHealth))
	mux.Handle("GET /metrics", metrics.Handler())

	// Survey management (admin, requires bearer token)
	mux.HandleFunc("POST /surveys", middleware.WithLogging(requireAdmin(surveyHandler.CreateSurvey)))
	mux.HandleFunc("GET /surveys", middleware.WithLogging(requireAdmin(surveyHandler.ListSurveys)))
	mux.HandleFunc("GET /survey-analytics/{surveyId}", middleware.WithLogging(requireAdmin(analyticsHandler.GetSurveyAnalytics)))

	// Public survey access
	mux.HandleFunc("GET /survey-by-token/{token}", middleware.WithLogging(publicHandler.GetSurveyByToken))
	mux.HandleFunc("POST /submit-response", middleware.WithLogging(rateLimited(responseHandler.SubmitResponse)))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("flash-survey API v1"))
	})

	return mux
}
