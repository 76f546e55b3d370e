// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/models"
)

type HealthHandler struct {
	client redis.Cmdable
	cfg    cliparse.Config
}

func NewHealthHandler(client redis.Cmdable, cfg cliparse.Config) *HealthHandler {
	return &HealthHandler{client: client, cfg: cfg}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// KVHealth handles GET /health/kv
func (h *HealthHandler) KVHealth(w http.ResponseWriter, r *http.Request) {
	status := kv.Health(r.Context(), h.client, h.cfg.KVTimeout)

	resp := models.KVHealthResponse{
		Healthy:   status.Healthy,
		LatencyMS: status.Latency.Milliseconds(),
		Timestamp: time.Now().UTC(),
	}
	if !status.Healthy {
		slog.Warn("redis health check failed", "error", status.Err)
		resp.Error = status.Err.Error()
		middleware.JSONResponse(w, http.StatusServiceUnavailable, resp)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
