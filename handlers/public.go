// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/flash-survey/cache"
	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/models"
)

type PublicHandler struct {
	store SurveyStore
	cache *cache.Cache
	cfg   cliparse.Config
	now   func() time.Time
}

func NewPublicHandler(store SurveyStore, c *cache.Cache, cfg cliparse.Config) *PublicHandler {
	return &PublicHandler{store: store, cache: c, cfg: cfg, now: time.Now}
}

// GetSurveyByToken handles GET /survey-by-token/{token}
// The view is served from cache for up to SurveyCacheTTL, so total_votes may
// lag behind new submissions.
func (h *PublicHandler) GetSurveyByToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Token is required")
		return
	}

	view, cached, err := cache.GetOrLoad(r.Context(), h.cache, kv.SurveyByToken(token), h.cfg.SurveyCacheTTL,
		func(ctx context.Context) (models.SurveyView, error) {
			return h.loadView(ctx, token)
		})
	if errors.Is(err, db.ErrNotFound) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, "survey_not_found", "Survey not found")
		return
	}
	if err != nil {
		slog.Error("failed to load survey", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// State is checked on every read since expiry can pass while cached
	if err := view.Survey().AcceptsResponses(h.now(), view.TotalVotes); err != nil {
		surveyClosedResponse(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PublicSurveyResponse{
		Survey: view,
		Cached: cached,
	})
}

func (h *PublicHandler) loadView(ctx context.Context, token string) (models.SurveyView, error) {
	survey, err := h.store.FindActiveSurveyByToken(ctx, token)
	if err != nil {
		return models.SurveyView{}, err
	}

	total, err := h.store.CountDistinctSubmissions(ctx, survey.ID)
	if err != nil {
		return models.SurveyView{}, err
	}

	return models.NewSurveyView(survey, total), nil
}
