// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/flash-survey/cache"
	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/models"
)

type AnalyticsHandler struct {
	store SurveyStore
	cache *cache.Cache
	cfg   cliparse.Config
	now   func() time.Time
}

func NewAnalyticsHandler(store SurveyStore, c *cache.Cache, cfg cliparse.Config) *AnalyticsHandler {
	return &AnalyticsHandler{store: store, cache: c, cfg: cfg, now: time.Now}
}

// GetSurveyAnalytics handles GET /survey-analytics/{surveyId}
func (h *AnalyticsHandler) GetSurveyAnalytics(w http.ResponseWriter, r *http.Request) {
	claims, ok := adminClaims(w, r)
	if !ok {
		return
	}

	surveyID := r.PathValue("surveyId")
	if surveyID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Survey ID is required")
		return
	}

	admin, err := h.store.FindAdminByEmail(r.Context(), claims.Email)
	if errors.Is(err, db.ErrNotFound) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, "admin_not_found", "Admin user not found")
		return
	}
	if err != nil {
		slog.Error("failed to query admin user", "email", claims.Email, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	view, cached, err := cache.GetOrLoad(r.Context(), h.cache, kv.Analytics(surveyID), h.cfg.AnalyticsCacheTTL,
		func(ctx context.Context) (models.AnalyticsView, error) {
			return h.loadAnalytics(ctx, surveyID)
		})
	if errors.Is(err, db.ErrNotFound) {
		middleware.CodedErrorResponse(w, http.StatusNotFound, "survey_not_found", "Survey not found or access denied")
		return
	}
	if err != nil {
		slog.Error("failed to load analytics", "survey_id", surveyID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch responses")
		return
	}

	// Same answer as a missing survey so ids can't be probed
	if view.Survey.AdminID != admin.ID {
		middleware.CodedErrorResponse(w, http.StatusNotFound, "survey_not_found", "Survey not found or access denied")
		return
	}

	expired := !h.now().Before(view.Survey.ExpiresAt)
	view.Survey.IsExpired = expired
	view.Stats.IsExpired = expired

	middleware.JSONResponse(w, http.StatusOK, models.AnalyticsResponse{
		AnalyticsView: view,
		Cached:        cached,
	})
}

// loadAnalytics reads the survey and its counts concurrently
func (h *AnalyticsHandler) loadAnalytics(ctx context.Context, surveyID string) (models.AnalyticsView, error) {
	var (
		survey models.Survey
		counts []models.OptionCount
		total  int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		survey, err = h.store.FindSurveyByID(gctx, surveyID)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = h.store.CountOptionResponses(gctx, surveyID)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = h.store.CountDistinctSubmissions(gctx, surveyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.AnalyticsView{}, err
	}

	return buildAnalytics(survey, counts, total, h.now()), nil
}

// buildAnalytics computes per-option counts and percentages of total
// submissions, rounded to two decimals
func buildAnalytics(survey models.Survey, counts []models.OptionCount, total int, now time.Time) models.AnalyticsView {
	byOption := make(map[string]int, len(counts))
	for _, c := range counts {
		byOption[c.QuestionID+"/"+c.OptionID] = c.Count
	}

	rate := 0.0
	if survey.MaxResponses > 0 {
		rate = round2(float64(total) / float64(survey.MaxResponses) * 100)
	}
	expired := survey.IsExpired(now)

	questions := make([]models.QuestionAnalytics, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		options := make([]models.OptionAnalytics, 0, len(q.Options))
		for _, o := range q.Options {
			count := byOption[q.ID+"/"+o.ID]
			pct := 0.0
			if total > 0 {
				pct = round2(float64(count) / float64(total) * 100)
			}
			options = append(options, models.OptionAnalytics{
				OptionID:   o.ID,
				OptionText: o.OptionText,
				Count:      count,
				Percentage: pct,
			})
		}
		questions = append(questions, models.QuestionAnalytics{
			QuestionID:     q.ID,
			QuestionText:   q.QuestionText,
			OrderIndex:     q.OrderIndex,
			Required:       q.Required,
			TotalResponses: total,
			Options:        options,
		})
	}

	return models.AnalyticsView{
		Survey: models.SurveyAnalyticsDetail{
			ID:           survey.ID,
			AdminID:      survey.AdminID,
			Title:        survey.Title,
			Description:  survey.Description,
			PublicToken:  survey.PublicToken,
			IsActive:     survey.IsActive,
			MaxResponses: survey.MaxResponses,
			TotalVotes:   total,
			ExpiresAt:    survey.ExpiresAt,
			CreatedAt:    survey.CreatedAt,
			IsExpired:    expired,
			ResponseRate: rate,
		},
		Questions: questions,
		Stats: models.AnalyticsStats{
			TotalResponses:       total,
			ResponseRate:         rate,
			IsExpired:            expired,
			CompletionPercentage: rate,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
