// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/models"
)

type SurveyHandler struct {
	store SurveyStore
	cfg   cliparse.Config
	now   func() time.Time
}

func NewSurveyHandler(store SurveyStore, cfg cliparse.Config) *SurveyHandler {
	return &SurveyHandler{store: store, cfg: cfg, now: time.Now}
}

// CreateSurvey handles POST /surveys
func (h *SurveyHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	claims, ok := adminClaims(w, r)
	if !ok {
		return
	}

	var req models.CreateSurveyRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

	if len(req.Questions) > h.cfg.MaxQuestions {
		middleware.CodedErrorResponse(w, http.StatusBadRequest, "too_many_questions",
			fmt.Sprintf("Maximum %d questions allowed", h.cfg.MaxQuestions))
		return
	}

	// Admins are created on first use
	admin, err := h.store.FindOrCreateAdmin(r.Context(), claims.Email, claims.DisplayName(), claims.UserMetadata.AvatarURL)
	if err != nil {
		slog.Error("failed to resolve admin user", "email", claims.Email, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create admin user")
		return
	}

	def := models.SurveyDefinition{
		AdminID:      admin.ID,
		Title:        req.Title,
		Description:  req.Description,
		MaxResponses: h.cfg.MaxResponses,
		ExpiresAt:    h.now().Add(h.cfg.SurveyLifetime).UTC(),
	}
	for i, q := range req.Questions {
		// A zero index means "not given", as does a missing one
		orderIndex := i
		if q.OrderIndex != nil && *q.OrderIndex != 0 {
			orderIndex = *q.OrderIndex
		}
		def.Questions = append(def.Questions, models.QuestionDefinition{
			QuestionText: q.QuestionText,
			OrderIndex:   orderIndex,
			Required:     q.Required == nil || *q.Required,
			Options:      q.Options,
		})
	}

	survey, err := h.store.CreateSurveyWithQuestions(r.Context(), def)
	if err != nil {
		slog.Error("failed to create survey", "admin_id", admin.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create survey")
		return
	}

	slog.Info("survey created",
		"survey_id", survey.ID,
		"admin_id", admin.ID,
		"questions", len(survey.Questions),
	)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateSurveyResponse{
		ID:           survey.ID,
		Title:        survey.Title,
		Description:  survey.Description,
		PublicToken:  survey.PublicToken,
		ExpiresAt:    survey.ExpiresAt,
		IsActive:     survey.IsActive,
		MaxResponses: survey.MaxResponses,
		CreatedAt:    survey.CreatedAt,
	})
}

// ListSurveys handles GET /surveys
func (h *SurveyHandler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	claims, ok := adminClaims(w, r)
	if !ok {
		return
	}

	admin, err := h.store.FindAdminByEmail(r.Context(), claims.Email)
	if errors.Is(err, db.ErrNotFound) {
		// Nothing created yet
		middleware.JSONResponse(w, http.StatusOK, models.ListSurveysResponse{Surveys: []models.SurveySummary{}})
		return
	}
	if err != nil {
		slog.Error("failed to query admin user", "email", claims.Email, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	surveys, err := h.store.ListSurveysByAdmin(r.Context(), admin.ID)
	if err != nil {
		slog.Error("failed to list surveys", "admin_id", admin.ID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to fetch surveys")
		return
	}

	now := h.now()
	for i := range surveys {
		surveys[i].IsExpired = !now.Before(surveys[i].ExpiresAt)
		surveys[i].ExpiresIn = humanize.RelTime(surveys[i].ExpiresAt, now, "ago", "from now")
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListSurveysResponse{Surveys: surveys})
}
