// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/flash-survey/auth"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/models"
)

// SurveyStore is the durable record store the handlers read and write.
// *db.Store implements it.
type SurveyStore interface {
	FindActiveSurveyByToken(ctx context.Context, token string) (models.Survey, error)
	FindSurveyByID(ctx context.Context, id string) (models.Survey, error)
	CountDistinctSubmissions(ctx context.Context, surveyID string) (int, error)
	CountOptionResponses(ctx context.Context, surveyID string) ([]models.OptionCount, error)
	InsertResponses(ctx context.Context, rows []models.ResponseRow) error
	CreateSurveyWithQuestions(ctx context.Context, def models.SurveyDefinition) (models.Survey, error)
	FindAdminByEmail(ctx context.Context, email string) (models.AdminUser, error)
	FindOrCreateAdmin(ctx context.Context, email, name, avatarURL string) (models.AdminUser, error)
	ListSurveysByAdmin(ctx context.Context, adminID string) ([]models.SurveySummary, error)
}

var _ SurveyStore = (*db.Store)(nil)

// surveyClosedResponse maps a survey state error to a 410 with a reason code
func surveyClosedResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrSurveyInactive):
		middleware.CodedErrorResponse(w, http.StatusGone, "survey_inactive", "Survey is no longer active")
	case errors.Is(err, models.ErrSurveyExpired):
		middleware.CodedErrorResponse(w, http.StatusGone, "survey_expired", "Survey has expired")
	case errors.Is(err, models.ErrSurveyFull):
		middleware.CodedErrorResponse(w, http.StatusGone, "survey_full", "Survey has reached maximum responses")
	default:
		slog.Error("unexpected survey state error", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Internal server error")
	}
}

// adminClaims fetches the verified claims set by middleware.RequireAdmin
func adminClaims(w http.ResponseWriter, r *http.Request) (auth.AdminClaims, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		middleware.CodedErrorResponse(w, http.StatusUnauthorized, "unauthorized", "No authorization header")
		return auth.AdminClaims{}, false
	}
	return claims, true
}
