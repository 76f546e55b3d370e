// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/flash-survey/admission"
	"github.com/danielhkuo/flash-survey/auth"
	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/metrics"
	"github.com/danielhkuo/flash-survey/middleware"
	"github.com/danielhkuo/flash-survey/models"
)

var (
	errMissingRequired = errors.New("missing responses for required questions")
	errUnknownQuestion = errors.New("invalid question id")
	errUnknownOption   = errors.New("invalid option id")
)

type ResponseHandler struct {
	store SurveyStore
	gate  *admission.Gate
	cfg   cliparse.Config
	now   func() time.Time
}

func NewResponseHandler(store SurveyStore, gate *admission.Gate, cfg cliparse.Config) *ResponseHandler {
	return &ResponseHandler{store: store, gate: gate, cfg: cfg, now: time.Now}
}

// submissionRecord is appended to the survey's submission log on commit
type submissionRecord struct {
	SubmissionID string                 `json:"submission_id"`
	SurveyID     string                 `json:"survey_id"`
	Responses    []models.AnswerRequest `json:"responses"`
	SubmittedAt  time.Time              `json:"submitted_at"`
}

// SubmitResponse handles POST /submit-response
func (h *ResponseHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitResponseRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return
	}

	ctx := r.Context()

	survey, err := h.store.FindActiveSurveyByToken(ctx, req.SurveyToken)
	if errors.Is(err, db.ErrNotFound) {
		metrics.Submissions.WithLabelValues("not_found").Inc()
		middleware.CodedErrorResponse(w, http.StatusNotFound, "survey_not_found", "Survey not found")
		return
	}
	if err != nil {
		slog.Error("failed to query survey", "error", err)
		metrics.Submissions.WithLabelValues("error").Inc()
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	now := h.now()
	if err := survey.AcceptsResponses(now, 0); err != nil {
		metrics.Submissions.WithLabelValues("closed").Inc()
		surveyClosedResponse(w, err)
		return
	}

	if err := validateAnswers(survey, req.Responses); err != nil {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		middleware.CodedErrorResponse(w, http.StatusBadRequest, "invalid_responses", err.Error())
		return
	}

	voter := auth.HashIP(middleware.GetClientIP(r), h.cfg.IPHashSalt)
	decision := h.gate.Evaluate(ctx, survey.ID, voter, survey.MaxResponses)
	switch decision.Outcome {
	case admission.RejectedDuplicate:
		metrics.Submissions.WithLabelValues("duplicate").Inc()
		middleware.RetryErrorResponse(w, http.StatusTooManyRequests, "already_voted",
			"You have already responded to this survey", decision.RetryAfter)
		return
	case admission.RejectedQuotaExceeded:
		metrics.Submissions.WithLabelValues("quota_exceeded").Inc()
		middleware.RetryErrorResponse(w, http.StatusTooManyRequests, "quota_exceeded",
			"Survey has reached maximum responses", 0)
		return
	}

	// The durable count is authoritative; the gate's counter is advisory
	remaining := decision.RemainingSlots
	count, err := h.store.CountDistinctSubmissions(ctx, survey.ID)
	if err != nil {
		slog.Warn("failed to count submissions, continuing", "survey_id", survey.ID, "error", err)
	} else {
		if err := survey.AcceptsResponses(now, count); err != nil {
			metrics.Submissions.WithLabelValues("closed").Inc()
			surveyClosedResponse(w, err)
			return
		}
		remaining = survey.MaxResponses - count
	}

	submissionID := uuid.NewString()
	submittedAt := now.UTC()
	rows := make([]models.ResponseRow, 0, len(req.Responses))
	for _, a := range req.Responses {
		rows = append(rows, models.ResponseRow{
			SurveyID:     survey.ID,
			QuestionID:   a.QuestionID,
			OptionID:     a.OptionID,
			SubmissionID: submissionID,
			SubmittedAt:  submittedAt,
		})
	}

	if err := h.store.InsertResponses(ctx, rows); err != nil {
		slog.Error("failed to insert responses", "survey_id", survey.ID, "error", err)
		metrics.Submissions.WithLabelValues("error").Inc()
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save responses")
		return
	}

	committed := h.gate.Commit(ctx, survey.ID, voter, submissionID, submissionRecord{
		SubmissionID: submissionID,
		SurveyID:     survey.ID,
		Responses:    req.Responses,
		SubmittedAt:  submittedAt,
	})
	degraded := decision.Degraded || !committed

	slog.Info("response submitted",
		"survey_id", survey.ID,
		"submission_id", submissionID,
		"degraded", degraded,
	)
	metrics.Submissions.WithLabelValues("accepted").Inc()

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitResponseResponse{
		SubmissionID:   submissionID,
		Message:        "Response submitted successfully",
		RemainingSlots: max(0, remaining-1),
		Degraded:       degraded,
	})
}

// validateAnswers checks that every required question is answered and that
// each answer names a question of the survey and one of its options
func validateAnswers(survey models.Survey, answers []models.AnswerRequest) error {
	answered := make(map[string]bool, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = true
	}
	for _, q := range survey.Questions {
		if q.Required && !answered[q.ID] {
			return errMissingRequired
		}
	}

	for _, a := range answers {
		q, ok := survey.Question(a.QuestionID)
		if !ok {
			return errUnknownQuestion
		}
		if !q.HasOption(a.OptionID) {
			return errUnknownOption
		}
	}
	return nil
}
