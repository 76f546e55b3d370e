package models

import (
	"errors"
	"time"
)

// Question type constants
const (
	QuestionTypeRadio = "radio"
)

// Survey state errors, checked with errors.Is
var (
	ErrSurveyInactive = errors.New("survey is no longer active")
	ErrSurveyExpired  = errors.New("survey has expired")
	ErrSurveyFull     = errors.New("survey has reached maximum responses")
)

// Request types

type CreateSurveyRequest struct {
	Title       string                  `json:"title" validate:"required,max=200"`
	Description string                  `json:"description" validate:"max=2000"`
	Questions   []CreateQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type CreateQuestionRequest struct {
	QuestionText string   `json:"question_text" validate:"required,max=500"`
	Options      []string `json:"options" validate:"required,min=2,max=10,dive,required,max=200"`
	Required     *bool    `json:"required,omitempty"`
	OrderIndex   *int     `json:"order_index,omitempty" validate:"omitempty,min=0"`
}

type SubmitResponseRequest struct {
	SurveyToken string          `json:"survey_token" validate:"required"`
	Responses   []AnswerRequest `json:"responses" validate:"required,min=1,dive"`
}

type AnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	OptionID   string `json:"option_id" validate:"required"`
}

// Response types

type CreateSurveyResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublicToken  string    `json:"public_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsActive     bool      `json:"is_active"`
	MaxResponses int       `json:"max_votes"`
	CreatedAt    time.Time `json:"created_at"`
}

type SubmitResponseResponse struct {
	SubmissionID   string `json:"submission_id"`
	Message        string `json:"message"`
	RemainingSlots int    `json:"remaining_slots"`
	Degraded       bool   `json:"degraded,omitempty"`
}

type PublicSurveyResponse struct {
	Survey SurveyView `json:"survey"`
	Cached bool       `json:"cached"`
}

type AnalyticsResponse struct {
	AnalyticsView
	Cached bool `json:"cached"`
}

type ListSurveysResponse struct {
	Surveys []SurveySummary `json:"surveys"`
}

type KVHealthResponse struct {
	Healthy   bool      `json:"healthy"`
	LatencyMS int64     `json:"latency_ms"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Domain types

type AdminUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Survey struct {
	ID           string     `json:"id"`
	AdminID      string     `json:"admin_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PublicToken  string     `json:"public_token"`
	IsActive     bool       `json:"is_active"`
	MaxResponses int        `json:"max_votes"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
	Questions    []Question `json:"questions,omitempty"`
}

// IsExpired reports whether the survey is past its expiry. A survey whose
// expiry equals now is expired.
func (s Survey) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AcceptsResponses returns nil while the survey is active, unexpired and
// below its response ceiling.
func (s Survey) AcceptsResponses(now time.Time, submissions int) error {
	if !s.IsActive {
		return ErrSurveyInactive
	}
	if s.IsExpired(now) {
		return ErrSurveyExpired
	}
	if submissions >= s.MaxResponses {
		return ErrSurveyFull
	}
	return nil
}

// Question looks up a question by id
func (s Survey) Question(id string) (Question, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

type Question struct {
	ID           string   `json:"id"`
	SurveyID     string   `json:"survey_id"`
	QuestionText string   `json:"question_text"`
	QuestionType string   `json:"question_type"`
	OrderIndex   int      `json:"order_index"`
	Required     bool     `json:"required"`
	Options      []Option `json:"question_options"`
}

// HasOption reports whether optionID belongs to the question
func (q Question) HasOption(optionID string) bool {
	for _, o := range q.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	OptionText string `json:"option_text"`
}

// One row per answered question; a submission spans several rows.
type ResponseRow struct {
	ID           string    `json:"id"`
	SurveyID     string    `json:"survey_id"`
	QuestionID   string    `json:"question_id"`
	OptionID     string    `json:"option_id"`
	SubmissionID string    `json:"submission_id"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// SurveyDefinition is everything needed to create a survey in one unit
type SurveyDefinition struct {
	AdminID      string
	Title        string
	Description  string
	MaxResponses int
	ExpiresAt    time.Time
	Questions    []QuestionDefinition
}

type QuestionDefinition struct {
	QuestionText string
	OrderIndex   int
	Required     bool
	Options      []string
}

type OptionCount struct {
	QuestionID string
	OptionID   string
	Count      int
}

type SurveySummary struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PublicToken   string    `json:"public_token"`
	IsActive      bool      `json:"is_active"`
	MaxResponses  int       `json:"max_votes"`
	TotalVotes    int       `json:"total_votes"`
	QuestionCount int       `json:"question_count"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
	IsExpired     bool      `json:"is_expired"`
	ExpiresIn     string    `json:"expires_in"`
}

// ClosedSurvey identifies a survey whose Redis keys can be swept
type ClosedSurvey struct {
	ID          string
	PublicToken string
	ExpiresAt   time.Time
}

// Cached views

// SurveyView is the public projection of a survey, cached by public token
type SurveyView struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ExpiresAt    time.Time  `json:"expires_at"`
	IsActive     bool       `json:"is_active"`
	MaxResponses int        `json:"max_votes"`
	TotalVotes   int        `json:"total_votes"`
	Questions    []Question `json:"questions"`
}

// NewSurveyView projects a survey and its submission count
func NewSurveyView(s Survey, totalVotes int) SurveyView {
	questions := s.Questions
	if questions == nil {
		questions = []Question{}
	}
	return SurveyView{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		ExpiresAt:    s.ExpiresAt,
		IsActive:     s.IsActive,
		MaxResponses: s.MaxResponses,
		TotalVotes:   totalVotes,
		Questions:    questions,
	}
}

// Survey rebuilds the parts of a Survey needed for state checks
func (v SurveyView) Survey() Survey {
	return Survey{
		ID:           v.ID,
		Title:        v.Title,
		Description:  v.Description,
		IsActive:     v.IsActive,
		MaxResponses: v.MaxResponses,
		ExpiresAt:    v.ExpiresAt,
		Questions:    v.Questions,
	}
}

type OptionAnalytics struct {
	OptionID   string  `json:"option_id"`
	OptionText string  `json:"option_text"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type QuestionAnalytics struct {
	QuestionID     string            `json:"question_id"`
	QuestionText   string            `json:"question_text"`
	OrderIndex     int               `json:"order_index"`
	Required       bool              `json:"required"`
	TotalResponses int               `json:"total_responses"`
	Options        []OptionAnalytics `json:"options"`
}

type SurveyAnalyticsDetail struct {
	ID           string    `json:"id"`
	AdminID      string    `json:"admin_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublicToken  string    `json:"public_token"`
	IsActive     bool      `json:"is_active"`
	MaxResponses int       `json:"max_votes"`
	TotalVotes   int       `json:"total_votes"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	IsExpired    bool      `json:"is_expired"`
	ResponseRate float64   `json:"response_rate"`
}

type AnalyticsStats struct {
	TotalResponses       int     `json:"total_responses"`
	ResponseRate         float64 `json:"response_rate"`
	IsExpired            bool    `json:"is_expired"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// AnalyticsView is the admin projection of a survey, cached by survey id
type AnalyticsView struct {
	Survey    SurveyAnalyticsDetail `json:"survey"`
	Questions []QuestionAnalytics   `json:"questions"`
	Stats     AnalyticsStats        `json:"stats"`
}

// Error response

type ErrorResponse struct {
	Error      string            `json:"error"`
	Message    string            `json:"message,omitempty"`
	Code       string            `json:"code,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	RetryAfter int               `json:"retry_after,omitempty"`
}
