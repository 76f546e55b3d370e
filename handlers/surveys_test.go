// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/flash-survey/models"
	"github.com/danielhkuo/flash-survey/testutil"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func (e *testEnv) createSurvey(body interface{}, email string) *httptest.ResponseRecorder {
	req := testutil.MakeRequest("POST", "/surveys", body, nil)
	if email != "" {
		req = asAdmin(req, email)
	}
	w := httptest.NewRecorder()
	e.surveys.CreateSurvey(w, req)
	return w
}

func TestCreateSurvey(t *testing.T) {
	env := setupTestEnv(t)
	fixed := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	env.surveys.now = func() time.Time { return fixed }

	body := models.CreateSurveyRequest{
		Title:       "Lunch",
		Description: "Where should we eat?",
		Questions: []models.CreateQuestionRequest{
			{QuestionText: "Cuisine?", Options: []string{"Thai", "Pizza", "Tacos"}},
			{QuestionText: "Time?", Options: []string{"12:00", "13:00"}, Required: boolPtr(false)},
		},
	}

	w := env.createSurvey(body, "new-admin@example.com")
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateSurveyResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.ID == "" || resp.PublicToken == "" {
		t.Fatal("Expected id and public_token")
	}
	if resp.Title != "Lunch" || !resp.IsActive {
		t.Errorf("Unexpected survey %+v", resp)
	}
	if resp.MaxResponses != env.cfg.MaxResponses {
		t.Errorf("Expected max_votes %d, got %d", env.cfg.MaxResponses, resp.MaxResponses)
	}
	if !resp.ExpiresAt.Equal(fixed.Add(env.cfg.SurveyLifetime)) {
		t.Errorf("Expected expiry %v, got %v", fixed.Add(env.cfg.SurveyLifetime), resp.ExpiresAt)
	}

	// The admin is created on first use
	admin, err := env.store.FindAdminByEmail(context.Background(), "new-admin@example.com")
	if err != nil {
		t.Fatalf("Expected admin to exist: %v", err)
	}

	stored, err := env.store.FindSurveyByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Failed to load survey: %v", err)
	}
	if stored.AdminID != admin.ID {
		t.Errorf("Expected owner %s, got %s", admin.ID, stored.AdminID)
	}
	if len(stored.Questions) != 2 {
		t.Fatalf("Expected 2 questions, got %d", len(stored.Questions))
	}
	if !stored.Questions[0].Required || stored.Questions[1].Required {
		t.Error("Expected required to default to true and honour false")
	}
	if stored.Questions[0].OrderIndex != 0 || stored.Questions[1].OrderIndex != 1 {
		t.Errorf("Expected order indexes from position, got %d and %d",
			stored.Questions[0].OrderIndex, stored.Questions[1].OrderIndex)
	}
	if got := stored.Questions[0].Options; len(got) != 3 || got[2].OptionText != "Tacos" {
		t.Errorf("Unexpected options %+v", got)
	}
}

func TestCreateSurvey_OrderIndex(t *testing.T) {
	env := setupTestEnv(t)

	body := models.CreateSurveyRequest{
		Title: "Ordered",
		Questions: []models.CreateQuestionRequest{
			{QuestionText: "Last", Options: []string{"a", "b"}, OrderIndex: intPtr(5)},
			{QuestionText: "First", Options: []string{"a", "b"}, OrderIndex: intPtr(0)},
		},
	}

	w := env.createSurvey(body, "admin@example.com")
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreateSurveyResponse
	testutil.AssertJSON(t, w, &resp)

	stored, err := env.store.FindSurveyByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("Failed to load survey: %v", err)
	}
	// An explicit zero falls back to the position, here 1
	if stored.Questions[0].QuestionText != "First" || stored.Questions[0].OrderIndex != 1 {
		t.Errorf("Unexpected first question %+v", stored.Questions[0])
	}
	if stored.Questions[1].QuestionText != "Last" || stored.Questions[1].OrderIndex != 5 {
		t.Errorf("Unexpected second question %+v", stored.Questions[1])
	}
}

func TestCreateSurvey_Rejects(t *testing.T) {
	env := setupTestEnv(t)

	question := models.CreateQuestionRequest{QuestionText: "Q", Options: []string{"a", "b"}}

	testCases := []struct {
		name     string
		body     interface{}
		email    string
		status   int
		wantCode string
	}{
		{
			name:     "no claims",
			body:     models.CreateSurveyRequest{Title: "T", Questions: []models.CreateQuestionRequest{question}},
			status:   http.StatusUnauthorized,
			wantCode: "unauthorized",
		},
		{
			name:     "missing title",
			body:     models.CreateSurveyRequest{Questions: []models.CreateQuestionRequest{question}},
			email:    "admin@example.com",
			status:   http.StatusBadRequest,
			wantCode: "validation_failed",
		},
		{
			name:     "no questions",
			body:     models.CreateSurveyRequest{Title: "T"},
			email:    "admin@example.com",
			status:   http.StatusBadRequest,
			wantCode: "validation_failed",
		},
		{
			name: "single option",
			body: models.CreateSurveyRequest{Title: "T", Questions: []models.CreateQuestionRequest{
				{QuestionText: "Q", Options: []string{"only"}},
			}},
			email:    "admin@example.com",
			status:   http.StatusBadRequest,
			wantCode: "validation_failed",
		},
		{
			name: "too many questions",
			body: models.CreateSurveyRequest{Title: "T", Questions: []models.CreateQuestionRequest{
				question, question, question, question,
			}},
			email:    "admin@example.com",
			status:   http.StatusBadRequest,
			wantCode: "too_many_questions",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.createSurvey(tc.body, tc.email)
			testutil.AssertStatus(t, w, tc.status)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Code)
			}
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		req := asAdmin(httptest.NewRequest("POST", "/surveys", strings.NewReader("[")), "admin@example.com")
		w := httptest.NewRecorder()
		env.surveys.CreateSurvey(w, req)
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	// Rejected requests don't create the admin
	if _, err := env.store.FindAdminByEmail(context.Background(), "admin@example.com"); err == nil {
		t.Error("Expected no admin to be created by rejected requests")
	}
}

func TestListSurveys(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateTestAdmin(t, env.store, "admin@example.com")
	other := testutil.CreateTestAdmin(t, env.store, "other@example.com")

	now := time.Now()
	older := testutil.CreateTestSurvey(t, env.store, admin.ID, testutil.SurveyOptions{ExpiresAt: now.Add(-time.Hour)})
	time.Sleep(2 * time.Millisecond)
	newer := testutil.CreateTestSurvey(t, env.store, admin.ID, testutil.SurveyOptions{Questions: 3, ExpiresAt: now.Add(48 * time.Hour)})
	testutil.CreateTestSurvey(t, env.store, other.ID, testutil.SurveyOptions{})
	testutil.SubmitTestResponses(t, env.store, newer, 0)

	env.surveys.now = func() time.Time { return now }

	req := asAdmin(httptest.NewRequest("GET", "/surveys", nil), admin.Email)
	w := httptest.NewRecorder()
	env.surveys.ListSurveys(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ListSurveysResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.Surveys) != 2 {
		t.Fatalf("Expected 2 surveys, got %d", len(resp.Surveys))
	}
	first, second := resp.Surveys[0], resp.Surveys[1]
	if first.ID != newer.ID || second.ID != older.ID {
		t.Errorf("Expected newest first, got %s then %s", first.ID, second.ID)
	}
	if first.QuestionCount != 3 || first.TotalVotes != 1 {
		t.Errorf("Unexpected counts %+v", first)
	}
	if first.IsExpired || !second.IsExpired {
		t.Error("Unexpected is_expired flags")
	}
	if first.ExpiresIn != "2 days from now" {
		t.Errorf("Expected '2 days from now', got %q", first.ExpiresIn)
	}
	if second.ExpiresIn != "1 hour ago" {
		t.Errorf("Expected '1 hour ago', got %q", second.ExpiresIn)
	}
}

func TestListSurveys_UnknownAdmin(t *testing.T) {
	env := setupTestEnv(t)

	req := asAdmin(httptest.NewRequest("GET", "/surveys", nil), "nobody@example.com")
	w := httptest.NewRecorder()
	env.surveys.ListSurveys(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	if body := strings.TrimSpace(w.Body.String()); body != `{"surveys":[]}` {
		t.Errorf("Expected an empty list, got %s", body)
	}
}
