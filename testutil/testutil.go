// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/flash-survey/auth"
	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/models"
)

// Secrets used by GetTestConfig
const (
	TestJWTSecret  = "test-jwt-secret"
	TestIPHashSalt = "test-ip-salt"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// Every connection to :memory: is a separate database
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { conn.Close() })

	if _, err := conn.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}
	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// SetupTestStore wraps SetupTestDB in a Store
func SetupTestStore(t *testing.T) (*db.Store, *sql.DB) {
	t.Helper()
	conn := SetupTestDB(t)
	return db.NewStore(conn, 5*time.Second), conn
}

// SetupTestRedis starts a miniredis server and a client connected to it.
// Both are closed when the test ends.
func SetupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:                  mr.Addr(),
		MaxRetries:            -1,
		ContextTimeoutEnabled: true,
	})
	t.Cleanup(func() { client.Close() })

	return mr, client
}

// SetupHungRedis returns a client built by kv.NewClient for a server that
// accepts connections and never answers. Every call runs into its deadline.
func SetupHungRedis(t *testing.T) *redis.Client {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	client, err := kv.NewClient("redis://" + ln.Addr().String())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})

	return client
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:              8080,
		DatabaseURL:       ":memory:",
		DatabaseType:      "sqlite",
		JWTSecret:         TestJWTSecret,
		IPHashSalt:        TestIPHashSalt,
		VoterTTL:          cliparse.DefaultVoterTTL,
		SurveyCacheTTL:    cliparse.DefaultSurveyCacheTTL,
		AnalyticsCacheTTL: cliparse.DefaultAnalyticsCacheTTL,
		MaxResponses:      cliparse.DefaultMaxResponses,
		SurveyLifetime:    cliparse.DefaultSurveyLifetime,
		MaxQuestions:      cliparse.DefaultMaxQuestions,
		KVTimeout:         200 * time.Millisecond,
		DBTimeout:         5 * time.Second,
		RateLimit:         cliparse.DefaultRateLimit,
		RateLimitWindow:   cliparse.DefaultRateLimitWindow,
		SweepInterval:     0,
		LogLevel:          "error",
	}
}

// AdminToken signs a bearer token for email with the test secret
func AdminToken(t *testing.T, email string) string {
	t.Helper()
	token, err := auth.IssueAdminToken(email, "Test Admin", TestJWTSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to issue admin token: %v", err)
	}
	return token
}

// AuthHeader returns an Authorization header map for MakeRequest
func AuthHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// CreateTestAdmin inserts an admin user and returns it
func CreateTestAdmin(t *testing.T, store *db.Store, email string) models.AdminUser {
	t.Helper()
	admin, err := store.FindOrCreateAdmin(context.Background(), email, "Test Admin", "")
	if err != nil {
		t.Fatalf("Failed to create test admin: %v", err)
	}
	return admin
}

// SurveyOptions tunes CreateTestSurvey
type SurveyOptions struct {
	MaxResponses int
	ExpiresAt    time.Time
	Questions    int
	Optional     bool
}

// CreateTestSurvey creates a survey owned by adminID. Each question gets
// three options labelled A, B and C. Zero values in opts mean 100 max
// responses, expiry in one day and two required questions.
func CreateTestSurvey(t *testing.T, store *db.Store, adminID string, opts SurveyOptions) models.Survey {
	t.Helper()

	if opts.MaxResponses == 0 {
		opts.MaxResponses = 100
	}
	if opts.ExpiresAt.IsZero() {
		opts.ExpiresAt = time.Now().Add(24 * time.Hour)
	}
	if opts.Questions == 0 {
		opts.Questions = 2
	}

	def := models.SurveyDefinition{
		AdminID:      adminID,
		Title:        "Test Survey",
		Description:  "A test survey",
		MaxResponses: opts.MaxResponses,
		ExpiresAt:    opts.ExpiresAt,
	}
	for i := 0; i < opts.Questions; i++ {
		def.Questions = append(def.Questions, models.QuestionDefinition{
			QuestionText: fmt.Sprintf("Question %d?", i+1),
			OrderIndex:   i,
			Required:     !opts.Optional,
			Options:      []string{"A", "B", "C"},
		})
	}

	survey, err := store.CreateSurveyWithQuestions(context.Background(), def)
	if err != nil {
		t.Fatalf("Failed to create test survey: %v", err)
	}
	return survey
}

// SetSurveyActive flips a survey's active flag
func SetSurveyActive(t *testing.T, conn *sql.DB, surveyID string, active bool) {
	t.Helper()
	if _, err := conn.Exec(`UPDATE surveys SET is_active = $1 WHERE id = $2`, active, surveyID); err != nil {
		t.Fatalf("Failed to update survey: %v", err)
	}
}

// SetSurveyExpiry moves a survey's expiry
func SetSurveyExpiry(t *testing.T, conn *sql.DB, surveyID string, expiresAt time.Time) {
	t.Helper()
	if _, err := conn.Exec(`UPDATE surveys SET expires_at = $1 WHERE id = $2`, expiresAt.UTC(), surveyID); err != nil {
		t.Fatalf("Failed to update survey: %v", err)
	}
}

// SoftDeleteSurvey marks a survey deleted
func SoftDeleteSurvey(t *testing.T, conn *sql.DB, surveyID string) {
	t.Helper()
	if _, err := conn.Exec(`UPDATE surveys SET deleted_at = $1 WHERE id = $2`, time.Now().UTC(), surveyID); err != nil {
		t.Fatalf("Failed to delete survey: %v", err)
	}
}

// Answers picks the option at index choice for every question
func Answers(survey models.Survey, choice int) []models.AnswerRequest {
	answers := make([]models.AnswerRequest, 0, len(survey.Questions))
	for _, q := range survey.Questions {
		answers = append(answers, models.AnswerRequest{
			QuestionID: q.ID,
			OptionID:   q.Options[choice].ID,
		})
	}
	return answers
}

// SubmitTestResponses writes one submission straight to the store and
// returns its id
func SubmitTestResponses(t *testing.T, store *db.Store, survey models.Survey, choice int) string {
	t.Helper()

	submissionID := uuid.NewString()
	var rows []models.ResponseRow
	for _, a := range Answers(survey, choice) {
		rows = append(rows, models.ResponseRow{
			SurveyID:     survey.ID,
			QuestionID:   a.QuestionID,
			OptionID:     a.OptionID,
			SubmissionID: submissionID,
		})
	}
	if err := store.InsertResponses(context.Background(), rows); err != nil {
		t.Fatalf("Failed to submit test responses: %v", err)
	}
	return submissionID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
