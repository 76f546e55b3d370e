// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/flash-survey/admission"
	"github.com/danielhkuo/flash-survey/auth"
	"github.com/danielhkuo/flash-survey/cache"
	"github.com/danielhkuo/flash-survey/cliparse"
	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/models"
	"github.com/danielhkuo/flash-survey/testutil"
)

// testEnv bundles a SQLite store, a miniredis server and every handler
type testEnv struct {
	store  *db.Store
	conn   *sql.DB
	mr     *miniredis.Miniredis
	client *redis.Client
	cfg    cliparse.Config

	surveys   *SurveyHandler
	public    *PublicHandler
	responses *ResponseHandler
	analytics *AnalyticsHandler
	health    *HealthHandler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return setupTestEnvWith(t, func(s *db.Store) SurveyStore { return s })
}

// setupTestEnvWith lets a test wrap the store handed to the handlers
func setupTestEnvWith(t *testing.T, wrap func(*db.Store) SurveyStore) *testEnv {
	t.Helper()

	store, conn := testutil.SetupTestStore(t)
	mr, client := testutil.SetupTestRedis(t)
	cfg := testutil.GetTestConfig()

	handlerStore := wrap(store)
	c := cache.New(client, cfg.KVTimeout)
	gate := admission.NewGate(client,
		admission.WithTTL(cfg.VoterTTL),
		admission.WithTimeout(cfg.KVTimeout),
	)

	return &testEnv{
		store:     store,
		conn:      conn,
		mr:        mr,
		client:    client,
		cfg:       cfg,
		surveys:   NewSurveyHandler(handlerStore, cfg),
		public:    NewPublicHandler(handlerStore, c, cfg),
		responses: NewResponseHandler(handlerStore, gate, cfg),
		analytics: NewAnalyticsHandler(handlerStore, c, cfg),
		health:    NewHealthHandler(client, cfg),
	}
}

// asAdmin attaches verified admin claims the way middleware.RequireAdmin does
func asAdmin(req *http.Request, email string) *http.Request {
	claims := auth.AdminClaims{Email: email}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// submit posts answers for survey from ip
func (e *testEnv) submit(survey models.Survey, choice int, ip string) *httptest.ResponseRecorder {
	body := models.SubmitResponseRequest{
		SurveyToken: survey.PublicToken,
		Responses:   testutil.Answers(survey, choice),
	}
	req := testutil.MakeRequest("POST", "/submit-response", body, map[string]string{
		"X-Forwarded-For": ip,
	})
	w := httptest.NewRecorder()
	e.responses.SubmitResponse(w, req)
	return w
}

// countingStore counts loads so cache behaviour can be observed
type countingStore struct {
	*db.Store
	byToken atomic.Int32
	byID    atomic.Int32
}

func (s *countingStore) FindActiveSurveyByToken(ctx context.Context, token string) (models.Survey, error) {
	s.byToken.Add(1)
	return s.Store.FindActiveSurveyByToken(ctx, token)
}

func (s *countingStore) FindSurveyByID(ctx context.Context, id string) (models.Survey, error) {
	s.byID.Add(1)
	return s.Store.FindSurveyByID(ctx, id)
}

// failingInsertStore rejects every response insert
type failingInsertStore struct {
	*db.Store
}

func (s failingInsertStore) InsertResponses(ctx context.Context, rows []models.ResponseRow) error {
	return errors.New("disk full")
}

// failingCountStore cannot count submissions
type failingCountStore struct {
	*db.Store
}

func (s failingCountStore) CountDistinctSubmissions(ctx context.Context, surveyID string) (int, error) {
	return 0, errors.New("connection reset")
}
