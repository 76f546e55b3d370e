// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/flash-survey/db"
	"github.com/danielhkuo/flash-survey/kv"
	"github.com/danielhkuo/flash-survey/models"
	"github.com/danielhkuo/flash-survey/testutil"
)

func (e *testEnv) getByToken(token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/survey-by-token/"+token, nil)
	req.SetPathValue("token", token)
	w := httptest.NewRecorder()
	e.public.GetSurveyByToken(w, req)
	return w
}

func TestGetSurveyByToken(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateTestAdmin(t, env.store, "admin@example.com")
	survey := testutil.CreateTestSurvey(t, env.store, admin.ID, testutil.SurveyOptions{Questions: 3})

	w := env.getByToken(survey.PublicToken)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.PublicSurveyResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Cached {
		t.Error("Expected first read to miss the cache")
	}
	if resp.Survey.ID != survey.ID {
		t.Errorf("Expected survey %s, got %s", survey.ID, resp.Survey.ID)
	}
	if resp.Survey.MaxResponses != 100 || resp.Survey.TotalVotes != 0 {
		t.Errorf("Unexpected counts: max %d, total %d", resp.Survey.MaxResponses, resp.Survey.TotalVotes)
	}
	if len(resp.Survey.Questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(resp.Survey.Questions))
	}
	for i, q := range resp.Survey.Questions {
		if q.OrderIndex != i {
			t.Errorf("Question %d has order_index %d", i, q.OrderIndex)
		}
		if len(q.Options) != 3 || q.Options[0].OptionText != "A" {
			t.Errorf("Question %d has unexpected options %+v", i, q.Options)
		}
	}

	if !env.mr.Exists(kv.SurveyByToken(survey.PublicToken)) {
		t.Error("Expected view to be cached")
	}
	if ttl := env.mr.TTL(kv.SurveyByToken(survey.PublicToken)); ttl != env.cfg.SurveyCacheTTL {
		t.Errorf("Expected TTL %v, got %v", env.cfg.SurveyCacheTTL, ttl)
	}

	w = env.getByToken(survey.PublicToken)
	testutil.AssertStatus(t, w, http.StatusOK)
	var again models.PublicSurveyResponse
	testutil.AssertJSON(t, w, &again)
	if !again.Cached {
		t.Error("Expected second read to hit the cache")
	}
	if again.Survey.ID != resp.Survey.ID || len(again.Survey.Questions) != len(resp.Survey.Questions) {
		t.Error("Expected the same survey on repeated reads")
	}
}

func TestGetSurveyByToken_CacheTTL(t *testing.T) {
	var counting *countingStore
	env := setupTestEnvWith(t, func(s *db.Store) SurveyStore {
		counting = &countingStore{Store: s}
		return counting
	})
	admin := testutil.CreateTestAdmin(t, env.store, "admin@example.com")
	survey := testutil.CreateTestSurvey(t, env.store, admin.ID, testutil.SurveyOptions{})

	for i := 0; i < 5; i++ {
		testutil.AssertStatus(t, env.getByToken(survey.PublicToken), http.StatusOK)
	}
	if n := counting.byToken.Load(); n != 1 {
		t.Errorf("Expected one load within the TTL, got %d", n)
	}

	// New submissions are not visible until the entry expires
	testutil.SubmitTestResponses(t, env.store, survey, 0)

	var resp models.PublicSurveyResponse
	w := env.getByToken(survey.PublicToken)
	testutil.AssertJSON(t, w, &resp)
	if resp.Survey.TotalVotes != 0 {
		t.Errorf("Expected stale total_votes 0, got %d", resp.Survey.TotalVotes)
	}

	env.mr.FastForward(env.cfg.SurveyCacheTTL + time.Second)

	w = env.getByToken(survey.PublicToken)
	testutil.AssertJSON(t, w, &resp)
	if resp.Cached {
		t.Error("Expected a reload after the TTL")
	}
	if resp.Survey.TotalVotes != 1 {
		t.Errorf("Expected total_votes 1 after the TTL, got %d", resp.Survey.TotalVotes)
	}
	if n := counting.byToken.Load(); n != 2 {
		t.Errorf("Expected two loads, got %d", n)
	}
}

func TestGetSurveyByToken_NotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.getByToken("does-not-exist")
	testutil.AssertStatus(t, w, http.StatusNotFound)

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Code != "survey_not_found" {
		t.Errorf("Expected code survey_not_found, got %q", resp.Code)
	}
	if env.mr.Exists(kv.SurveyByToken("does-not-exist")) {
		t.Error("Misses must not be cached")
	}
}

func TestGetSurveyByToken_Closed(t *testing.T) {
	testCases := []struct {
		name     string
		opts     testutil.SurveyOptions
		setup    func(t *testing.T, env *testEnv, survey models.Survey)
		wantCode string
	}{
		{
			name: "inactive",
			setup: func(t *testing.T, env *testEnv, survey models.Survey) {
				testutil.SetSurveyActive(t, env.conn, survey.ID, false)
			},
			wantCode: "survey_inactive",
		},
		{
			name:     "expired",
			opts:     testutil.SurveyOptions{ExpiresAt: time.Now().Add(-time.Hour)},
			setup:    func(t *testing.T, env *testEnv, survey models.Survey) {},
			wantCode: "survey_expired",
		},
		{
			name: "expires exactly now",
			setup: func(t *testing.T, env *testEnv, survey models.Survey) {
				env.public.now = func() time.Time { return survey.ExpiresAt }
			},
			wantCode: "survey_expired",
		},
		{
			name: "full",
			opts: testutil.SurveyOptions{MaxResponses: 1},
			setup: func(t *testing.T, env *testEnv, survey models.Survey) {
				testutil.SubmitTestResponses(t, env.store, survey, 0)
			},
			wantCode: "survey_full",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestEnv(t)
			admin := testutil.CreateTestAdmin(t, env.store, "admin@example.com")
			survey := testutil.CreateTestSurvey(t, env.store, admin.ID, tc.opts)
			tc.setup(t, env, survey)

			w := env.getByToken(survey.PublicToken)
			testutil.AssertStatus(t, w, http.StatusGone)

			var resp models.ErrorResponse
			testutil.AssertJSON(t, w, &resp)
			if resp.Code != tc.wantCode {
				t.Errorf("Expected code %q, got %q", tc.wantCode, resp.Code)
			}
		})
	}
}

func TestGetSurveyByToken_ExpiresWhileCached(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateTestAdmin(t, env.store, "admin@example.com")
	survey := testutil.CreateTestSurvey(t, env.store, admin.ID, testutil.SurveyOptions{})

	testutil.AssertStatus(t, env.getByToken(survey.PublicToken), http.StatusOK)

	env.public.now = func() time.Time { return survey.ExpiresAt.Add(time.Second) }
	testutil.AssertStatus(t, env.getByToken(survey.PublicToken), http.StatusGone)
}

func TestGetSurveyByToken_RedisDown(t *testing.T) {
	env := setupTestEnv(t)
	admin := testutil.CreateTestAdmin(t, env.store, "admin@example.com")
	survey := testutil.CreateTestSurvey(t, env.store, admin.ID, testutil.SurveyOptions{})

	env.mr.Close()

	w := env.getByToken(survey.PublicToken)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.PublicSurveyResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Cached {
		t.Error("Expected an uncached response while Redis is down")
	}
	if resp.Survey.ID != survey.ID {
		t.Errorf("Expected survey %s, got %s", survey.ID, resp.Survey.ID)
	}
}
