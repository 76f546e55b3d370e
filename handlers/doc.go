// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Flash Survey API.

# Handler Types

Each handler is a struct with its dependencies and the Config:

  - SurveyHandler: survey creation and the admin's survey list
  - PublicHandler: public survey view by token
  - ResponseHandler: response submission through the admission gate
  - AnalyticsHandler: per-option counts for the survey owner
  - HealthHandler: liveness and Redis health

Handlers are created via constructor functions. The durable store is passed
as a SurveyStore, which *db.Store implements:

	public := handlers.NewPublicHandler(store, cache, cfg)

# Survey Lifecycle

A survey accepts responses while it is active, unexpired and below its
response ceiling. A survey whose expires_at equals the current time is
expired. Closed surveys answer 410 with a reason code (survey_inactive,
survey_expired, survey_full).

	POST /surveys                    → CreateSurvey (admin)
	GET  /surveys                    → ListSurveys (admin)
	GET  /survey-by-token/{token}    → GetSurveyByToken
	GET  /survey-analytics/{surveyId} → GetSurveyAnalytics (admin, owner only)

Admin routes expect middleware.RequireAdmin to have put verified claims on
the request context.

# Submission Flow

	POST /submit-response → SubmitResponse

Steps, in order:

 1. decode and validate the body (400)
 2. find the survey by token (404) and check its state (410)
 3. check every required question is answered with a valid option (400)
 4. ask the admission gate (429 already_voted or quota_exceeded)
 5. recount submissions in the database (410 survey_full)
 6. insert all response rows in one transaction (500 on failure)
 7. commit the admission record, best effort
 8. 201 with the submission id and remaining slots

The voter identity is a salted hash of the client IP. When Redis is
unreachable the gate admits everyone and the response carries
degraded: true.

# Caching

Public views and analytics are cached in Redis by public token and survey
id. Entries are never invalidated on writes, so vote counts may lag by up
to the cache TTL. Survey state and expiry flags are evaluated on every
request, not taken from the cache.
*/
package handlers
