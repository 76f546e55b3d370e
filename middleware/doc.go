// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start at debug level and completion (status, duration_ms) at
info level. Each request is also observed in the request duration histogram,
labelled by route pattern rather than raw path.

# CORS Middleware

Enable cross-origin requests for the survey frontend:

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, OPTIONS with headers
Content-Type, Authorization, apikey, x-client-info.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.CodedErrorResponse(w, http.StatusGone, "survey_expired", "Survey has expired")
	middleware.RetryErrorResponse(w, http.StatusTooManyRequests, "already_voted", "...", retryAfter)

Decode and validate request bodies in one step. On failure a 400 response
with per-field messages has already been written:

	var req models.SubmitResponseRequest
	if err := middleware.DecodeAndValidate(w, r, &req); err != nil {
		return
	}

# Client IP Extraction

Get the original client IP (CF-Connecting-IP, X-Real-IP, then the first
X-Forwarded-For entry):

	ip := middleware.GetClientIP(r)

Requests carrying none of these share FallbackIP. The IP is only ever
stored as a salted hash.

# Admin Authentication

	mux.HandleFunc("GET /surveys", middleware.RequireAdmin(secret)(handler))

Verified claims are available through auth.ClaimsFromContext.

# Rate Limiting

	mux.HandleFunc("POST /submit-response", middleware.WithRateLimit(limiter)(handler))

Sets X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset, and
answers 429 with Retry-After once the window is exhausted.
*/
package middleware
