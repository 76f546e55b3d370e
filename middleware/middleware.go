// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/flash-survey/auth"
	"github.com/danielhkuo/flash-survey/metrics"
	"github.com/danielhkuo/flash-survey/models"
	"github.com/danielhkuo/flash-survey/ratelimit"
)

// FallbackIP identifies clients that arrive without any origin header
const FallbackIP = "127.0.0.1"

// Request bodies are small; anything larger is rejected while decoding
const maxBodyBytes = 64 << 10

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithLogging wraps a handler with request logging and latency metrics
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Log request
		slog.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
		)

		// Call the next handler
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		// Log completion
		duration := time.Since(start)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", duration.Milliseconds(),
		)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(duration.Seconds())
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// CodedErrorResponse writes a JSON error response with a stable reason code
func CodedErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    code,
	})
}

// RetryErrorResponse writes a rejection the client may retry after a delay.
// A zero delay omits Retry-After.
func RetryErrorResponse(w http.ResponseWriter, statusCode int, code, message string, retryAfter time.Duration) {
	secs := 0
	if retryAfter > 0 {
		secs = int(math.Ceil(retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:      http.StatusText(statusCode),
		Message:    message,
		Code:       code,
		RetryAfter: secs,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// CORS middleware allows cross-origin requests from the frontend
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, apikey, x-client-info")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP address
// Checks CF-Connecting-IP, X-Real-IP, then the first X-Forwarded-For entry,
// and falls back to FallbackIP
func GetClientIP(r *http.Request) string {
	// Set by the CDN, cannot be spoofed past it
	if ip := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}

	// Check X-Real-IP (nginx)
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	// Check X-Forwarded-For (load balancers), take first IP in chain
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	return FallbackIP
}

// RequireAdmin rejects requests without a valid admin bearer token and puts
// the verified claims on the request context
func RequireAdmin(secret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				CodedErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Missing authorization header")
				return
			}

			claims, err := auth.ParseAdminToken(token, secret)
			if err != nil {
				slog.Debug("admin token rejected", "error", err)
				CodedErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		}
	}
}

// WithRateLimit applies a per-IP limit and reports it in X-RateLimit-* headers
func WithRateLimit(limiter *ratelimit.Limiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := GetClientIP(r)
			res := limiter.Allow(r.Context(), ip)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				slog.Info("rate limit exceeded", "path", r.URL.Path)
				RetryErrorResponse(w, http.StatusTooManyRequests, "rate_limited",
					"Too many requests, please try again later", res.RetryAfter(time.Now()))
				return
			}

			next(w, r)
		}
	}
}
