package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/rs/zerolog/log"

	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/auth"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/orchestrator"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/ratelimit"
	"github.com/Admirable-humour/hcl-ai-buildathon-2026/internal/requestctx"
)

// APIKeyHeader carries the caller's key. Authorization: Bearer is also
// accepted.
const APIKeyHeader = "X-API-Key"

// AuthMiddleware rejects requests without a key (401) or with a key the
// verifier refuses (403), before any handler runs. Accepted requests carry
// the caller label in their context.
func AuthMiddleware(v auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if key == "" {
				if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
					key = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
				}
			}
			if key == "" {
				writeError(w, http.StatusUnauthorized, &orchestrator.AuthError{Missing: true})
				return
			}
			if v == nil || !v.Verify(r.Context(), key) {
				log.Warn().Str("remote_addr", r.RemoteAddr).Str("path", r.URL.Path).Msg("api_key_rejected")
				writeError(w, http.StatusForbidden, &orchestrator.AuthError{})
				return
			}
			next.ServeHTTP(w, r.WithContext(requestctx.WithCaller(r.Context(), auth.CallerID(key))))
		})
	}
}

// CallerRateLimit answers 429 when the caller's token bucket is empty. A nil
// limiter disables it.
func CallerRateLimit(l *ratelimit.CallerLimiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := requestctx.Caller(r.Context())
			if !l.Allow(caller) {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, http.StatusTooManyRequests, orchestrator.Response{
					Status: orchestrator.StatusError,
					Error:  "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPRateLimit limits requests per client IP with a sliding window.
func IPRateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, orchestrator.Response{
				Status: orchestrator.StatusError,
				Error:  "too many requests",
			})
		}),
	)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the error body shared by every route.
func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, orchestrator.Response{Status: orchestrator.StatusError, Error: err.Error()})
}
