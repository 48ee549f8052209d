package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs each request with a generated request id, the response
// status and the handling duration.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()

			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(recorder, r)

			logger.Info("request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start),
			)
		})
	}
}

// RateLimit rejects requests beyond the limiter's budget with a 429 envelope.
// Used on the public embed routes, which carry no session and would otherwise
// proxy anonymous traffic straight to the upstream API.
func RateLimit(limiter *rate.Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				Failure(http.StatusTooManyRequests, "rate_limited", "too many requests").Write(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EmbedHeaders sets the cross-origin and caching headers required for widgets
// served inside third-party pages. Embeds are public by design, so the CORS
// policy is wide open and responses are cacheable for the given duration.
func EmbedHeaders(maxAge time.Duration) Middleware {
	cacheControl := fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Cache-Control", cacheControl)
			next.ServeHTTP(w, r)
		})
	}
}

// Recover converts a handler panic into a 500 envelope instead of tearing
// down the connection.
func Recover(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if logger != nil {
						logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
					}
					Failure(http.StatusInternalServerError, "internal_error", "internal server error").Write(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
