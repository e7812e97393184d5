// Package requesttime provides middleware that pins a single "now" per request.
// Streak cut-offs, response timestamps and audit events within one request all
// read the same instant through requestcontext.Now.
package requesttime

import (
	"net/http"
	"time"

	"escolinha/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context for consistent time references throughout the request.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock is Middleware with an injectable clock, used by handler tests
// that need a fixed "today".
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
