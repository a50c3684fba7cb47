// Package recovery keeps one panicking handler from taking the sync service
// down.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/nbsync/nbsync/internal/api/respond"
)

// Middleware intercepts panics from downstream handlers, logs the stack, and
// returns the standard error body.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Str("service", "sync-service").
					Interface("panic", rec).
					Str("method", r.Method).
					Str("url", r.URL.String()).
					Str("remote", r.RemoteAddr).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				respond.WriteInternalError(w, "unexpected server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
