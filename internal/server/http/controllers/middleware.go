package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/NylonDiamond/wrist-assistant-hacs/internal/auth"
	logpkg "github.com/NylonDiamond/wrist-assistant-hacs/pkg/log"
)

type contextKey int

const principalKey contextKey = iota

// middleware wraps a handler with a cross-cutting concern.
type middleware func(http.HandlerFunc) http.HandlerFunc

// RequestID tags every request with an X-Request-ID, preserving one the
// client already sent.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
			r.Header.Set("X-Request-ID", rid)
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// requireAuth rejects requests the verifier does not accept and stores the
// principal in the request context.
func requireAuth(v auth.Verifier, logger logpkg.Logger) middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, err := v.Verify(r)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					logger.Warn("verifier error", logpkg.Err(err))
				}
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
		}
	}
}

// principalFrom returns the authenticated principal, if any.
func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey).(auth.Principal)
	return p, ok
}
