package auth

import (
	"log/slog"
	"net/http"
)

// Identity headers set by the API gateway after it has authenticated the
// caller. This service trusts them as given.
const (
	ActorIDHeader   = "X-Actor-Id"
	ActorNameHeader = "X-Actor-Name"
	ActorRoleHeader = "X-Actor-Role"
)

// Middleware creates an HTTP middleware that extracts the actor identity
// headers and injects an ActorContext into the request context.
//
// If no identity headers are present, the request proceeds without an actor
// context. Handlers decide whether that is acceptable for their endpoint:
// read endpoints are public, mutation endpoints use RequireActor.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := r.Header.Get(ActorIDHeader)
			if actorID == "" {
				slog.Debug("no actor identity header provided")
				next.ServeHTTP(w, r)
				return
			}

			actor := &ActorContext{
				ID:   actorID,
				Name: r.Header.Get(ActorNameHeader),
				Role: r.Header.Get(ActorRoleHeader),
			}
			next.ServeHTTP(w, r.WithContext(WithActorContext(r.Context(), actor)))
		})
	}
}

// RequireActor returns a middleware that rejects requests without an actor
// identity with 401 Unauthorized. Apply it to endpoints that mutate
// workflow state, where the audit trail needs a performer.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetActorContext(r.Context()) == nil {
			slog.Warn("actor identity required but not provided",
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"actor identity required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
