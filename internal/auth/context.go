package auth

import (
	"context"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ActorContextKey is the key for storing ActorContext in request context
	ActorContextKey ContextKey = "actorContext"
)

// ActorContext identifies who is driving a workflow operation. It is
// supplied by the identity middleware and trusted as given by the engine;
// role enforcement beyond guard conditions happens upstream of this service.
type ActorContext struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// GetActorContext extracts the ActorContext from a request context.
// Returns nil if no actor context is available.
//
// Usage in handlers:
//
//	actor := auth.GetActorContext(r.Context())
//	if actor == nil {
//	    // Handle unauthenticated request
//	}
func GetActorContext(ctx context.Context) *ActorContext {
	actor, ok := ctx.Value(ActorContextKey).(*ActorContext)
	if !ok {
		return nil
	}
	return actor
}

// WithActorContext returns a context carrying the given actor. Used by the
// middleware and by tests that bypass HTTP.
func WithActorContext(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, ActorContextKey, actor)
}
