// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them without
// importing net/http.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	role := requestcontext.Role(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithActor(ctx, actorID, domain.RoleStudent)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"

	"transferdesk/pkg/domain"
)

type (
	actorIDKey     struct{}
	actorRoleKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// ActorID retrieves the authenticated actor ID from the context.
// Returns the zero value if not set.
func ActorID(ctx context.Context) domain.ActorID {
	if id, ok := ctx.Value(actorIDKey{}).(domain.ActorID); ok {
		return id
	}
	return domain.ActorID{}
}

// Role retrieves the authenticated actor's role from the context.
// Returns the empty role if not set.
func Role(ctx context.Context) domain.ActorRole {
	if role, ok := ctx.Value(actorRoleKey{}).(domain.ActorRole); ok {
		return role
	}
	return ""
}

// WithActor injects the acting identity into the context.
func WithActor(ctx context.Context, id domain.ActorID, role domain.ActorRole) context.Context {
	ctx = context.WithValue(ctx, actorIDKey{}, id)
	return context.WithValue(ctx, actorRoleKey{}, role)
}

// RequestID retrieves the correlation ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a correlation ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context. Falls back to
// time.Now() for non-HTTP contexts such as workers and tests that don't
// inject one.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. All timestamps stamped
// within one request share this instant, which also makes service tests
// deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
