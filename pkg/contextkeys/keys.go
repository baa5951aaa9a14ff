// Package contextkeys centralizes context key definitions so every package
// reads and writes request-scoped values through the same typed keys.
package contextkeys

import (
	"context"

	"github.com/corpauth/gateway/pkg/identity"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// PrincipalKey contains the resolved *identity.Principal.
	// Set by: middleware.Resolve, exactly once per request.
	PrincipalKey Key = "principal"

	// RequestIDKey contains the request ID string (UUID).
	// Set by: middleware.RequestID.
	RequestIDKey Key = "request_id"

	// SessionIDKey contains the server session ID backing this request's
	// principal, when the principal came from a session cookie.
	SessionIDKey Key = "session_id"

	// LoggerKey contains the request-scoped *observability.Logger.
	LoggerKey Key = "logger"
)

// WithPrincipal stores the resolved principal. Callers must not overwrite an
// existing principal; check Principal first.
func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// Principal retrieves the resolved principal, if any.
func Principal(ctx context.Context) (*identity.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*identity.Principal)
	return p, ok && p != nil
}

// WithRequestID stores the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID retrieves the request ID, or "" when unset.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithSessionID stores the backing server session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// SessionID retrieves the backing server session ID, or "" when unset.
func SessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(SessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}
