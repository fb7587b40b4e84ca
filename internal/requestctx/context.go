// Package requestctx carries request-scoped values set by HTTP middleware.
package requestctx

import "context"

type contextKey int

const (
	callerKey contextKey = iota
	sessionKey
)

// WithCaller stores the authenticated caller label.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// Caller returns the caller label, or "" when the request was not
// authenticated.
func Caller(ctx context.Context) string {
	v, _ := ctx.Value(callerKey).(string)
	return v
}

// WithSessionID stores the session a request addresses.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey, id)
}

// SessionID returns the session id, or "".
func SessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey).(string)
	return v
}
