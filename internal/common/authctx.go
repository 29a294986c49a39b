package common

import "context"

type ctxKey string

const (
	userIDKey    ctxKey = "auth/user-id"
	sessionIDKey ctxKey = "auth/session-id"
	wholesaleKey ctxKey = "auth/wholesale"
)

// WithUserID stores the authenticated user identifier on the provided context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID extracts the authenticated user identifier from the context if present.
func UserID(ctx context.Context) (string, bool) {
	v := ctx.Value(userIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// WithSessionID stores the storefront session identifier on the context.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// SessionID extracts the storefront session identifier from the context if present.
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// WithWholesale marks the acting customer as a wholesale account.
func WithWholesale(ctx context.Context, wholesale bool) context.Context {
	return context.WithValue(ctx, wholesaleKey, wholesale)
}

// IsWholesale reports whether the acting customer buys wholesale.
func IsWholesale(ctx context.Context) bool {
	v, _ := ctx.Value(wholesaleKey).(bool)
	return v
}
