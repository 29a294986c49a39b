package obs

import (
	"context"
	"net/http"
)

type routePatternKey struct{}

type sessionSlotKey struct{}

// sessionSlot is filled in by the auth middleware, which runs inside the
// request logger and therefore cannot hand the id back through the context.
type sessionSlot struct{ id string }

// WithRoutePattern stores the matched router pattern on the context.
func WithRoutePattern(ctx context.Context, pattern string) context.Context {
	return context.WithValue(ctx, routePatternKey{}, pattern)
}

// RoutePatternFromContext returns the pattern stored by WithRoutePattern.
func RoutePatternFromContext(ctx context.Context) string {
	v, _ := ctx.Value(routePatternKey{}).(string)
	return v
}

func withSessionSlot(r *http.Request) (*http.Request, *sessionSlot) {
	slot := &sessionSlot{}
	return r.WithContext(context.WithValue(r.Context(), sessionSlotKey{}, slot)), slot
}

// NoteSession records the session id resolved further down the chain so the
// request log line can carry it.
func NoteSession(r *http.Request, sessionID string) {
	if slot, ok := r.Context().Value(sessionSlotKey{}).(*sessionSlot); ok {
		slot.id = sessionID
	}
}
