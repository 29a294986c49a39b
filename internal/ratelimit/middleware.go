package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

// LimitedMessage is shown to customers who hit a limit.
const LimitedMessage = "Demasiadas solicitudes. Intenta nuevamente en unos segundos."

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// BySession keys requests by storefront session, falling back to the client
// IP for requests that reach the limiter before a session exists.
func BySession(scope string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, ok := common.SessionID(r.Context()); ok {
			return scope + ":session:" + id
		}
		return scope + ":ip:" + common.ClientIP(r)
	}
}

// Handler applies a Limiter to a route group.
type Handler struct {
	Limiter Limiter
	Config  Config
	// OnError observes limiter failures. The request is let through.
	OnError func(error)
}

func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Config.Key == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}
		setLimitHeaders(w.Header(), max(h.Config.Max, 0), d)
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(d.ResetAt, time.Now())))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", LimitedMessage, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func setLimitHeaders(h http.Header, limit int, d Decision) {
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

// retryAfter rounds up so clients never retry into the same window.
func retryAfter(resetAt, now time.Time) int {
	wait := resetAt.Sub(now)
	if wait <= 0 {
		return 0
	}
	return int(math.Ceil(wait.Seconds()))
}
