package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/obs"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

type sessionCtxKey struct{}

// SessionFrom returns the session attached by Middleware.Authenticate.
func SessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionCtxKey{}).(session.Session)
	return sess, ok
}

// WithSession attaches sess and its derived identifiers to ctx.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	ctx = context.WithValue(ctx, sessionCtxKey{}, sess)
	ctx = common.WithSessionID(ctx, sess.ID)
	ctx = common.WithWholesale(ctx, sess.User.IsWholesale())
	if sess.Authenticated() {
		ctx = common.WithUserID(ctx, sess.User.ID)
	}
	return ctx
}

// SessionTokenHeader carries a freshly issued anonymous session token for
// clients that do not keep cookies.
const SessionTokenHeader = "X-Session-Token"

// Middleware resolves storefront sessions.
type Middleware struct {
	Service *Service
	Cookies Cookies
	Logger  zerolog.Logger
}

// Authenticate attaches the visitor's session to the request context. Visitors
// without a valid token get a fresh anonymous session and cookie.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Service == nil {
			next.ServeHTTP(w, r)
			return
		}
		if token := m.extractToken(r); token != "" {
			sess, err := m.Service.Resume(r.Context(), token)
			if err == nil {
				obs.AnnotateSession(r, sess.ID, sess.User.IsWholesale())
				next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
				return
			}
			if !errors.Is(err, session.ErrNotFound) && !common.IsAppError(err) {
				m.Logger.Warn().Err(err).Msg("session lookup failed")
			}
		}
		sess, token, exp, err := m.Service.Start(r.Context())
		if err != nil {
			m.Logger.Error().Err(err).Msg("start session")
			next.ServeHTTP(w, r)
			return
		}
		m.Cookies.Set(w, token, exp)
		w.Header().Set(SessionTokenHeader, token)
		obs.AnnotateSession(r, sess.ID, false)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequireAuth enforces a signed-in user before executing the next handler.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFrom(r.Context())
		if !ok || !sess.Authenticated() {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Inicia sesión para continuar", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return m.Cookies.Read(r)
}
