package security

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

const (
	DefaultCSRFCookie = "storefront_csrf"
	DefaultCSRFHeader = "X-CSRF-Token"
)

// CSRF protects cookie sessions with the double-submit technique. Requests
// authenticated by a bearer token, or carrying no session cookie at all,
// cannot be forged through the browser and pass unchecked.
type CSRF struct {
	Enabled       bool
	Cookie        string
	Header        string
	SessionCookie string
	Secure        bool
	Domain        string
}

func (c CSRF) cookieName() string {
	if c.Cookie == "" {
		return DefaultCSRFCookie
	}
	return c.Cookie
}

func (c CSRF) headerName() string {
	if c.Header == "" {
		return DefaultCSRFHeader
	}
	return c.Header
}

// Middleware enforces that unsafe requests echo the CSRF cookie in a header.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.Enabled || safeMethod(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Authorization"))), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}
		if c.SessionCookie != "" {
			if _, err := r.Cookie(c.SessionCookie); err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		token := strings.TrimSpace(r.Header.Get(c.headerName()))
		if token == "" {
			forbidden(w, "missing csrf token")
			return
		}
		cookie, err := r.Cookie(c.cookieName())
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			forbidden(w, "missing csrf cookie")
			return
		}
		if !constantTimeEqual(token, cookie.Value) {
			forbidden(w, "invalid csrf token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Issue handles GET /api/v1/auth/csrf: it sets a fresh token cookie readable
// by the storefront script and returns the same token.
func (c CSRF) Issue(w http.ResponseWriter, _ *http.Request) {
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName(),
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  time.Now().Add(24 * time.Hour),
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	})
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": token, "header": c.headerName()}})
}

func safeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func forbidden(w http.ResponseWriter, message string) {
	common.JSONError(w, http.StatusForbidden, "CSRF_REJECTED", message, nil)
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
