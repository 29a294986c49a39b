package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName carries the session token.
const DefaultCookieName = "storefront_session"

// Cookies writes the HttpOnly session cookie.
type Cookies struct {
	Name     string
	Domain   string
	Secure   bool
	SameSite http.SameSite
}

func (c Cookies) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Set stores token until expires.
func (c Cookies) Set(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Domain:   c.Domain,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Clear expires the cookie.
func (c Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Domain:   c.Domain,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// Read returns the token stored in the request cookie.
func (c Cookies) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
