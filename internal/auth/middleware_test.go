package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/auth"
	"github.com/noah-isme/cafe-storefront/internal/common"
)

func TestAuthenticateStartsAnonymousSession(t *testing.T) {
	f := newFixture(t)
	mw := auth.Middleware{Service: f.service, Logger: zerolog.Nop()}

	var seen string
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = common.SessionID(r.Context())
		require.False(t, common.IsWholesale(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, auth.DefaultCookieName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	// The cookie resumes the same session without issuing a new one.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	first := seen
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, first, seen)
	require.Empty(t, rec.Result().Cookies())
}

func TestAuthenticateReplacesInvalidToken(t *testing.T) {
	f := newFixture(t)
	mw := auth.Middleware{Service: f.service, Logger: zerolog.Nop()}
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := common.SessionID(r.Context())
		require.True(t, ok)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	mw := auth.Middleware{Service: f.service, Logger: zerolog.Nop()}
	protected := mw.Authenticate(mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := common.UserID(r.Context())
		require.True(t, ok)
		require.Equal(t, "7", userID)
		require.True(t, common.IsWholesale(r.Context()))
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	sess, _, _, err := f.service.Start(t.Context())
	require.NoError(t, err)
	result, err := f.service.Login(t.Context(), sess.ID, auth.LoginInput{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
