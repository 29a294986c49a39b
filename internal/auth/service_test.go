package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/auth"
	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/events"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

type fixture struct {
	service  *auth.Service
	sessions *session.Store
	closed   []string
	events   *recordingNotifier
	requests map[string]json.RawMessage
}

type recordingNotifier struct{ topics []string }

func (r *recordingNotifier) Notify(_ context.Context, ev events.Event) error {
	r.topics = append(r.topics, ev.Topic)
	return nil
}

const backendUser = `{"user":{"id":7,"email":"ana@example.com","first_name":"Ana","last_name":"Pérez","phone":"1155550000","user_type":"wholesale","address":{"street":"Av. Siempre Viva 742","city":"CABA","state":"Buenos Aires","postal_code":"1405","country":"Argentina","is_default":false}},"access_token":"backend-token","token_type":"bearer"}`

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{requests: make(map[string]json.RawMessage), events: &recordingNotifier{}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body json.RawMessage
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.requests[r.URL.Path] = body
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(string(body), "wrong") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Credenciales inválidas"}`))
			return
		}
		_, _ = w.Write([]byte(backendUser))
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f.sessions = session.NewStore(rdb, time.Hour)
	tokens, err := auth.NewTokens(auth.TokenConfig{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)
	f.service, err = auth.NewService(auth.Config{
		Backend:  backend.New(backend.Config{BaseURL: srv.URL, Logger: zerolog.Nop()}),
		Sessions: f.sessions,
		Tokens:   tokens,
		Bus:      &events.Bus{Notifiers: []events.Notifier{f.events}},
		OnClose:  func(id string) { f.closed = append(f.closed, id) },
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	return f
}

func TestLoginAttachesUserToSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, token, _, err := f.service.Start(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	result, err := f.service.Login(ctx, sess.ID, auth.LoginInput{Email: " ANA@example.com ", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, "7", result.User.ID)
	require.Equal(t, "Ana Pérez", result.User.Name)
	require.Equal(t, "Av. Siempre Viva 742, CABA, Buenos Aires, 1405", result.User.Address)
	require.Equal(t, session.UserTypeWholesale, result.User.UserType)
	require.JSONEq(t, `{"email":"ana@example.com","password":"secret"}`, string(f.requests["/user/login"]))

	resumed, err := f.service.Resume(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, sess.ID, resumed.ID)
	require.Equal(t, "backend-token", resumed.BackendToken)
	require.True(t, resumed.User.IsWholesale())
	require.Equal(t, []string{events.TopicSessionOpened}, f.events.topics)

	me, err := f.service.Me(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", me.Email)
}

func TestLoginValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Login(context.Background(), "s", auth.LoginInput{Email: "", Password: ""})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Equal(t, "Por favor completa todos los campos", appErr.Message)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Equal(t, "Ingresa un email válido", fields["email"])
	require.Equal(t, "Ingresa tu contraseña", fields["password"])
	require.Empty(t, f.requests)
}

func TestLoginBackendRejection(t *testing.T) {
	f := newFixture(t)
	sess, _, _, err := f.service.Start(context.Background())
	require.NoError(t, err)

	_, err = f.service.Login(context.Background(), sess.ID, auth.LoginInput{Email: "ana@example.com", Password: "wrong"})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
	require.Equal(t, "Credenciales inválidas", appErr.Message)

	loaded, err := f.sessions.Load(context.Background(), sess.ID)
	require.NoError(t, err)
	require.False(t, loaded.Authenticated())
}

func TestRegisterSplitsAddress(t *testing.T) {
	f := newFixture(t)
	sess, _, _, err := f.service.Start(context.Background())
	require.NoError(t, err)

	_, err = f.service.Register(context.Background(), sess.ID, auth.RegisterInput{
		Email:     "ana@example.com",
		Password:  "secret",
		FirstName: "Ana",
		LastName:  "Pérez",
		Phone:     "1155550000",
		Address:   "Av. Siempre Viva 742, CABA, Buenos Aires, 1405",
	})
	require.NoError(t, err)

	var sent backend.RegisterRequest
	require.NoError(t, json.Unmarshal(f.requests["/user/register"], &sent))
	require.Equal(t, "retail", sent.UserType)
	require.Equal(t, backend.Address{
		Street:     "Av. Siempre Viva 742",
		City:       "CABA",
		State:      "Buenos Aires",
		PostalCode: "1405",
		Country:    "Argentina",
	}, sent.Address)
}

func TestRegisterRequiresProfileFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Register(context.Background(), "s", auth.RegisterInput{Email: "ana@example.com", Password: "x"})
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr))
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Len(t, fields, 4)
	require.Equal(t, "Ingresa tu dirección", fields["address"])
}

func TestLogoutClearsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, token, _, err := f.service.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, sess.ID))
	require.Equal(t, []string{sess.ID}, f.closed)
	_, err = f.service.Resume(ctx, token)
	require.ErrorIs(t, err, session.ErrNotFound)
	require.Equal(t, []string{events.TopicSessionClosed}, f.events.topics)
}

func TestToUserDefaultsToRetail(t *testing.T) {
	u := auth.ToUser(backend.User{ID: "3", FirstName: "Juan", LastName: "Gómez", UserType: "RETAIL"})
	require.Equal(t, session.UserTypeRetail, u.UserType)
	require.Equal(t, "Juan Gómez", u.Name)
	require.Empty(t, u.Address)
}
