package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/backend"
)

func TestClientSendsJSONAndBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/user/login", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var payload backend.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "ana@example.com", payload.Email)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"user":{"id":7,"email":"ana@example.com","first_name":"Ana","last_name":"Paz","user_type":"retail"},"access_token":"abc"}`)
	}))
	defer srv.Close()

	client := backend.New(backend.Config{BaseURL: srv.URL + "/"})
	var resp backend.AuthResponse
	err := client.Post(context.Background(), "/user/login", "tok", backend.LoginRequest{Email: "ana@example.com", Password: "x"}, &resp)
	require.NoError(t, err)
	require.Equal(t, backend.ID("7"), resp.User.ID)
	require.Equal(t, "abc", resp.AccessToken)
}

func TestClientUsesDetailMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Credenciales inválidas"}`)
	}))
	defer srv.Close()

	client := backend.New(backend.Config{BaseURL: srv.URL})
	err := client.Get(context.Background(), "/products", "", nil)
	require.EqualError(t, err, "Credenciales inválidas")
	require.True(t, backend.IsStatus(err, http.StatusUnauthorized))
}

func TestClientFallsBackToStatusMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	client := backend.New(backend.Config{BaseURL: srv.URL})
	err := client.Get(context.Background(), "/products/9", "", nil)
	require.EqualError(t, err, "HTTP error! status: 404")
}

func TestClientJoinsValidationDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":[{"msg":"field required"},{"msg":"invalid email"}]}`)
	}))
	defer srv.Close()

	client := backend.New(backend.Config{BaseURL: srv.URL})
	err := client.Post(context.Background(), "/user/register", "", map[string]string{}, nil)
	require.EqualError(t, err, "field required; invalid email")
}

func TestClientUnreachable(t *testing.T) {
	client := backend.New(backend.Config{BaseURL: "http://127.0.0.1:1"})
	err := client.Get(context.Background(), "/products", "", nil)
	require.True(t, errors.Is(err, backend.ErrUnavailable))
}

func TestProductRawPrice(t *testing.T) {
	var products []backend.Product
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1},{"id":"2","price":"$9,500"},{"id":3,"price":14000}]`), &products))
	require.Nil(t, products[0].RawPrice())
	require.Equal(t, "$9,500", products[1].RawPrice())
	require.Equal(t, json.Number("14000"), products[2].RawPrice())
	require.Equal(t, backend.ID("2"), products[1].ID)
}
