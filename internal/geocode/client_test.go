package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchQueryParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "Av. Corrientes 1234", q.Get("q"))
		require.Equal(t, "json", q.Get("format"))
		require.Equal(t, "1", q.Get("addressdetails"))
		require.Equal(t, "5", q.Get("limit"))
		require.Equal(t, "ar", q.Get("countrycodes"))
		require.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"place_id":42,"display_name":"Avenida Corrientes 1234, Buenos Aires","address":{"road":"Avenida Corrientes","house_number":"1234","city":"Buenos Aires","state":"CABA","postcode":"C1043","country":"Argentina"}}]`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	results, err := c.Search(context.Background(), "Av. Corrientes 1234")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(42), results[0].PlaceID)
	require.Equal(t, "Avenida Corrientes", results[0].Address.Road)
}

func TestSearchUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(Config{BaseURL: srv.URL}).Search(context.Background(), "Rosario")
	require.ErrorContains(t, err, "status 429")
}

func TestToAddress(t *testing.T) {
	addr := ToAddress(Result{Address: Details{
		Road:        "San Martín",
		HouseNumber: "55",
		Town:        "Tandil",
		State:       "Buenos Aires",
		Postcode:    "7000",
	}})
	require.Equal(t, "San Martín 55", addr.Street)
	require.Equal(t, "Tandil", addr.City)
	require.Equal(t, "Buenos Aires", addr.State)
	require.Equal(t, "7000", addr.PostalCode)
	require.Equal(t, "Argentina", addr.Country)

	village := ToAddress(Result{Address: Details{HouseNumber: "9", Village: "Villa Ventana", Country: "Argentina"}})
	require.Equal(t, "9", village.Street)
	require.Equal(t, "Villa Ventana", village.City)

	city := ToAddress(Result{Address: Details{City: "Córdoba", Town: "ignored"}})
	require.Equal(t, "Córdoba", city.City)
	require.Empty(t, city.Street)
}
