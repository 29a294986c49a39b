package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/pricing"
)

type fakeSource struct {
	calls    int
	products map[string]string
	err      error
}

func (f *fakeSource) Get(_ context.Context, path, _ string, out any) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	body, ok := f.products[path]
	if !ok {
		return &backend.Error{Status: http.StatusNotFound, Path: path}
	}
	return json.Unmarshal([]byte(body), out)
}

type productsResponse struct {
	Data []catalog.Product `json:"data"`
}

type productResponse struct {
	Data catalog.Product `json:"data"`
}

func newService(t *testing.T, src *fakeSource) *catalog.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Source: src,
		Cache:  catalog.NewCache(client, time.Minute),
		Prices: pricing.DefaultPolicy(),
	})
	require.NoError(t, err)
	return svc
}

func TestProductsMapsBackendAndCaches(t *testing.T) {
	src := &fakeSource{products: map[string]string{
		"/products": `[{"id":1,"name":"Colombia Huila","description":"Frutal","image":"/img/1.jpg","rating":4.9},{"id":2,"name":"Brasil","price":"$15,000"}]`,
	}}
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, src)})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		require.Equal(t, "1", resp.Data[0].ID)
		require.Equal(t, "12000", resp.Data[0].Price.String())
		require.Equal(t, 4.9, resp.Data[0].Rating)
		require.Equal(t, "15000", resp.Data[1].Price.String())
	}
	require.Equal(t, 1, src.calls, "second request should be served from cache")
}

func TestProductNotFound(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, &fakeSource{})})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "99")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	handler.Product(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestProductDetail(t *testing.T) {
	src := &fakeSource{products: map[string]string{
		"/products/3": `{"id":3,"name":"Etiopía","process":"Lavado"}`,
	}}
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, src)})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/3", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "3")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	rec := httptest.NewRecorder()
	handler.Product(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Lavado", resp.Data.Process)
	require.Equal(t, "12000", resp.Data.Price.String())
}

func TestProductsUpstreamFailure(t *testing.T) {
	src := &fakeSource{err: backend.ErrUnavailable}
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, src)})

	rec := httptest.NewRecorder()
	handler.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, rec.Body.String(), "Error al cargar los productos")
}
