package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSessionContext(t *testing.T) {
	ctx := context.Background()
	_, ok := SessionID(ctx)
	require.False(t, ok)

	ctx = WithSessionID(ctx, "s-1")
	ctx = WithWholesale(ctx, true)
	id, ok := SessionID(ctx)
	require.True(t, ok)
	require.Equal(t, "s-1", id)
	require.True(t, IsWholesale(ctx))
	require.False(t, IsWholesale(context.Background()))
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	type form struct {
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone" validate:"required"`
	}
	err := ValidateStruct(form{Email: "nope"}, map[string]string{"phone": "Teléfono requerido"})
	require.Error(t, err)

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	fields := appErr.Details.(map[string]any)["fields"].(map[string]string)
	require.Equal(t, "Email inválido", fields["email"])
	require.Equal(t, "Teléfono requerido", fields["phone"])

	require.NoError(t, ValidateStruct(form{Email: "a@b.co", Phone: "1"}, nil))
}

func TestParsePageAndPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2&perPage=2", nil)
	page := ParsePage(req, 20, 100)
	require.Equal(t, []int{3, 4}, Paginate(items, &page))
	require.Equal(t, Page{Number: 2, PerPage: 2, TotalItems: 5}, page)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=9&perPage=500", nil)
	page = ParsePage(req, 20, 100)
	require.Equal(t, 20, page.PerPage)
	require.Empty(t, Paginate(items, &page))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	require.Equal(t, "10.0.0.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage, 10.0.0.9")
	require.Equal(t, "10.0.0.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 181.1.2.3 , 10.0.0.9")
	require.Equal(t, "181.1.2.3", ClientIP(req))
}

func TestIdempotencyMiddlewareRejectsReplay(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	calls := 0
	h := Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	send := func(session string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.Header.Set("Idempotency-Key", "k-1")
		req = req.WithContext(WithSessionID(req.Context(), session))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusCreated, send("s-1"))
	require.Equal(t, http.StatusConflict, send("s-1"))
	require.Equal(t, http.StatusCreated, send("s-2"))
	require.Equal(t, 2, calls)
}
