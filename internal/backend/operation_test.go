package backend

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOperationGroupsByFirstSegment(t *testing.T) {
	for path, want := range map[string]string{
		"/users/42/orders": "GET /users",
		"/products":        "GET /products",
		"/":                "GET /",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		require.Equal(t, want, operation(req), path)
	}
}
