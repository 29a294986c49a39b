package user

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/geocode"
)

// Suggester returns debounced address lookups keyed by caller.
type Suggester interface {
	Search(ctx context.Context, key, query string) ([]geocode.Result, error)
}

// Suggestion is one address proposal for the checkout form.
type Suggestion struct {
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	Address   backend.Address `json:"address"`
	Formatted string          `json:"formatted"`
}

// Handler exposes profile and address endpoints.
type Handler struct {
	Service   *Service
	Suggester Suggester
}

// UpdateMe handles PATCH /api/v1/users/me.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "profile service not configured", nil)
		return
	}
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return
	}
	var req ProfileUpdate
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	user, notice, err := h.Service.UpdateProfile(r.Context(), sessionID, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": user, "notice": notice}})
}

// Suggest handles GET /api/v1/addresses/suggest?q=. A request replaced by a
// newer one from the same visitor answers 204.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.Suggester == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "address lookup not configured", nil)
		return
	}
	key, ok := common.SessionID(r.Context())
	if !ok {
		key = common.ClientIP(r)
	}
	results, err := h.Suggester.Search(r.Context(), key, r.URL.Query().Get("q"))
	switch {
	case errors.Is(err, geocode.ErrSuperseded), errors.Is(err, context.Canceled):
		common.NoContent(w)
		return
	case err != nil:
		common.JSONError(w, http.StatusBadGateway, "GEOCODER_UNAVAILABLE", "No se pudieron obtener sugerencias de dirección", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toSuggestions(results)})
}

func toSuggestions(results []geocode.Result) []Suggestion {
	out := make([]Suggestion, 0, len(results))
	for _, res := range results {
		addr := geocode.ToAddress(res)
		out = append(out, Suggestion{
			ID:        strconv.FormatInt(res.PlaceID, 10),
			Label:     res.DisplayName,
			Address:   addr,
			Formatted: addr.Format(),
		})
	}
	return out
}
