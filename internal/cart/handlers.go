package cart

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/cafe-storefront/internal/catalog"
	"github.com/noah-isme/cafe-storefront/internal/common"
)

// ProductFinder resolves catalog products by id.
type ProductFinder interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

// Handler wires session carts to HTTP.
type Handler struct {
	Carts    *Registry
	Products ProductFinder
}

// Get returns the cart with its groups, totals and count.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": store.View()})
}

// Count returns only the package count shown in the header badge.
func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"count": store.Count()}})
}

// AddItem adds a configured product to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if h.Products == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "product lookup not configured", nil)
		return
	}
	var payload AddItemRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	grind, sel, err := payload.Selection(common.IsWholesale(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	product, err := h.Products.GetProduct(r.Context(), payload.ProductID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	change, err := store.Add(r.Context(), product, grind, sel)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{
			"change": change,
			"cart":   store.View(),
		},
	})
}

// RemoveRow removes a presentation row addressed by its ref.
func (h *Handler) RemoveRow(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	ref, err := ParseRowRef(chi.URLParam(r, "ref"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid row id", nil)
		return
	}
	change, err := store.Remove(r.Context(), ref)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"change": change,
			"cart":   store.View(),
		},
	})
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	change := store.Clear(r.Context())
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"change": change}})
}

func (h *Handler) store(w http.ResponseWriter, r *http.Request) (*Store, bool) {
	if h.Carts == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart registry not configured", nil)
		return nil, false
	}
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return nil, false
	}
	return h.Carts.Get(sessionID), true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if err == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unknown error", nil)
		return
	}
	if common.WriteAppError(w, err) {
		return
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}
