package order

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

// Handler exposes the purchase and order history endpoints.
type Handler struct {
	Service *Service
}

// Summary handles GET /api/v1/orders/summary.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	sum, err := h.Service.Summary(r.Context(), sessionID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": sum})
}

// Place handles POST /api/v1/orders.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	placed, err := h.Service.Place(r.Context(), sessionID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": placed})
}

// List handles GET /api/v1/orders?page=&perPage=. The backend returns the
// full history; paging happens here.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	orders, err := h.Service.History(r.Context(), sessionID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	page := common.ParsePage(r, 20, 100)
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       common.Paginate(orders, &page),
		"pagination": page,
	})
}

// Get handles GET /api/v1/orders/{orderID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	detail, err := h.Service.Detail(r.Context(), sessionID, chi.URLParam(r, "orderID"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": detail})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return "", false
	}
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return "", false
	}
	return sessionID, true
}
