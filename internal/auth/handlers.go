package auth

import (
	"net/http"

	"github.com/noah-isme/cafe-storefront/internal/common"
)

// Handler exposes HTTP handlers for account endpoints.
type Handler struct {
	Service *Service
	Cookies Cookies
}

// Register handles POST /api/v1/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req RegisterInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	result, err := h.Service.Register(r.Context(), sessionID, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Cookies.Set(w, result.Token, result.ExpiresAt)
	common.JSON(w, http.StatusCreated, map[string]any{"data": result})
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	var req LoginInput
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	result, err := h.Service.Login(r.Context(), sessionID, req)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.Cookies.Set(w, result.Token, result.ExpiresAt)
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Logout handles POST /api/v1/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return
	}
	if sessionID, ok := common.SessionID(r.Context()); ok {
		if err := h.Service.Logout(r.Context(), sessionID); err != nil {
			common.WriteError(w, err)
			return
		}
	}
	h.Cookies.Clear(w)
	common.NoContent(w)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.ready(w, r)
	if !ok {
		return
	}
	user, err := h.Service.Me(r.Context(), sessionID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}

// Session handles GET /api/v1/auth/session: the visitor state the header needs.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"authenticated": sess.Authenticated(),
			"wholesale":     sess.User.IsWholesale(),
			"user":          sess.User,
		},
	})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "auth service not configured", nil)
		return "", false
	}
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "session required", nil)
		return "", false
	}
	return sessionID, true
}
