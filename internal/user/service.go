// Package user manages the signed-in customer's contact details.
package user

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/auth"
	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

var (
	errSignInRequired = common.NewAppError("UNAUTHORIZED", "Inicia sesión para continuar", http.StatusUnauthorized, nil)
	errNothingToApply = common.ValidationError("No hay cambios para guardar", nil)
)

// Backend is the subset of the backend client the profile service needs.
type Backend interface {
	Put(ctx context.Context, path, token string, body, out any) error
}

// ProfileUpdate carries the fields a customer may edit. Empty fields are kept.
type ProfileUpdate struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	// Address is free-form "street, city, state, postal code".
	Address string `json:"address"`
}

func (p ProfileUpdate) trimmed() ProfileUpdate {
	return ProfileUpdate{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Phone:     strings.TrimSpace(p.Phone),
		Address:   strings.TrimSpace(p.Address),
	}
}

func (p ProfileUpdate) request() (backend.UpdateUserRequest, bool) {
	req := backend.UpdateUserRequest{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
	}
	if p.Address != "" {
		addr := backend.ParseAddress(p.Address)
		req.Address = &addr
	}
	empty := req.FirstName == "" && req.LastName == "" && req.Phone == "" && req.Address == nil
	return req, !empty
}

// Notice is the confirmation shown after a profile change.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func noticeFor(p ProfileUpdate) Notice {
	switch {
	case p.Phone != "" && p.Address == "" && p.FirstName == "" && p.LastName == "":
		return Notice{Title: "Teléfono actualizado", Description: "Tu número de teléfono ha sido actualizado correctamente."}
	case p.Address != "" && p.Phone == "" && p.FirstName == "" && p.LastName == "":
		return Notice{Title: "Dirección actualizada", Description: "Tu dirección ha sido actualizada correctamente."}
	default:
		return Notice{Title: "Perfil actualizado", Description: "Tus datos fueron actualizados correctamente."}
	}
}

func failureMessage(p ProfileUpdate) string {
	switch {
	case p.Phone != "" && p.Address == "":
		return "No se pudo actualizar el teléfono."
	case p.Address != "" && p.Phone == "":
		return "No se pudo actualizar la dirección."
	default:
		return "No se pudieron actualizar tus datos."
	}
}

// Service updates profiles on the backend and mirrors them into the session.
type Service struct {
	Backend  Backend
	Sessions *session.Store
	Logger   zerolog.Logger
}

// UpdateProfile sends the non-empty fields to the backend and rewrites the
// session user with the backend's answer.
func (s *Service) UpdateProfile(ctx context.Context, sessionID string, in ProfileUpdate) (session.User, Notice, error) {
	in = in.trimmed()
	req, ok := in.request()
	if !ok {
		return session.User{}, Notice{}, errNothingToApply
	}

	sess, err := s.Sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.User{}, Notice{}, errSignInRequired
		}
		return session.User{}, Notice{}, err
	}
	if !sess.Authenticated() {
		return session.User{}, Notice{}, errSignInRequired
	}

	var resp backend.AuthResponse
	path := "/user/" + url.PathEscape(sess.User.ID)
	if err := s.Backend.Put(ctx, path, sess.BackendToken, req, &resp); err != nil {
		s.Logger.Error().Err(err).Str("session_id", sessionID).Str("user_id", sess.User.ID).Msg("profile update failed")
		status := http.StatusBadGateway
		if backend.IsStatus(err, http.StatusUnauthorized) {
			status = http.StatusUnauthorized
		}
		return session.User{}, Notice{}, common.NewAppError("PROFILE_UPDATE_FAILED", failureMessage(in), status, err)
	}

	user := auth.ToUser(resp.User)
	if user.ID == "" {
		// Some backend versions answer with an empty body; keep what we know.
		user = mergeProfile(*sess.User, in, req.Address)
	}
	if _, err := s.Sessions.Update(ctx, sessionID, func(current *session.Session) error {
		current.User = &user
		return nil
	}); err != nil {
		return session.User{}, Notice{}, err
	}
	s.Logger.Info().Str("session_id", sessionID).Str("user_id", user.ID).Msg("profile updated")
	return user, noticeFor(in), nil
}

func mergeProfile(u session.User, in ProfileUpdate, addr *backend.Address) session.User {
	if in.FirstName != "" {
		u.FirstName = in.FirstName
	}
	if in.LastName != "" {
		u.LastName = in.LastName
	}
	if in.FirstName != "" || in.LastName != "" {
		u.Name = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	if in.Phone != "" {
		u.Phone = in.Phone
	}
	if addr != nil {
		u.Address = addr.Format()
	}
	return u
}
