package session

import (
	"strings"
	"time"
)

// UserType distinguishes retail from wholesale accounts.
type UserType string

const (
	UserTypeRetail    UserType = "retail"
	UserTypeWholesale UserType = "wholesale"
)

// User is the storefront view of a backend account.
type User struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Phone     string   `json:"phone"`
	Address   string   `json:"address"`
	UserType  UserType `json:"userType"`
}

// IsWholesale reports whether the user buys wholesale.
func (u *User) IsWholesale() bool {
	return u != nil && u.UserType == UserTypeWholesale
}

// CanOrder reports whether the profile carries the contact data an order needs.
func (u *User) CanOrder() bool {
	return u != nil && strings.TrimSpace(u.Phone) != "" && strings.TrimSpace(u.Address) != ""
}

// Session is the per-visitor context: the signed-in user, if any, and the
// token used to call the backend on their behalf.
type Session struct {
	ID           string    `json:"id"`
	User         *User     `json:"user,omitempty"`
	BackendToken string    `json:"backendToken,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Authenticated reports whether a user is signed in.
func (s Session) Authenticated() bool {
	return s.User != nil && s.User.ID != ""
}

// SignOut drops the user and backend token, keeping the session id.
func (s *Session) SignOut() {
	s.User = nil
	s.BackendToken = ""
}
