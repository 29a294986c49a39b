package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cafe-storefront/internal/backend"
	"github.com/noah-isme/cafe-storefront/internal/common"
	"github.com/noah-isme/cafe-storefront/internal/events"
	"github.com/noah-isme/cafe-storefront/internal/session"
)

const authFailedMessage = "Error en la autenticación. Intenta nuevamente."

// Backend is the subset of the backend client used for account calls.
type Backend interface {
	Post(ctx context.Context, path, token string, body, out any) error
}

// Service signs customers in and out of storefront sessions.
type Service struct {
	backend  Backend
	sessions *session.Store
	tokens   *Tokens
	bus      *events.Bus
	onClose  func(sessionID string)
	logger   zerolog.Logger
}

// Config configures the auth service.
type Config struct {
	Backend  Backend
	Sessions *session.Store
	Tokens   *Tokens
	Bus      *events.Bus
	// OnClose runs after a session is cleared, e.g. to drop its cart.
	OnClose func(sessionID string)
	Logger  zerolog.Logger
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterInput is the registration form. Address is free-form
// "street, city, state, postal code".
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Address   string `json:"address" validate:"required"`
	UserType  string `json:"userType" validate:"omitempty,oneof=retail wholesale"`
}

// Result is returned after a successful login or registration.
type Result struct {
	User      session.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

var formMessages = map[string]string{
	"email":     "Ingresa un email válido",
	"password":  "Ingresa tu contraseña",
	"firstName": "Ingresa tu nombre",
	"lastName":  "Ingresa tu apellido",
	"phone":     "Ingresa tu teléfono",
	"address":   "Ingresa tu dirección",
}

// NewService constructs a Service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Backend == nil {
		return nil, errors.New("auth: backend is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	if cfg.Tokens == nil {
		return nil, errors.New("auth: tokens are required")
	}
	return &Service{
		backend:  cfg.Backend,
		sessions: cfg.Sessions,
		tokens:   cfg.Tokens,
		bus:      cfg.Bus,
		onClose:  cfg.OnClose,
		logger:   cfg.Logger,
	}, nil
}

// Tokens exposes the token issuer.
func (s *Service) Tokens() *Tokens { return s.tokens }

// Start opens an anonymous session and signs a token for it.
func (s *Service) Start(ctx context.Context) (session.Session, string, time.Time, error) {
	sess, err := s.sessions.New(ctx)
	if err != nil {
		return session.Session{}, "", time.Time{}, err
	}
	token, exp, err := s.tokens.Sign(sess.ID)
	if err != nil {
		return session.Session{}, "", time.Time{}, err
	}
	return sess, token, exp, nil
}

// Resume returns the session referenced by token.
func (s *Service) Resume(ctx context.Context, token string) (session.Session, error) {
	id, err := s.tokens.Parse(token)
	if err != nil {
		return session.Session{}, err
	}
	return s.sessions.Load(ctx, id)
}

// Login verifies the credentials against the backend and attaches the user
// to the session. The session id, and with it the cart, is kept.
func (s *Service) Login(ctx context.Context, sessionID string, in LoginInput) (Result, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := common.ValidateStruct(in, formMessages); err != nil {
		return Result{}, err
	}
	var resp backend.AuthResponse
	err := s.backend.Post(ctx, "/user/login", "", backend.LoginRequest{Email: in.Email, Password: in.Password}, &resp)
	if err != nil {
		return Result{}, s.backendError(err, "login")
	}
	return s.attach(ctx, sessionID, resp)
}

// Register creates the account on the backend and signs the customer in.
func (s *Service) Register(ctx context.Context, sessionID string, in RegisterInput) (Result, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	if err := common.ValidateStruct(in, formMessages); err != nil {
		return Result{}, err
	}
	userType := in.UserType
	if userType == "" {
		userType = string(session.UserTypeRetail)
	}
	req := backend.RegisterRequest{
		Email:     in.Email,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     strings.TrimSpace(in.Phone),
		UserType:  userType,
		Address:   backend.ParseAddress(in.Address),
		Password:  in.Password,
	}
	var resp backend.AuthResponse
	if err := s.backend.Post(ctx, "/user/register", "", req, &resp); err != nil {
		return Result{}, s.backendError(err, "register")
	}
	return s.attach(ctx, sessionID, resp)
}

// Logout clears the session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	if s.onClose != nil {
		s.onClose(sessionID)
	}
	s.emit(ctx, events.TopicSessionClosed, sessionID, map[string]any{"sessionId": sessionID})
	s.logger.Info().Str("session_id", sessionID).Msg("session closed")
	return nil
}

// Me returns the signed-in user of the session.
func (s *Service) Me(ctx context.Context, sessionID string) (session.User, error) {
	sess, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return session.User{}, common.NewAppError("UNAUTHORIZED", "Inicia sesión para continuar", http.StatusUnauthorized, err)
		}
		return session.User{}, err
	}
	if !sess.Authenticated() {
		return session.User{}, common.NewAppError("UNAUTHORIZED", "Inicia sesión para continuar", http.StatusUnauthorized, nil)
	}
	return *sess.User, nil
}

func (s *Service) attach(ctx context.Context, sessionID string, resp backend.AuthResponse) (Result, error) {
	user := ToUser(resp.User)
	_, err := s.sessions.Update(ctx, sessionID, func(sess *session.Session) error {
		sess.User = &user
		sess.BackendToken = resp.AccessToken
		return nil
	})
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return Result{}, common.NewAppError("SESSION_EXPIRED", "Tu sesión expiró. Recarga la página.", http.StatusUnauthorized, err)
		}
		return Result{}, err
	}
	token, exp, err := s.tokens.Sign(sessionID)
	if err != nil {
		return Result{}, err
	}
	s.emit(ctx, events.TopicSessionOpened, sessionID, map[string]any{
		"sessionId": sessionID,
		"userId":    user.ID,
		"userType":  user.UserType,
	})
	s.logger.Info().Str("session_id", sessionID).Str("user_id", user.ID).Str("user_type", string(user.UserType)).Msg("customer signed in")
	return Result{User: user, Token: token, ExpiresAt: exp}, nil
}

func (s *Service) backendError(err error, op string) error {
	var be *backend.Error
	if errors.As(err, &be) && be.Status < http.StatusInternalServerError {
		status := be.Status
		if op == "login" || status == 0 {
			status = http.StatusUnauthorized
		}
		return common.NewAppError("AUTH_FAILED", be.Error(), status, err)
	}
	s.logger.Error().Err(err).Str("op", op).Msg("backend auth call failed")
	return common.NewAppError("UPSTREAM_ERROR", authFailedMessage, http.StatusBadGateway, err)
}

func (s *Service) emit(ctx context.Context, topic, key string, payload any) {
	if s.bus == nil {
		return
	}
	if _, err := s.bus.Emit(ctx, topic, key, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Msg("event fanout failed")
	}
}

// ToUser converts the backend account into the storefront profile.
func ToUser(u backend.User) session.User {
	userType := session.UserTypeRetail
	if strings.EqualFold(strings.TrimSpace(u.UserType), string(session.UserTypeWholesale)) {
		userType = session.UserTypeWholesale
	}
	return session.User{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      strings.TrimSpace(u.FirstName + " " + u.LastName),
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Address:   u.Address.Format(),
		UserType:  userType,
	}
}
