package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var errSessionSubject = errors.New("auth: subject is not a session id")

// TokenValidator checks the claims of a parsed session token. The signature
// has already been verified by the time Validate runs.
type TokenValidator struct {
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Algorithm jwa.SignatureAlgorithm
}

// sessionSubject requires sub to be a session id minted by session.Store.
var sessionSubject = jwt.ValidatorFunc(func(_ context.Context, tok jwt.Token) jwt.ValidationError {
	sub := tok.Subject()
	if sub == "" {
		return jwt.NewValidationError(fmt.Errorf("%w: missing sub", errSessionSubject))
	}
	if _, err := uuid.Parse(sub); err != nil {
		return jwt.NewValidationError(fmt.Errorf("%w: %q", errSessionSubject, sub))
	}
	return nil
})

// Validate rejects tokens signed with another algorithm, issued for another
// storefront, outside their validity window or not bound to a session.
func (v TokenValidator) Validate(tok jwt.Token, algorithm jwa.SignatureAlgorithm, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	switch {
	case algorithm == "":
		return errors.New("auth: token missing algorithm")
	case v.Algorithm != "" && algorithm != v.Algorithm:
		return fmt.Errorf("auth: unexpected token algorithm %s", algorithm)
	}

	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithAcceptableSkew(v.ClockSkew),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithValidator(sessionSubject),
	}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}
	return jwt.Validate(tok, opts...)
}
