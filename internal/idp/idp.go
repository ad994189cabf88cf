// Package idp defines the identity-provider boundary consumed by the
// access-control core, plus the JWT-backed implementation Skylift ships with.
package idp

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned by VerifyToken for any token that cannot be
// positively verified: malformed, expired, or signed with a different key.
var ErrInvalidToken = errors.New("idp: invalid or expired token")

// Claims is the verified identity information a provider returns for a
// bearer token.
type Claims struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Phone         string
}

// Provider is the external identity provider. The core only consumes this
// interface; it never implements provider concerns itself.
type Provider interface {
	// VerifyToken validates a raw bearer token and returns its claims.
	// Any verification failure is reported as ErrInvalidToken; transport
	// or provider-internal failures are returned as distinct errors.
	VerifyToken(ctx context.Context, token string) (*Claims, error)

	// Revoke invalidates the given token at the provider, where supported.
	Revoke(ctx context.Context, token string) error

	// RequestPasswordReset asks the provider to start a password-reset
	// flow for the given email. The bool mirrors the provider's own
	// accepted/rejected signal.
	RequestPasswordReset(ctx context.Context, email string) (bool, error)
}
