// Package identity resolves bearer credentials into verified identities.
// The resolver is read-only: it consults the identity provider and the local
// profile store but never writes to either.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/skylift/skylift/internal/idp"
	"github.com/skylift/skylift/internal/model"
)

// Sentinel authentication failures. Both map to 401 at the HTTP layer but
// are kept distinct: a malformed credential never reaches the provider.
var (
	ErrMalformedCredential = errors.New("identity: malformed authorization credential")
	ErrInvalidCredential   = errors.New("identity: invalid or expired credential")
)

// Identity is a verified account as seen by the access-control core.
type Identity struct {
	ID         string
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	IsActive   bool
	IsVerified bool
}

// ProfileStore loads local user profiles by the provider's subject id.
// A missing profile is (nil, nil), not an error.
type ProfileStore interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver turns a raw Authorization header value into an Identity.
type Resolver struct {
	provider idp.Provider
	profiles ProfileStore
	log      *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(provider idp.Provider, profiles ProfileStore, log *slog.Logger) *Resolver {
	return &Resolver{provider: provider, profiles: profiles, log: log}
}

// Resolve validates the credential and returns the verified identity.
//
// The credential must be a well-formed "Bearer <token>" header value; any
// other shape fails with ErrMalformedCredential before touching the
// provider. Provider rejection of any kind surfaces as ErrInvalidCredential.
// When the provider accepts the token but no local profile row exists, a
// minimal identity is synthesised from the provider's claims so that a valid
// external identity is never rejected merely for lacking a profile row.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*Identity, error) {
	token, err := ParseBearer(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := r.provider.VerifyToken(ctx, token)
	if err != nil {
		r.log.Debug("identity: token verification failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	u, err := r.profiles.UserByID(ctx, claims.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", claims.SubjectID, err)
	}
	if u != nil {
		return &Identity{
			ID:         u.ID,
			Email:      u.Email,
			FirstName:  u.FirstName,
			LastName:   u.LastName,
			Phone:      u.Phone,
			IsActive:   u.IsActive,
			IsVerified: u.IsVerified,
		}, nil
	}

	r.log.Info("identity: no profile row, synthesising from claims", "subject", claims.SubjectID)
	return &Identity{
		ID:         claims.SubjectID,
		Email:      claims.Email,
		FirstName:  claims.FirstName,
		LastName:   claims.LastName,
		Phone:      claims.Phone,
		IsActive:   true,
		IsVerified: claims.EmailVerified,
	}, nil
}

// ParseBearer extracts the token from a "Bearer <token>" header value.
func ParseBearer(authorization string) (string, error) {
	if authorization == "" {
		return "", ErrMalformedCredential
	}
	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrMalformedCredential
	}
	return parts[1], nil
}
