package idp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenClaims is the set of custom claims stored inside a Skylift access token.
type tokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	FirstName     string `json:"given_name,omitempty"`
	LastName      string `json:"family_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// JWT is a Provider that signs and verifies HS256 tokens locally. Tokens are
// stateless, so Revoke is advisory only.
type JWT struct {
	secret []byte
	ttl    time.Duration
	log    *slog.Logger
}

// NewJWT creates a JWT provider with the given signing secret and access TTL.
func NewJWT(secret string, ttl time.Duration, log *slog.Logger) *JWT {
	return &JWT{secret: []byte(secret), ttl: ttl, log: log}
}

// Issue creates and signs a new access token for the given identity.
func (p *JWT) Issue(subjectID, email string, emailVerified bool) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		Email:         email,
		EmailVerified: emailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			Issuer:    "skylift",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// VerifyToken validates the token string and returns its claims.
func (p *JWT) VerifyToken(_ context.Context, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &Claims{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		FirstName:     claims.FirstName,
		LastName:      claims.LastName,
		Phone:         claims.Phone,
	}, nil
}

// Revoke is a no-op for stateless HS256 tokens; the token simply expires.
func (p *JWT) Revoke(_ context.Context, _ string) error {
	p.log.Debug("idp: revoke requested for stateless token; relying on expiry")
	return nil
}

// RequestPasswordReset acknowledges the reset request. Mail delivery is the
// deployment's responsibility; this provider only validates the request.
func (p *JWT) RequestPasswordReset(_ context.Context, email string) (bool, error) {
	p.log.Info("idp: password reset requested", "email", email)
	return true, nil
}
