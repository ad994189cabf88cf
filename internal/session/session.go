// Package session implements the legacy direct-session authentication path:
// opaque bearer tokens stored server-side with lazy expiry. It is distinct
// from the identity provider's own token format and will be retired once the
// provider path fully replaces it.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skylift/skylift/internal/identity"
	"github.com/skylift/skylift/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidLogin is returned by Login for an unknown email, wrong password,
// or deactivated account. The three cases are deliberately indistinguishable.
var ErrInvalidLogin = errors.New("session: email or password is incorrect")

// Store provides session and user persistence for the ledger. Absent rows
// are (nil, nil).
type Store interface {
	SessionByTokenHash(ctx context.Context, hash string) (*model.UserSession, error)
	CreateSession(ctx context.Context, s *model.UserSession) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionByTokenHash(ctx context.Context, hash string) error
	// TouchSession updates last_accessed for the session row.
	TouchSession(ctx context.Context, id string, at time.Time) error
	// DeleteExpired removes every session whose expiry is before now and
	// returns the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// ActiveUserByID loads a user only when is_active is true.
	ActiveUserByID(ctx context.Context, id string) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)
}

// Ledger validates, issues, and expires opaque session tokens.
type Ledger struct {
	store Store
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// NewLedger creates a Ledger issuing sessions with the given TTL.
func NewLedger(store Store, ttl time.Duration, log *slog.Logger) *Ledger {
	return &Ledger{store: store, ttl: ttl, log: log, now: time.Now}
}

// Authenticate resolves a session token to its identity.
//
// An unknown token is (nil, nil) — unauthenticated, not an error. A session
// whose expiry is in the past is treated as nonexistent: the row is deleted
// best-effort (a failed delete is logged, never surfaced) and the result is
// unauthenticated either way. For a valid session, last_accessed is updated
// fire-and-forget before the user row is loaded; an inactive or missing user
// is unauthenticated.
func (l *Ledger) Authenticate(ctx context.Context, token string) (*identity.Identity, error) {
	s, err := l.store.SessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, fmt.Errorf("session lookup: %w", err)
	}
	if s == nil {
		return nil, nil
	}

	if s.ExpiresAt.Before(l.now()) {
		if err := l.store.DeleteSession(ctx, s.ID); err != nil {
			l.log.Warn("session: expired row delete failed", "session_id", s.ID, "err", err)
		}
		return nil, nil
	}

	if err := l.store.TouchSession(ctx, s.ID, l.now()); err != nil {
		l.log.Warn("session: last_accessed update failed", "session_id", s.ID, "err", err)
	}

	u, err := l.store.ActiveUserByID(ctx, s.UserID)
	if err != nil {
		return nil, fmt.Errorf("session user lookup: %w", err)
	}
	if u == nil {
		l.log.Warn("session: user for token not found or inactive", "user_id", s.UserID)
		return nil, nil
	}

	return &identity.Identity{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
	}, nil
}

// Login verifies the password and issues a new session, returning the
// identity and the plaintext token (stored only as a hash).
func (l *Ledger) Login(ctx context.Context, email, password string) (*identity.Identity, string, error) {
	u, err := l.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("user lookup: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, "", ErrInvalidLogin
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidLogin
	}

	token, err := generateToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}
	now := l.now()
	s := &model.UserSession{
		UserID:       u.ID,
		TokenHash:    hashToken(token),
		ExpiresAt:    now.Add(l.ttl),
		LastAccessed: now,
	}
	if err := l.store.CreateSession(ctx, s); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	return &identity.Identity{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Phone:      u.Phone,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
	}, token, nil
}

// Logout revokes the session for the given token. Unknown tokens are a
// no-op so callers cannot probe for valid ones.
func (l *Ledger) Logout(ctx context.Context, token string) error {
	return l.store.DeleteSessionByTokenHash(ctx, hashToken(token))
}

// PurgeExpired removes every expired session row. The ledger already treats
// expired rows as nonexistent; this reclaims the storage.
func (l *Ledger) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := l.store.DeleteExpired(ctx, l.now())
	if err != nil {
		return 0, fmt.Errorf("purge expired sessions: %w", err)
	}
	if n > 0 {
		l.log.Info("session: purged expired rows", "count", n)
	}
	return n, nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}
