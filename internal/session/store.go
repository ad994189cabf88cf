package session

import (
	"context"
	"errors"
	"time"

	"github.com/skylift/skylift/internal/model"
	"gorm.io/gorm"
)

// GormStore is the GORM-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore backed by the given GORM DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SessionByTokenHash loads a session row by token hash; (nil, nil) if absent.
func (s *GormStore) SessionByTokenHash(ctx context.Context, hash string) (*model.UserSession, error) {
	var sess model.UserSession
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// CreateSession inserts a session row.
func (s *GormStore) CreateSession(ctx context.Context, sess *model.UserSession) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

// DeleteSession removes a session row by id.
func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.UserSession{}, "id = ?", id).Error
}

// DeleteSessionByTokenHash removes a session row by token hash.
func (s *GormStore) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	return s.db.WithContext(ctx).Delete(&model.UserSession{}, "token_hash = ?", hash).Error
}

// TouchSession updates last_accessed.
func (s *GormStore) TouchSession(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.UserSession{}).
		Where("id = ?", id).
		Update("last_accessed", at).Error
}

// DeleteExpired removes all sessions expired as of now.
func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&model.UserSession{}, "expires_at < ?", now)
	return res.RowsAffected, res.Error
}

// ActiveUserByID loads a user requiring is_active; (nil, nil) if absent or
// inactive.
func (s *GormStore) ActiveUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserByEmail loads a user by email; (nil, nil) if absent.
func (s *GormStore) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
