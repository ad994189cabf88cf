package identity

import (
	"context"
	"errors"

	"github.com/skylift/skylift/internal/model"
	"gorm.io/gorm"
)

// Store is the GORM-backed ProfileStore.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store backed by the given GORM DB.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UserByID loads a profile row by id; (nil, nil) when the row is absent.
func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
