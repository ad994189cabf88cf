package rbac

import (
	"context"

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

// MembershipRoleIDs returns the role ids referenced by the user's team
// memberships.
func (s *GormStore) MembershipRoleIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&model.TeamMembership{}).
		Where("user_id = ?", userID).
		Pluck("role_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// RolesByIDs loads roles by id with a single in-list query.
func (s *GormStore) RolesByIDs(ctx context.Context, ids []string) ([]model.Role, error) {
	var roles []model.Role
	err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}
