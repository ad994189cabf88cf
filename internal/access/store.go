package access

import (
	"context"
	"errors"

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

// AppPermission loads the direct grant row for (app, user); (nil, nil) when
// absent.
func (s *GormStore) AppPermission(ctx context.Context, appID, userID string) (*model.AppPermission, error) {
	var p model.AppPermission
	err := s.db.WithContext(ctx).
		Where("app_id = ? AND user_id = ?", appID, userID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AppByID loads an app; (nil, nil) when absent.
func (s *GormStore) AppByID(ctx context.Context, appID string) (*model.App, error) {
	var a model.App
	err := s.db.WithContext(ctx).Where("id = ?", appID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ElevatedOrgMembership loads the user's org membership restricted to the
// elevated roles; (nil, nil) when no such row exists.
func (s *GormStore) ElevatedOrgMembership(ctx context.Context, orgID, userID string) (*model.OrganizationMember, error) {
	var m model.OrganizationMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ? AND role IN ?",
			orgID, userID, []model.OrgRole{model.OrgRoleOwner, model.OrgRoleAdmin}).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// OrgMembership loads the user's org membership regardless of role;
// (nil, nil) when absent.
func (s *GormStore) OrgMembership(ctx context.Context, orgID, userID string) (*model.OrganizationMember, error) {
	var m model.OrganizationMember
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ?", orgID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
