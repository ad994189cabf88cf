package onboarding

import (
	"context"

	"github.com/skylift/skylift/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the GORM-backed Store.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore backed by the given GORM DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// CreateOrganization inserts an organization row.
func (s *GormStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	return s.db.WithContext(ctx).Create(org).Error
}

// DeleteOrganization removes the organization. Memberships and apps go with
// it via the ON DELETE CASCADE constraints.
func (s *GormStore) DeleteOrganization(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&model.Organization{}, "id = ?", id).Error
}

// CreateMembership inserts an organization membership row.
func (s *GormStore) CreateMembership(ctx context.Context, m *model.OrganizationMember) error {
	return s.db.WithContext(ctx).Create(m).Error
}

// CreateApp inserts an app row.
func (s *GormStore) CreateApp(ctx context.Context, app *model.App) error {
	return s.db.WithContext(ctx).Create(app).Error
}

// UpsertAppPermission inserts the grant, or overwrites the role when a row
// for (app_id, user_id) already exists.
func (s *GormStore) UpsertAppPermission(ctx context.Context, p *model.AppPermission) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "app_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "updated_at"}),
		}).
		Create(p).Error
}
