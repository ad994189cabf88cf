// Package model contains GORM model definitions shared across packages.
// All models are driver-agnostic: they work with both PostgreSQL and SQLite.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgRole is a user's role within an organization.
type OrgRole string

// Organization roles. Owner and Admin are the elevated roles that confer
// implicit admin access to every app the organization owns.
const (
	OrgRoleOwner  OrgRole = "owner"
	OrgRoleAdmin  OrgRole = "admin"
	OrgRoleMember OrgRole = "member"
)

// Elevated reports whether the role grants implicit access to org resources.
func (r OrgRole) Elevated() bool {
	return r == OrgRoleOwner || r == OrgRoleAdmin
}

// AppRole is a user's role on a single app, granted directly via AppPermission.
type AppRole string

// App roles, ordered from most to least privileged.
const (
	AppRoleAdmin     AppRole = "admin"
	AppRoleDeveloper AppRole = "developer"
	AppRoleTester    AppRole = "tester"
	AppRoleViewer    AppRole = "viewer"
)

// User is the local profile row keyed by the identity provider's subject id.
type User struct {
	ID         string `gorm:"type:text;primaryKey"`
	Email      string `gorm:"type:text;not null;uniqueIndex"`
	FirstName  string `gorm:"type:text;not null;default:''"`
	LastName   string `gorm:"type:text;not null;default:''"`
	Phone      string `gorm:"type:text;not null;default:''"`
	IsActive   bool   `gorm:"not null;default:true"`
	IsVerified bool   `gorm:"not null;default:false"`
	// PasswordHash is only set for accounts using the legacy session login.
	PasswordHash string    `gorm:"type:text;not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Organization is the billing/ownership unit grouping apps. It is the root
// of the resource graph: deleting it cascades to memberships and apps.
type Organization struct {
	ID        string    `gorm:"type:text;primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (o *Organization) BeforeCreate(_ *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// OrganizationMember binds a user to an organization with a role.
// One row per (organization, user) pair.
type OrganizationMember struct {
	ID             string       `gorm:"type:text;primaryKey"`
	OrganizationID string       `gorm:"type:text;not null;uniqueIndex:idx_org_members_org_user"`
	UserID         string       `gorm:"type:text;not null;index;uniqueIndex:idx_org_members_org_user"`
	Role           OrgRole      `gorm:"type:text;not null"`
	Organization   Organization `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time    `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (m *OrganizationMember) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// App is an update-distribution target owned by an organization.
type App struct {
	ID             string       `gorm:"type:text;primaryKey"`
	OrganizationID string       `gorm:"type:text;not null;index"`
	Name           string       `gorm:"type:text;not null"`
	AppIdentifier  string       `gorm:"type:text;not null;uniqueIndex"`
	Platform       string       `gorm:"type:text;not null"`
	Organization   Organization `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time    `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (a *App) BeforeCreate(_ *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// AppPermission is a direct grant binding one user to one app with a role.
// Unique on (app, user): re-granting overwrites the role, never duplicates.
type AppPermission struct {
	ID        string    `gorm:"type:text;primaryKey"`
	AppID     string    `gorm:"type:text;not null;uniqueIndex:idx_app_permissions_app_user"`
	UserID    string    `gorm:"type:text;not null;index;uniqueIndex:idx_app_permissions_app_user"`
	Role      AppRole   `gorm:"type:text;not null"`
	App       App       `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (p *AppPermission) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// Team is the legacy grouping entity, scoped to a single app.
type Team struct {
	ID        string    `gorm:"type:text;primaryKey"`
	AppID     string    `gorm:"type:text;not null;index"`
	Name      string    `gorm:"type:text;not null"`
	App       App       `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (t *Team) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// TeamMembership binds a user to a team with a role reference.
type TeamMembership struct {
	ID       string    `gorm:"type:text;primaryKey"`
	UserID   string    `gorm:"type:text;not null;index"`
	TeamID   string    `gorm:"type:text;not null;index"`
	RoleID   string    `gorm:"type:text;not null"`
	Team     Team      `gorm:"constraint:OnDelete:CASCADE"`
	JoinedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (m *TeamMembership) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// StringSlice is a []string that GORM serialises as JSON for both SQLite
// and PostgreSQL (TEXT column in either case).
type StringSlice []string

// Role is a named bundle of permission strings. AppID == nil means the role
// is system-wide and eligible only for unscoped checks; a non-nil AppID
// restricts it to checks scoped to that app.
type Role struct {
	ID          string      `gorm:"type:text;primaryKey"`
	Name        string      `gorm:"type:text;not null"`
	Description string      `gorm:"type:text;not null;default:''"`
	AppID       *string     `gorm:"type:text;index"`
	Permissions StringSlice `gorm:"type:text;not null;default:'[]';serializer:json"`
	CreatedAt   time.Time   `gorm:"not null"`
	UpdatedAt   time.Time   `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (r *Role) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// UserSession is an opaque bearer token record for the legacy direct-session
// authentication path. Tokens are stored as SHA-256 hashes. A session whose
// ExpiresAt is in the past is treated as nonexistent regardless of whether
// the row has been physically removed yet.
type UserSession struct {
	ID           string    `gorm:"type:text;primaryKey"`
	UserID       string    `gorm:"type:text;not null;index"`
	TokenHash    string    `gorm:"type:text;not null;uniqueIndex"`
	ExpiresAt    time.Time `gorm:"not null"`
	LastAccessed time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUID primary key if not set.
func (s *UserSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
