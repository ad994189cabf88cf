// Package access implements role-based access checks against one concrete
// resource, with a two-tier fallback: a direct grant on the resource governs
// when present; otherwise elevated membership in the owning organization
// confers implicit admin-level access.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/skylift/skylift/internal/model"
)

// Denial and not-found outcomes. Denials are valid results, not faults;
// a missing resource is reported before any role check is attempted.
var (
	ErrNoAccess         = errors.New("access: no access to this resource")
	ErrInsufficientRole = errors.New("access: insufficient role")
	ErrAppNotFound      = errors.New("access: app not found")
	ErrOrgNotMember     = errors.New("access: not a member of this organization")
)

// AppGrant is the outcome of a successful app access check.
type AppGrant struct {
	AppID string
	Role  model.AppRole
	// ViaOrg is true when the grant came from the org-membership fallback
	// rather than a direct AppPermission row.
	ViaOrg  bool
	OrgRole model.OrgRole // set only when ViaOrg
}

// OrgGrant is the outcome of a successful organization membership check.
type OrgGrant struct {
	OrgID string
	Role  model.OrgRole
}

// Store provides the row lookups the checker needs. Absent rows are
// (nil, nil); errors are reserved for store failures.
type Store interface {
	AppPermission(ctx context.Context, appID, userID string) (*model.AppPermission, error)
	AppByID(ctx context.Context, appID string) (*model.App, error)
	// ElevatedOrgMembership returns the user's membership in the org only
	// when its role is owner or admin.
	ElevatedOrgMembership(ctx context.Context, orgID, userID string) (*model.OrganizationMember, error)
	OrgMembership(ctx context.Context, orgID, userID string) (*model.OrganizationMember, error)
}

// Checker answers resource-scoped role questions.
type Checker struct {
	store Store
	log   *slog.Logger
}

// NewChecker creates a Checker.
func NewChecker(store Store, log *slog.Logger) *Checker {
	return &Checker{store: store, log: log}
}

// CheckApp resolves the caller's effective role on an app.
//
// A direct AppPermission row governs when present: its role must be in
// required (when required is non-empty) or the check denies with
// ErrInsufficientRole — the fallback is never consulted past a direct grant.
// Without a direct grant, elevated membership (owner/admin) in the app's
// organization confers the app "admin" role implicitly, but only that role:
// if required excludes "admin" the check denies even for org owners, never
// downgrading them to a lesser role they were not granted.
func (c *Checker) CheckApp(ctx context.Context, userID, appID string, required []model.AppRole) (*AppGrant, error) {
	perm, err := c.store.AppPermission(ctx, appID, userID)
	if err != nil {
		return nil, fmt.Errorf("app permission lookup: %w", err)
	}
	if perm != nil {
		if len(required) > 0 && !slices.Contains(required, perm.Role) {
			return nil, ErrInsufficientRole
		}
		return &AppGrant{AppID: appID, Role: perm.Role}, nil
	}

	app, err := c.store.AppByID(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("app lookup: %w", err)
	}
	if app == nil {
		return nil, ErrAppNotFound
	}

	member, err := c.store.ElevatedOrgMembership(ctx, app.OrganizationID, userID)
	if err != nil {
		return nil, fmt.Errorf("org membership lookup: %w", err)
	}
	if member == nil {
		c.log.Warn("access: app access denied", "user_id", userID, "app_id", appID)
		return nil, ErrNoAccess
	}

	if len(required) > 0 && !slices.Contains(required, model.AppRoleAdmin) {
		return nil, ErrInsufficientRole
	}
	return &AppGrant{
		AppID:   appID,
		Role:    model.AppRoleAdmin,
		ViaOrg:  true,
		OrgRole: member.Role,
	}, nil
}

// CheckOrg resolves the caller's membership role in an organization,
// optionally requiring it to be one of a role set.
func (c *Checker) CheckOrg(ctx context.Context, userID, orgID string, required []model.OrgRole) (*OrgGrant, error) {
	member, err := c.store.OrgMembership(ctx, orgID, userID)
	if err != nil {
		return nil, fmt.Errorf("org membership lookup: %w", err)
	}
	if member == nil {
		c.log.Warn("access: org membership check failed", "user_id", userID, "org_id", orgID)
		return nil, ErrOrgNotMember
	}
	if len(required) > 0 && !slices.Contains(required, member.Role) {
		c.log.Warn("access: insufficient org role",
			"user_id", userID, "org_id", orgID, "role", member.Role)
		return nil, ErrInsufficientRole
	}
	return &OrgGrant{OrgID: orgID, Role: member.Role}, nil
}
