// Package rbac implements the legacy permission-string authorization model:
// team memberships reference roles, roles carry permission strings, and the
// decision engine matches a requested permission against the resolved set
// with wildcard precedence.
package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/skylift/skylift/internal/model"
)

// ErrResolutionFailed reports that the membership fetch itself failed, so no
// permission set could be computed. Callers must deny by default.
var ErrResolutionFailed = errors.New("rbac: permission resolution failed")

// Store provides the membership and role lookups the resolver needs.
type Store interface {
	// MembershipRoleIDs returns the role ids of every team membership the
	// user holds.
	MembershipRoleIDs(ctx context.Context, userID string) ([]string, error)
	// RolesByIDs loads the given roles. Missing ids are skipped, not errors.
	RolesByIDs(ctx context.Context, ids []string) ([]model.Role, error)
}

// Resolver computes a user's effective permission set.
type Resolver struct {
	store Store
	log   *slog.Logger
}

// NewResolver creates a Resolver.
func NewResolver(store Store, log *slog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// Permissions aggregates the permission strings of every scope-eligible role
// reachable through the user's memberships, deduplicated.
//
// A role is eligible when its scope matches the check's scope: system-wide
// roles (nil AppID) only for unscoped checks, app-scoped roles only when the
// check is scoped to the same app. No memberships means an empty set, never
// an error: absence of data is absence of permission. A failed role lookup
// contributes nothing; only a failed membership fetch aborts resolution.
func (r *Resolver) Permissions(ctx context.Context, userID string, appID *string) ([]string, error) {
	roleIDs, err := r.store.MembershipRoleIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: memberships for %s: %w", ErrResolutionFailed, userID, err)
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}

	roles, err := r.store.RolesByIDs(ctx, roleIDs)
	if err != nil {
		r.log.Warn("rbac: role lookup failed, treating as no permissions",
			"user_id", userID, "err", err)
		return nil, nil
	}

	seen := make(map[string]struct{})
	var perms []string
	for _, role := range roles {
		if !scopeEligible(role, appID) {
			continue
		}
		for _, p := range role.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms, nil
}

// scopeEligible reports whether the role applies to a check with the given
// scope.
func scopeEligible(role model.Role, appID *string) bool {
	if appID == nil {
		return role.AppID == nil
	}
	return role.AppID != nil && *role.AppID == *appID
}
