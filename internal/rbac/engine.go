package rbac

import (
	"context"
	"log/slog"
	"strings"
)

// PermissionSource yields a user's effective permission set for a scope.
type PermissionSource interface {
	Permissions(ctx context.Context, userID string, appID *string) ([]string, error)
}

// Engine answers yes/no permission questions against a PermissionSource.
type Engine struct {
	source PermissionSource
	log    *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(source PermissionSource, log *slog.Logger) *Engine {
	return &Engine{source: source, log: log}
}

// Authorize reports whether the user holds the permission in the given scope.
// A false result with a nil error is a denial, a valid outcome; a non-nil
// error means the permission set could not be resolved and the caller must
// deny by default.
func (e *Engine) Authorize(ctx context.Context, userID, permission string, appID *string) (bool, error) {
	perms, err := e.source.Permissions(ctx, userID, appID)
	if err != nil {
		return false, err
	}
	allowed := Allowed(perms, permission)
	if !allowed {
		e.log.Debug("rbac: permission denied", "user_id", userID, "permission", permission)
	}
	return allowed, nil
}

// Allowed matches a requested permission against a permission set. It is a
// pure function; precedence short-circuits in order:
//
//  1. exact match
//  2. category wildcard "<category>:*", where the category is the text
//     before the first ':' (the whole string when there is no colon)
//  3. the global wildcard "*"
func Allowed(set []string, permission string) bool {
	for _, p := range set {
		if p == permission {
			return true
		}
	}
	category, _, _ := strings.Cut(permission, ":")
	for _, p := range set {
		if p == category+":*" {
			return true
		}
	}
	for _, p := range set {
		if p == "*" {
			return true
		}
	}
	return false
}
