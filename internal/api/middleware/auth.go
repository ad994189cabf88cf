// Package middleware provides HTTP middleware for Skylift.
package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/skylift/skylift/internal/access"
	"github.com/skylift/skylift/internal/api/jsonapi"
	"github.com/skylift/skylift/internal/identity"
	"github.com/skylift/skylift/internal/model"
)

type contextKey string

const identityKey contextKey = "auth_identity"

// IdentityResolver resolves a raw Authorization header value.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (*identity.Identity, error)
}

// SessionAuthenticator resolves a legacy opaque session token.
// (nil, nil) means unauthenticated.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*identity.Identity, error)
}

// Authorizer answers permission-string questions (the legacy RBAC model).
type Authorizer interface {
	Authorize(ctx context.Context, userID, permission string, appID *string) (bool, error)
}

// AppAccessChecker answers role-based access questions for one app.
type AppAccessChecker interface {
	CheckApp(ctx context.Context, userID, appID string, required []model.AppRole) (*access.AppGrant, error)
}

// RequireIdentity authenticates the request. Provider-issued bearer tokens
// are resolved first; a token the provider rejects is retried against the
// legacy session ledger before the request is refused. On success the
// Identity is injected into the request context; on failure it writes a 401
// JSON:API error response. Inactive accounts are unauthenticated, not
// denied.
func RequireIdentity(resolver IdentityResolver, sessions SessionAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			header := r.Header.Get("Authorization")

			id, err := resolver.Resolve(ctx, header)
			if err != nil {
				if errors.Is(err, identity.ErrMalformedCredential) {
					jsonapi.RenderError(w, http.StatusUnauthorized,
						"missing_token", "Unauthorized", "Authorization header is required")
					return
				}
				if !errors.Is(err, identity.ErrInvalidCredential) {
					jsonapi.RenderError(w, http.StatusInternalServerError,
						"auth_error", "Internal Server Error", "authentication check failed")
					return
				}
				// Legacy path: the token may be an opaque session token.
				token, _ := identity.ParseBearer(header)
				id, err = sessions.Authenticate(ctx, token)
				if err != nil {
					jsonapi.RenderError(w, http.StatusInternalServerError,
						"auth_error", "Internal Server Error", "authentication check failed")
					return
				}
				if id == nil {
					jsonapi.RenderError(w, http.StatusUnauthorized,
						"invalid_token", "Unauthorized", "credential is invalid or expired")
					return
				}
			}

			if !id.IsActive {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"inactive_account", "Unauthorized", "account is deactivated")
				return
			}

			next.ServeHTTP(w, r.WithContext(NewIdentityContext(ctx, id)))
		})
	}
}

// NewIdentityContext returns a context carrying the authenticated identity.
func NewIdentityContext(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated Identity from the request
// context. Returns nil if not present.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	id, _ := ctx.Value(identityKey).(*identity.Identity)
	return id
}

// RequirePermission checks the permission string against the caller's
// resolved permission set. Must be chained after RequireIdentity. A
// resolution failure denies by default.
func RequirePermission(authz Authorizer, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "authentication required")
				return
			}
			ok, err := authz.Authorize(r.Context(), id.ID, perm, nil)
			if err != nil || !ok {
				jsonapi.RenderError(w, http.StatusForbidden,
					"forbidden", "Forbidden",
					"you do not have the '"+perm+"' permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAppAccess checks role-based access to the app named by the "id"
// path value. Must be chained after RequireIdentity. The resolved grant is
// attached to the request context for downstream handlers.
func RequireAppAccess(checker AppAccessChecker, required ...model.AppRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFromContext(r.Context())
			if id == nil {
				jsonapi.RenderError(w, http.StatusUnauthorized,
					"missing_token", "Unauthorized", "authentication required")
				return
			}
			appID := r.PathValue("id")
			if appID == "" {
				jsonapi.RenderError(w, http.StatusBadRequest,
					"missing_parameter", "Bad Request", "app id is required")
				return
			}

			grant, err := checker.CheckApp(r.Context(), id.ID, appID, required)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(access.NewAppContext(r.Context(), grant)))
			case errors.Is(err, access.ErrAppNotFound):
				jsonapi.RenderError(w, http.StatusNotFound,
					"not_found", "Not Found", "app does not exist")
			case errors.Is(err, access.ErrInsufficientRole):
				jsonapi.RenderError(w, http.StatusForbidden,
					"insufficient_role", "Forbidden", "insufficient app permissions")
			case errors.Is(err, access.ErrNoAccess):
				jsonapi.RenderError(w, http.StatusForbidden,
					"no_access", "Forbidden", "no access to this app")
			default:
				jsonapi.RenderError(w, http.StatusInternalServerError,
					"access_check_failed", "Internal Server Error", "authorization check failed")
			}
		})
	}
}
