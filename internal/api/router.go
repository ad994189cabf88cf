// Package api wires all API routes onto the provided ServeMux.
package api

import (
	"net/http"

	"github.com/skylift/skylift/internal/api/handler"
	"github.com/skylift/skylift/internal/api/middleware"
	"github.com/skylift/skylift/internal/health"
	"github.com/skylift/skylift/internal/model"
)

// Handlers groups the route handlers registered by RegisterRoutes.
type Handlers struct {
	Health     *health.Handler
	Auth       *handler.AuthHandler
	Onboarding *handler.OnboardingHandler
	Apps       *handler.AppHandler
	Users      *handler.UserHandler
}

// Guards groups the access-control dependencies of the middleware chain.
type Guards struct {
	Resolver IdentityResolver
	Sessions SessionAuthenticator
	Authz    Authorizer
	Checker  AppAccessChecker
}

// Aliases so callers wiring routes only import the api package.
type (
	// IdentityResolver resolves Authorization headers to identities.
	IdentityResolver = middleware.IdentityResolver
	// SessionAuthenticator resolves legacy opaque session tokens.
	SessionAuthenticator = middleware.SessionAuthenticator
	// Authorizer answers permission-string questions.
	Authorizer = middleware.Authorizer
	// AppAccessChecker answers per-app role questions.
	AppAccessChecker = middleware.AppAccessChecker
)

// RegisterRoutes registers all application routes on mux.
func RegisterRoutes(mux *http.ServeMux, h Handlers, g Guards) {
	// Public health endpoints (no auth required)
	mux.HandleFunc("GET /api/v1/health", h.Health.ServeHealth)
	mux.HandleFunc("GET /api/v1/ready", h.Health.ServeReady)

	// Auth endpoints (no auth required)
	mux.HandleFunc("POST /api/v1/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/v1/auth/password-reset", h.Auth.PasswordReset)

	// Everything below requires an authenticated identity.
	authed := middleware.RequireIdentity(g.Resolver, g.Sessions)

	mux.Handle("POST /api/v1/auth/logout", authed(http.HandlerFunc(h.Auth.Logout)))
	mux.Handle("GET /api/v1/auth/me", authed(http.HandlerFunc(h.Auth.Me)))
	mux.Handle("POST /api/v1/onboarding", authed(http.HandlerFunc(h.Onboarding.Onboard)))

	// Operator endpoints, guarded by permission strings.
	canListUsers := middleware.RequirePermission(g.Authz, "users:read")
	mux.Handle("GET /api/v1/users", authed(canListUsers(http.HandlerFunc(h.Users.List))))

	// App routes: any role may read, only admins manage grants.
	anyRole := middleware.RequireAppAccess(g.Checker)
	adminOnly := middleware.RequireAppAccess(g.Checker, model.AppRoleAdmin)

	mux.Handle("GET /api/v1/apps/{id}", authed(anyRole(http.HandlerFunc(h.Apps.Get))))
	mux.Handle("PUT /api/v1/apps/{id}/permissions", authed(adminOnly(http.HandlerFunc(h.Apps.UpsertPermission))))
	mux.Handle("DELETE /api/v1/apps/{id}/permissions/{userID}", authed(adminOnly(http.HandlerFunc(h.Apps.RevokePermission))))

	// Catch-all 404
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
}
