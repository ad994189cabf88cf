// Package onboarding orchestrates the multi-record creation flow that turns
// a bare user into an organization owner with a first app. The backing store
// only guarantees per-row atomicity, so the saga uses compensating deletes
// in place of a transaction.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/skylift/skylift/internal/model"
)

// Input validation errors.
var (
	ErrMissingField    = errors.New("onboarding: missing required field")
	ErrInvalidPlatform = errors.New(`onboarding: app platform must be "ios" or "android"`)
)

// OrgInput describes the organization to create.
type OrgInput struct {
	Name string
}

// AppInput describes the first app to create under the new organization.
type AppInput struct {
	Name     string
	Platform string
}

// Result holds the records a successful onboarding created.
type Result struct {
	Organization model.Organization
	App          model.App
}

// Store provides the writes the saga performs. DeleteOrganization must
// cascade to memberships and apps.
type Store interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	DeleteOrganization(ctx context.Context, id string) error
	CreateMembership(ctx context.Context, m *model.OrganizationMember) error
	CreateApp(ctx context.Context, app *model.App) error
	// UpsertAppPermission inserts the grant or, on (app_id, user_id)
	// conflict, overwrites the role. Last write wins.
	UpsertAppPermission(ctx context.Context, p *model.AppPermission) error
}

// Saga runs the onboarding flow.
type Saga struct {
	store Store
	log   *slog.Logger
}

// NewSaga creates a Saga.
func NewSaga(store Store, log *slog.Logger) *Saga {
	return &Saga{store: store, log: log}
}

// Onboard creates the organization, owner membership, first app, and admin
// grant, in that order. Steps 2 and 3 roll back the organization on failure
// (the cascade removes the membership); callers never observe a
// half-created organization. A step-4 failure is logged and ignored: org
// ownership already implies admin access to the app through the
// hierarchical fallback, and failing the whole onboarding over a redundant
// grant would strand an otherwise-valid account.
func (s *Saga) Onboard(ctx context.Context, userID string, orgInput OrgInput, appInput AppInput) (*Result, error) {
	if err := validate(orgInput, appInput); err != nil {
		return nil, err
	}

	org := &model.Organization{Name: orgInput.Name}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}

	member := &model.OrganizationMember{
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           model.OrgRoleOwner,
	}
	if err := s.store.CreateMembership(ctx, member); err != nil {
		s.compensate(ctx, org.ID)
		return nil, fmt.Errorf("add owner membership: %w", err)
	}

	app := &model.App{
		OrganizationID: org.ID,
		Name:           appInput.Name,
		AppIdentifier:  appIdentifier(appInput.Name),
		Platform:       appInput.Platform,
	}
	if err := s.store.CreateApp(ctx, app); err != nil {
		s.compensate(ctx, org.ID)
		return nil, fmt.Errorf("create app: %w", err)
	}

	perm := &model.AppPermission{
		AppID:  app.ID,
		UserID: userID,
		Role:   model.AppRoleAdmin,
	}
	if err := s.store.UpsertAppPermission(ctx, perm); err != nil {
		// Not rolled back: the owner membership already grants admin
		// access via the org fallback.
		s.log.Error("onboarding: app permission grant failed",
			"user_id", userID, "app_id", app.ID, "err", err)
	}

	s.log.Info("onboarding completed",
		"user_id", userID, "org_id", org.ID, "app_id", app.ID)
	return &Result{Organization: *org, App: *app}, nil
}

// compensate deletes the organization created in step 1. The cascade removes
// any membership created in step 2. A failed compensation is logged; the
// original error is still the one surfaced to the caller.
func (s *Saga) compensate(ctx context.Context, orgID string) {
	if err := s.store.DeleteOrganization(ctx, orgID); err != nil {
		s.log.Error("onboarding: compensation delete failed", "org_id", orgID, "err", err)
	}
}

func validate(org OrgInput, app AppInput) error {
	if org.Name == "" || app.Name == "" || app.Platform == "" {
		return ErrMissingField
	}
	if app.Platform != "ios" && app.Platform != "android" {
		return ErrInvalidPlatform
	}
	return nil
}

var whitespace = regexp.MustCompile(`\s+`)

// appIdentifier derives a reverse-DNS style identifier from the app name.
func appIdentifier(name string) string {
	return "com." + whitespace.ReplaceAllString(strings.ToLower(name), "-")
}
