package onboarding_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/skylift/skylift/internal/access"
	"github.com/skylift/skylift/internal/model"
	"github.com/skylift/skylift/internal/onboarding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore mimics the cascading row store: deleting an organization removes
// its memberships and apps.
type fakeStore struct {
	orgs       map[string]*model.Organization
	members    map[string]*model.OrganizationMember // orgID/userID
	apps       map[string]*model.App
	perms      map[string]*model.AppPermission // appID/userID
	memberErr  error
	appErr     error
	permErr    error
	deleteErr  error
	deleteLog  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orgs:    make(map[string]*model.Organization),
		members: make(map[string]*model.OrganizationMember),
		apps:    make(map[string]*model.App),
		perms:   make(map[string]*model.AppPermission),
	}
}

func (f *fakeStore) CreateOrganization(_ context.Context, org *model.Organization) error {
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	f.orgs[org.ID] = org
	return nil
}

func (f *fakeStore) DeleteOrganization(_ context.Context, id string) error {
	f.deleteLog = append(f.deleteLog, id)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.orgs, id)
	for k, m := range f.members {
		if m.OrganizationID == id {
			delete(f.members, k)
		}
	}
	for k, a := range f.apps {
		if a.OrganizationID == id {
			delete(f.apps, k)
		}
	}
	return nil
}

func (f *fakeStore) CreateMembership(_ context.Context, m *model.OrganizationMember) error {
	if f.memberErr != nil {
		return f.memberErr
	}
	f.members[m.OrganizationID+"/"+m.UserID] = m
	return nil
}

func (f *fakeStore) CreateApp(_ context.Context, app *model.App) error {
	if f.appErr != nil {
		return f.appErr
	}
	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	f.apps[app.ID] = app
	return nil
}

func (f *fakeStore) UpsertAppPermission(_ context.Context, p *model.AppPermission) error {
	if f.permErr != nil {
		return f.permErr
	}
	key := p.AppID + "/" + p.UserID
	if existing, ok := f.perms[key]; ok {
		existing.Role = p.Role
		return nil
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	f.perms[key] = p
	return nil
}

// accessStore adapts fakeStore to access.Store so post-onboarding access
// checks can run against the rows the saga created.
type accessStore struct{ f *fakeStore }

func (a accessStore) AppPermission(_ context.Context, appID, userID string) (*model.AppPermission, error) {
	return a.f.perms[appID+"/"+userID], nil
}

func (a accessStore) AppByID(_ context.Context, appID string) (*model.App, error) {
	return a.f.apps[appID], nil
}

func (a accessStore) ElevatedOrgMembership(_ context.Context, orgID, userID string) (*model.OrganizationMember, error) {
	m := a.f.members[orgID+"/"+userID]
	if m == nil || !m.Role.Elevated() {
		return nil, nil
	}
	return m, nil
}

func (a accessStore) OrgMembership(_ context.Context, orgID, userID string) (*model.OrganizationMember, error) {
	return a.f.members[orgID+"/"+userID], nil
}

func newSaga(store onboarding.Store) *onboarding.Saga {
	return onboarding.NewSaga(store, slog.Default())
}

var (
	orgInput = onboarding.OrgInput{Name: "Acme"}
	appInput = onboarding.AppInput{Name: "Shop", Platform: "ios"}
)

func TestOnboard_HappyPath(t *testing.T) {
	store := newFakeStore()
	res, err := newSaga(store).Onboard(context.Background(), "u1", orgInput, appInput)
	require.NoError(t, err)

	assert.Equal(t, "Acme", res.Organization.Name)
	assert.Equal(t, "Shop", res.App.Name)
	assert.Equal(t, "com.shop", res.App.AppIdentifier)
	assert.Equal(t, res.Organization.ID, res.App.OrganizationID)

	m := store.members[res.Organization.ID+"/u1"]
	require.NotNil(t, m)
	assert.Equal(t, model.OrgRoleOwner, m.Role)

	p := store.perms[res.App.ID+"/u1"]
	require.NotNil(t, p)
	assert.Equal(t, model.AppRoleAdmin, p.Role)

	// The end-to-end contract: an admin-required access check passes via
	// the direct grant.
	checker := access.NewChecker(accessStore{store}, slog.Default())
	grant, err := checker.CheckApp(context.Background(), "u1", res.App.ID,
		[]model.AppRole{model.AppRoleAdmin})
	require.NoError(t, err)
	assert.False(t, grant.ViaOrg)
}

func TestOnboard_Validation(t *testing.T) {
	s := newSaga(newFakeStore())

	_, err := s.Onboard(context.Background(), "u1", onboarding.OrgInput{}, appInput)
	require.ErrorIs(t, err, onboarding.ErrMissingField)

	_, err = s.Onboard(context.Background(), "u1", orgInput, onboarding.AppInput{Name: "Shop"})
	require.ErrorIs(t, err, onboarding.ErrMissingField)

	_, err = s.Onboard(context.Background(), "u1", orgInput,
		onboarding.AppInput{Name: "Shop", Platform: "windows"})
	require.ErrorIs(t, err, onboarding.ErrInvalidPlatform)
}

func TestOnboard_MembershipFailureRollsBackOrganization(t *testing.T) {
	store := newFakeStore()
	store.memberErr = errors.New("membership insert failed")

	_, err := newSaga(store).Onboard(context.Background(), "u1", orgInput, appInput)
	require.Error(t, err)
	assert.ErrorContains(t, err, "membership insert failed")
	assert.Empty(t, store.orgs, "organization is compensated away")
	assert.Empty(t, store.members)
}

func TestOnboard_AppFailureRollsBackOrganizationAndMembership(t *testing.T) {
	store := newFakeStore()
	store.appErr = errors.New("app insert failed")

	_, err := newSaga(store).Onboard(context.Background(), "u1", orgInput, appInput)
	require.Error(t, err)
	assert.ErrorContains(t, err, "app insert failed")
	assert.Empty(t, store.orgs)
	assert.Empty(t, store.members, "cascade removes the membership")
	assert.Empty(t, store.apps)
}

func TestOnboard_CompensationFailureSurfacesOriginalError(t *testing.T) {
	store := newFakeStore()
	store.appErr = errors.New("app insert failed")
	store.deleteErr = errors.New("rollback delete failed")

	_, err := newSaga(store).Onboard(context.Background(), "u1", orgInput, appInput)
	require.Error(t, err)
	assert.ErrorContains(t, err, "app insert failed",
		"compensation failures never mask the triggering error")
	assert.NotContains(t, err.Error(), "rollback delete failed")
	assert.NotEmpty(t, store.deleteLog, "compensation was attempted")
}

func TestOnboard_PermissionFailureIsTolerated(t *testing.T) {
	store := newFakeStore()
	store.permErr = errors.New("permission insert failed")

	res, err := newSaga(store).Onboard(context.Background(), "u1", orgInput, appInput)
	require.NoError(t, err, "step-4 failure does not fail onboarding")
	require.NotNil(t, res)
	assert.NotEmpty(t, store.orgs)
	assert.NotEmpty(t, store.apps)
	assert.Empty(t, store.perms)

	// Access still works through the org-admin fallback.
	checker := access.NewChecker(accessStore{store}, slog.Default())
	grant, err := checker.CheckApp(context.Background(), "u1", res.App.ID,
		[]model.AppRole{model.AppRoleAdmin})
	require.NoError(t, err)
	assert.True(t, grant.ViaOrg)
	assert.Equal(t, model.AppRoleAdmin, grant.Role)
	assert.Equal(t, model.OrgRoleOwner, grant.OrgRole)
}

func TestOnboard_RegrantIsIdempotent(t *testing.T) {
	store := newFakeStore()
	res, err := newSaga(store).Onboard(context.Background(), "u1", orgInput, appInput)
	require.NoError(t, err)

	// Upserting the same (app, user) with a different role leaves exactly
	// one row with the latest role.
	err = store.UpsertAppPermission(context.Background(), &model.AppPermission{
		AppID:  res.App.ID,
		UserID: "u1",
		Role:   model.AppRoleViewer,
	})
	require.NoError(t, err)
	assert.Len(t, store.perms, 1)
	assert.Equal(t, model.AppRoleViewer, store.perms[res.App.ID+"/u1"].Role)
}

func TestAppIdentifierSlug(t *testing.T) {
	store := newFakeStore()
	res, err := newSaga(store).Onboard(context.Background(), "u1",
		onboarding.OrgInput{Name: "Acme"},
		onboarding.AppInput{Name: "My  Great App", Platform: "android"})
	require.NoError(t, err)
	assert.Equal(t, "com.my-great-app", res.App.AppIdentifier)
}
