package identity_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/skylift/skylift/internal/identity"
	"github.com/skylift/skylift/internal/idp"
	"github.com/skylift/skylift/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	claims *idp.Claims
	err    error
}

func (f *fakeProvider) VerifyToken(_ context.Context, _ string) (*idp.Claims, error) {
	return f.claims, f.err
}
func (f *fakeProvider) Revoke(_ context.Context, _ string) error { return nil }
func (f *fakeProvider) RequestPasswordReset(_ context.Context, _ string) (bool, error) {
	return true, nil
}

type fakeProfiles struct {
	users map[string]*model.User
	err   error
}

func (f *fakeProfiles) UserByID(_ context.Context, id string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[id], nil
}

func newResolver(p idp.Provider, s identity.ProfileStore) *identity.Resolver {
	return identity.NewResolver(p, s, slog.Default())
}

func TestResolve_MalformedCredential(t *testing.T) {
	r := newResolver(&fakeProvider{}, &fakeProfiles{})

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic abc", "token-without-scheme"} {
		_, err := r.Resolve(context.Background(), header)
		assert.ErrorIs(t, err, identity.ErrMalformedCredential, "header %q", header)
	}
}

func TestResolve_InvalidCredential(t *testing.T) {
	r := newResolver(&fakeProvider{err: idp.ErrInvalidToken}, &fakeProfiles{})

	_, err := r.Resolve(context.Background(), "Bearer bad-token")
	require.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestResolve_ProviderErrorIsInvalidCredential(t *testing.T) {
	// Provider-internal failures are authentication failures too, never a
	// default-allow.
	r := newResolver(&fakeProvider{err: errors.New("provider unreachable")}, &fakeProfiles{})

	_, err := r.Resolve(context.Background(), "Bearer some-token")
	require.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestResolve_ProfileRowWins(t *testing.T) {
	profiles := &fakeProfiles{users: map[string]*model.User{
		"u1": {
			ID:         "u1",
			Email:      "profile@example.com",
			FirstName:  "Pat",
			LastName:   "Profile",
			Phone:      "+1555",
			IsActive:   false,
			IsVerified: true,
		},
	}}
	provider := &fakeProvider{claims: &idp.Claims{
		SubjectID: "u1",
		Email:     "claims@example.com",
	}}
	r := newResolver(provider, profiles)

	id, err := r.Resolve(context.Background(), "Bearer good-token")
	require.NoError(t, err)
	// Profile fields are returned verbatim, including the inactive flag.
	assert.Equal(t, "profile@example.com", id.Email)
	assert.Equal(t, "Pat", id.FirstName)
	assert.False(t, id.IsActive)
	assert.True(t, id.IsVerified)
}

func TestResolve_SynthesisedFallback(t *testing.T) {
	provider := &fakeProvider{claims: &idp.Claims{
		SubjectID:     "u2",
		Email:         "new@example.com",
		EmailVerified: true,
		FirstName:     "New",
	}}
	r := newResolver(provider, &fakeProfiles{})

	id, err := r.Resolve(context.Background(), "Bearer good-token")
	require.NoError(t, err)
	assert.Equal(t, "u2", id.ID)
	assert.Equal(t, "new@example.com", id.Email)
	assert.True(t, id.IsActive, "synthesised identities default to active")
	assert.True(t, id.IsVerified, "verified mirrors the email-confirmation claim")
}

func TestResolve_ProfileStoreError(t *testing.T) {
	provider := &fakeProvider{claims: &idp.Claims{SubjectID: "u3"}}
	r := newResolver(provider, &fakeProfiles{err: errors.New("store down")})

	_, err := r.Resolve(context.Background(), "Bearer good-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, identity.ErrInvalidCredential)
}
