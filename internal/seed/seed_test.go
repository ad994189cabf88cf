package seed_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/skylift/skylift/internal/model"
	"github.com/skylift/skylift/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newNullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Role{}))
	return db
}

func TestEnsureRoles_CreatesOnceOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, seed.EnsureRoles(ctx, db, newNullLogger()))

	var admin model.Role
	require.NoError(t, db.First(&admin, "name = ?", "admin").Error)
	assert.Nil(t, admin.AppID)
	assert.Equal(t, model.StringSlice{"*"}, admin.Permissions)

	// A second run must not duplicate or overwrite.
	require.NoError(t, db.Model(&admin).Update("description", "edited by operator").Error)
	require.NoError(t, seed.EnsureRoles(ctx, db, newNullLogger()))

	var count int64
	require.NoError(t, db.Model(&model.Role{}).Where("name = ?", "admin").Count(&count).Error)
	assert.EqualValues(t, 1, count)
	require.NoError(t, db.First(&admin, "name = ?", "admin").Error)
	assert.Equal(t, "edited by operator", admin.Description)
}

func TestEnsureAdmin_CreatesWithSuppliedPassword(t *testing.T) {
	db := newTestDB(t)

	opts := seed.AdminOptions{Email: "admin@skylift.local", Password: "my-supplied-password"}
	require.NoError(t, seed.EnsureAdmin(context.Background(), db, opts, newNullLogger()))

	var u model.User
	require.NoError(t, db.First(&u, "email = ?", opts.Email).Error)
	assert.True(t, u.IsActive)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("my-supplied-password")))
}

func TestEnsureAdmin_SkipsWhenUsersExist(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&model.User{Email: "existing@example.com"}).Error)

	opts := seed.AdminOptions{Email: "admin@skylift.local", Password: "pw"}
	require.NoError(t, seed.EnsureAdmin(context.Background(), db, opts, newNullLogger()))

	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
