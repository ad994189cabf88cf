// Package seed creates first-boot records: the system-wide roles and a
// default admin user when the users table is empty.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/skylift/skylift/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// systemRoles are created once, keyed by name. AppID is nil so they are
// eligible only for checks not scoped to a single app.
var systemRoles = []model.Role{
	{
		Name:        "admin",
		Description: "Full access to every operation",
		Permissions: model.StringSlice{"*"},
	},
	{
		Name:        "support",
		Description: "Read-only access for support staff",
		Permissions: model.StringSlice{"users:read", "orgs:read", "apps:read"},
	},
}

// EnsureRoles creates the system-wide roles that do not yet exist, matched
// by name. Existing roles are never modified, so operator edits survive
// restarts.
func EnsureRoles(ctx context.Context, db *gorm.DB, log *slog.Logger) error {
	for _, role := range systemRoles {
		var count int64
		if err := db.WithContext(ctx).Model(&model.Role{}).
			Where("name = ? AND app_id IS NULL", role.Name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count system role %q: %w", role.Name, err)
		}
		if count > 0 {
			continue
		}
		r := role
		if err := db.WithContext(ctx).Create(&r).Error; err != nil {
			return fmt.Errorf("insert system role %q: %w", role.Name, err)
		}
		log.Info("seed role created", "name", role.Name)
	}
	return nil
}

// AdminOptions configures the seed admin user.
type AdminOptions struct {
	Email    string
	Password string // if empty, a random password is generated
}

// EnsureAdmin creates a seed admin user if no users exist.
// It prints the generated password to stdout and returns nil.
// If a password was supplied in opts it is used directly.
// The function is idempotent: it is safe to call on every startup.
func EnsureAdmin(ctx context.Context, db *gorm.DB, opts AdminOptions, log *slog.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&model.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		log.Info("seed admin already exists")
		return nil
	}

	password := opts.Password
	if password == "" {
		var err error
		password, err = generatePassword()
		if err != nil {
			return fmt.Errorf("generate seed password: %w", err)
		}
		// Print the generated password to stdout exactly once.
		fmt.Printf("[skylift] seed admin password: %s\n", password)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	u := &model.User{
		Email:        opts.Email,
		FirstName:    "Seed",
		LastName:     "Admin",
		IsActive:     true,
		IsVerified:   true,
		PasswordHash: string(hash),
	}
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("insert seed admin: %w", err)
	}

	log.Info("seed admin created", "email", opts.Email)
	return nil
}

func generatePassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
