package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"profitbliss-backend/internal/domain"
)

// SeedAdmin ensures an admin account exists with the given credentials.
// Called at startup; the credentials come from the environment, never from
// source.
func SeedAdmin(ctx context.Context, store Store, email, password string, logger zerolog.Logger) error {
	if email == "" || password == "" {
		logger.Debug().Msg("admin seed skipped, no credentials configured")
		return nil
	}

	user, err := store.UserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to check for admin user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	if user == nil {
		admin := &domain.User{
			Email:         email,
			PasswordHash:  string(hashed),
			Name:          "Administrator",
			Role:          domain.RoleAdmin,
			EmailVerified: true,
		}
		if err := store.CreateUserWithWallet(ctx, admin); err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		logger.Info().Str("user_id", admin.ID).Str("email", email).Msg("admin user created")
		return nil
	}

	// Account exists; refresh the password if it drifted from the
	// configured one.
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		if err := store.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
			return fmt.Errorf("failed to update admin password: %w", err)
		}
		logger.Info().Str("email", email).Msg("admin password updated")
	}

	// The configured account may predate its promotion, created through
	// normal signup. Without the role it cannot reach admin routes.
	if user.Role != domain.RoleAdmin {
		if err := store.UpdateRole(ctx, user.ID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("failed to promote admin user: %w", err)
		}
		logger.Info().Str("email", email).Msg("admin role granted")
	}

	return nil
}
