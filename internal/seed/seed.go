package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/auth"
)

// AccountStore is the part of the account repository seeding needs.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) (int64, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
}

// AdminCredentials is the bootstrap administrator.
type AdminCredentials struct {
	Username string
	Password string
}

// EnsureAdmin creates the bootstrap admin account when no admin exists yet.
// Empty credentials disable seeding. It reports whether an account was
// created.
func EnsureAdmin(ctx context.Context, accounts AccountStore, creds AdminCredentials, lgr zerolog.Logger) (bool, error) {
	if creds.Username == "" || creds.Password == "" {
		lgr.Debug().Msg("Admin seeding disabled")
		return false, nil
	}

	admins, err := accounts.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to count admin accounts: %w", err)
	}
	if admins > 0 {
		return false, nil
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		return false, err
	}
	account := &models.Account{
		Username:     creds.Username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if _, err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// username held by a non-admin account
			lgr.Warn().Str("username", creds.Username).Msg("Seed admin username already taken, skipping")
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin account: %w", err)
	}

	lgr.Info().Str("username", creds.Username).Int64("accountID", account.ID).Msg("Default admin account created")
	return true, nil
}
