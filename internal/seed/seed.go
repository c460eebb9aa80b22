// Package seed creates the bootstrap admin account.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tiptop/backend/internal/config"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/password"
	"github.com/tiptop/backend/internal/repository"
	"go.uber.org/zap"
)

type AccountStore interface {
	CreateWithLedger(ctx context.Context, account *models.Account, coins int64, money decimal.Decimal) error
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
}

// Admin creates the admin account described by cfg unless an account with
// that username already exists. It reports whether an account was created.
func Admin(ctx context.Context, accounts AccountStore, cfg config.AdminConfig) (bool, error) {
	if cfg.Username == "" || cfg.Email == "" || cfg.Password == "" {
		return false, errors.New("admin credentials are incomplete")
	}

	_, err := accounts.GetByUsername(ctx, cfg.Username)
	if err == nil {
		logger.Log.Info("Admin account already exists", zap.String("username", cfg.Username))
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("failed to look up admin: %w", err)
	}

	money, err := decimal.NewFromString(cfg.Money)
	if err != nil {
		return false, fmt.Errorf("invalid admin money %q: %w", cfg.Money, err)
	}

	hash, err := password.Hash(cfg.Password)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.Account{
		Username:     cfg.Username,
		Email:        strings.ToLower(strings.TrimSpace(cfg.Email)),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	err = accounts.CreateWithLedger(ctx, admin, cfg.Coins, money)
	if errors.Is(err, repository.ErrDuplicate) {
		return false, fmt.Errorf("email %s already belongs to another account", admin.Email)
	}
	if err != nil {
		return false, fmt.Errorf("failed to create admin: %w", err)
	}

	logger.Log.Info("Admin account created",
		zap.Int64("account_id", admin.ID),
		zap.String("username", admin.Username))
	return true, nil
}
