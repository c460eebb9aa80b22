package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tiptop/backend/internal/logger"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/repository"
	"go.uber.org/zap"
)

const (
	EarnAmount int64 = 10
	RedeemCost int64 = 100

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// RedeemValue is the money credited for RedeemCost coins.
var RedeemValue = decimal.RequireFromString("1.00")

// Dashboard is what the signed-in user sees on the home page.
type Dashboard struct {
	Username string          `json:"username" example:"jane"`
	Coins    int64           `json:"coins" example:"120"`
	Money    decimal.Decimal `json:"money" swaggertype:"string" example:"1.00"`
}

type CoinService struct {
	accounts AccountStore
	ledgers  LedgerStore
}

func NewCoinService(accounts AccountStore, ledgers LedgerStore) *CoinService {
	return &CoinService{accounts: accounts, ledgers: ledgers}
}

func (s *CoinService) Earn(ctx context.Context, accountID int64) (*models.Ledger, error) {
	ledger, err := s.ledgers.Credit(ctx, accountID, EarnAmount)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProfileMissing
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Coins earned", zap.Int64("account_id", accountID), zap.Int64("coins", ledger.Coins))
	return ledger, nil
}

// Redeem exchanges RedeemCost coins for RedeemValue. A missing ledger and a
// short balance both fail with ErrInsufficientBalance and change nothing.
func (s *CoinService) Redeem(ctx context.Context, accountID int64) (*models.Ledger, error) {
	ledger, err := s.ledgers.Exchange(ctx, accountID, RedeemCost, RedeemValue)
	if errors.Is(err, repository.ErrConditionFailed) {
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Info("Coins redeemed",
		zap.Int64("account_id", accountID),
		zap.Int64("coins", ledger.Coins),
		zap.String("money", ledger.Money.StringFixed(2)))
	return ledger, nil
}

// Balance treats a missing ledger as empty.
func (s *CoinService) Balance(ctx context.Context, accountID int64) (*models.Ledger, error) {
	ledger, err := s.ledgers.GetByAccountID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.EmptyLedger(accountID), nil
	}
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func (s *CoinService) History(ctx context.Context, accountID int64, limit int) ([]*models.CoinEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.ledgers.Events(ctx, accountID, limit)
}

func (s *CoinService) Dashboard(ctx context.Context, accountID int64) (*Dashboard, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	ledger, err := s.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &Dashboard{Username: account.Username, Coins: ledger.Coins, Money: ledger.Money}, nil
}
