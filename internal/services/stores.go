package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/tiptop/backend/internal/models"
)

// AccountStore is the credential storage the services depend on.
// *repository.AccountRepository satisfies it.
type AccountStore interface {
	CreateWithLedger(ctx context.Context, account *models.Account, coins int64, money decimal.Decimal) error
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
	List(ctx context.Context) ([]*models.Account, error)
}

type LedgerStore interface {
	GetByAccountID(ctx context.Context, accountID int64) (*models.Ledger, error)
	Credit(ctx context.Context, accountID, coins int64) (*models.Ledger, error)
	Exchange(ctx context.Context, accountID, coins int64, money decimal.Decimal) (*models.Ledger, error)
	Events(ctx context.Context, accountID int64, limit int) ([]*models.CoinEvent, error)
}

type AdStore interface {
	Create(ctx context.Context, ad *models.Ad) error
	GetByID(ctx context.Context, id int64) (*models.Ad, error)
	ListActive(ctx context.Context, limit int) ([]*models.Ad, error)
	ListAll(ctx context.Context) ([]*models.Ad, error)
	Toggle(ctx context.Context, id int64) (*models.Ad, error)
	Delete(ctx context.Context, id int64) error
}
