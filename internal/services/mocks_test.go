package services

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/tiptop/backend/internal/models"
	"github.com/tiptop/backend/internal/repository"
)

type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) CreateWithLedger(ctx context.Context, account *models.Account, coins int64, money decimal.Decimal) error {
	args := m.Called(ctx, account, coins, money)
	return args.Error(0)
}

func (m *MockAccountStore) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountStore) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockAccountStore) List(ctx context.Context) ([]*models.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Account), args.Error(1)
}

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) GetByAccountID(ctx context.Context, accountID int64) (*models.Ledger, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ledger), args.Error(1)
}

func (m *MockLedgerStore) Credit(ctx context.Context, accountID, coins int64) (*models.Ledger, error) {
	args := m.Called(ctx, accountID, coins)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ledger), args.Error(1)
}

func (m *MockLedgerStore) Exchange(ctx context.Context, accountID, coins int64, money decimal.Decimal) (*models.Ledger, error) {
	args := m.Called(ctx, accountID, coins, money)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ledger), args.Error(1)
}

func (m *MockLedgerStore) Events(ctx context.Context, accountID int64, limit int) ([]*models.CoinEvent, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CoinEvent), args.Error(1)
}

type MockAdStore struct {
	mock.Mock
}

func (m *MockAdStore) Create(ctx context.Context, ad *models.Ad) error {
	args := m.Called(ctx, ad)
	return args.Error(0)
}

func (m *MockAdStore) GetByID(ctx context.Context, id int64) (*models.Ad, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ad), args.Error(1)
}

func (m *MockAdStore) ListActive(ctx context.Context, limit int) ([]*models.Ad, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ad), args.Error(1)
}

func (m *MockAdStore) ListAll(ctx context.Context) ([]*models.Ad, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ad), args.Error(1)
}

func (m *MockAdStore) Toggle(ctx context.Context, id int64) (*models.Ad, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ad), args.Error(1)
}

func (m *MockAdStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	args := m.Called(ctx, to, subject, htmlBody, textBody)
	return args.Error(0)
}

// fakeAccounts is a small in-memory AccountStore for end-to-end style tests
// that need password changes to stick between calls.
type fakeAccounts struct {
	byID   map[int64]*models.Account
	nextID int64
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: make(map[int64]*models.Account), nextID: 1}
}

func (f *fakeAccounts) CreateWithLedger(_ context.Context, account *models.Account, _ int64, _ decimal.Decimal) error {
	for _, a := range f.byID {
		if a.Email == account.Email || a.Username == account.Username {
			return repository.ErrDuplicate
		}
	}
	account.ID = f.nextID
	f.nextID++
	stored := *account
	f.byID[account.ID] = &stored
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id int64) (*models.Account, error) {
	if a, ok := f.byID[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	for _, a := range f.byID {
		if a.Email == email {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) GetByUsername(_ context.Context, username string) (*models.Account, error) {
	for _, a := range f.byID {
		if a.Username == username {
			copied := *a
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAccounts) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	a, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.PasswordHash = hash
	return nil
}

func (f *fakeAccounts) List(_ context.Context) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, nil
}
