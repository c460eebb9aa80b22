package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tiptop/backend/internal/models"
)

const accountColumns = `id, username, email, password_hash, role, created_at, updated_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateWithLedger inserts the account and its ledger in one transaction, so
// a signup never leaves an account without balances.
func (r *AccountRepository) CreateWithLedger(ctx context.Context, account *models.Account, coins int64, money decimal.Decimal) error {
	if account.Role == "" {
		account.Role = models.RoleUser
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO accounts (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		account.Username, account.Email, account.PasswordHash, string(account.Role),
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledgers (account_id, coins, money)
		VALUES ($1, $2, $3)`,
		account.ID, coins, money); err != nil {
		return fmt.Errorf("failed to insert ledger: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.getOne(ctx, `id = $1`, id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getOne(ctx, `username = $1`, username)
}

func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE accounts
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) getOne(ctx context.Context, where string, arg any) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, arg)

	account, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var account models.Account
	var role string
	if err := row.Scan(&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&role, &account.CreatedAt, &account.UpdatedAt); err != nil {
		return nil, err
	}
	account.Role = models.Role(role)
	return &account, nil
}
