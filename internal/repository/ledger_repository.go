package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tiptop/backend/internal/models"
)

const ledgerColumns = `id, account_id, coins, money, updated_at`

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID int64) (*models.Ledger, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledgers WHERE account_id = $1`, accountID)

	ledger, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger: %w", err)
	}
	return ledger, nil
}

// Credit adds coins in a single UPDATE and records the event.
func (r *LedgerRepository) Credit(ctx context.Context, accountID, coins int64) (*models.Ledger, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE ledgers
		SET coins = coins + $1, updated_at = NOW()
		WHERE account_id = $2
		RETURNING `+ledgerColumns, coins, accountID)

	ledger, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to credit coins: %w", err)
	}

	if err := appendEvent(ctx, tx, ledger, models.CoinEventEarn, coins, decimal.Zero); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit credit: %w", err)
	}
	return ledger, nil
}

// Exchange converts coins into money with a conditional UPDATE. It returns
// ErrConditionFailed when the ledger is missing or holds fewer than coins.
func (r *LedgerRepository) Exchange(ctx context.Context, accountID, coins int64, money decimal.Decimal) (*models.Ledger, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		UPDATE ledgers
		SET coins = coins - $1, money = money + $2, updated_at = NOW()
		WHERE account_id = $3 AND coins >= $1
		RETURNING `+ledgerColumns, coins, money, accountID)

	ledger, err := scanLedger(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConditionFailed
	}
	if err != nil {
		return nil, fmt.Errorf("failed to exchange coins: %w", err)
	}

	if err := appendEvent(ctx, tx, ledger, models.CoinEventRedeem, -coins, money); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit exchange: %w", err)
	}
	return ledger, nil
}

// Events returns the most recent coin events of an account, newest first.
func (r *LedgerRepository) Events(ctx context.Context, accountID int64, limit int) ([]*models.CoinEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, kind, coins_delta, money_delta, coins_after, money_after, created_at
		FROM coin_events
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list coin events: %w", err)
	}
	defer rows.Close()

	var events []*models.CoinEvent
	for rows.Next() {
		var e models.CoinEvent
		var kind string
		if err := rows.Scan(&e.ID, &e.AccountID, &kind, &e.CoinsDelta, &e.MoneyDelta,
			&e.CoinsAfter, &e.MoneyAfter, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coin event: %w", err)
		}
		e.Kind = models.CoinEventKind(kind)
		events = append(events, &e)
	}
	return events, rows.Err()
}

// RepairMissing creates an empty ledger for every account that has none.
func (r *LedgerRepository) RepairMissing(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO ledgers (account_id, coins, money)
		SELECT a.id, 0, 0
		FROM accounts a
		LEFT JOIN ledgers l ON l.account_id = a.id
		WHERE l.id IS NULL
		ON CONFLICT (account_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to repair ledgers: %w", err)
	}
	return result.RowsAffected()
}

func appendEvent(ctx context.Context, tx *sql.Tx, ledger *models.Ledger, kind models.CoinEventKind, coins int64, money decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO coin_events (account_id, kind, coins_delta, money_delta, coins_after, money_after)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ledger.AccountID, string(kind), coins, money, ledger.Coins, ledger.Money)
	if err != nil {
		return fmt.Errorf("failed to record coin event: %w", err)
	}
	return nil
}

func scanLedger(row rowScanner) (*models.Ledger, error) {
	var ledger models.Ledger
	if err := row.Scan(&ledger.ID, &ledger.AccountID, &ledger.Coins, &ledger.Money, &ledger.UpdatedAt); err != nil {
		return nil, err
	}
	return &ledger, nil
}
