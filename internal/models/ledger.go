package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CoinEventKind string

const (
	CoinEventEarn   CoinEventKind = "EARN"
	CoinEventRedeem CoinEventKind = "REDEEM"
)

// Ledger holds the coin and money balances of one account.
type Ledger struct {
	ID        int64           `json:"id" db:"id"`
	AccountID int64           `json:"account_id" db:"account_id"`
	Coins     int64           `json:"coins" db:"coins"`
	Money     decimal.Decimal `json:"money" db:"money"` // NUMERIC(10,2)
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// EmptyLedger is what callers see for an account whose ledger row is missing.
func EmptyLedger(accountID int64) *Ledger {
	return &Ledger{AccountID: accountID, Money: decimal.Zero}
}

type CoinEvent struct {
	ID         int64           `json:"id" db:"id"`
	AccountID  int64           `json:"account_id" db:"account_id"`
	Kind       CoinEventKind   `json:"kind" db:"kind"`
	CoinsDelta int64           `json:"coins_delta" db:"coins_delta"`
	MoneyDelta decimal.Decimal `json:"money_delta" db:"money_delta"`
	CoinsAfter int64           `json:"coins_after" db:"coins_after"`
	MoneyAfter decimal.Decimal `json:"money_after" db:"money_after"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}
