package models

import (
	"database/sql"
	"time"
)

type Wallet struct {
	ID            string       `db:"id"`
	UserID        string       `db:"user_id"`
	Balance       float64      `db:"balance"`
	EscrowBalance float64      `db:"escrow_balance"`
	Currency      string       `db:"currency"`
	Status        string       `db:"status"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     sql.NullTime `db:"updated_at"`
}

// WalletSummary is the read-only projection served to clients:
// Total is always Available + Escrow.
type WalletSummary struct {
	Available float64 `json:"available"`
	Escrow    float64 `json:"escrow"`
	Total     float64 `json:"total"`
}
