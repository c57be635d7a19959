package models

import (
	"database/sql"
	"time"
)

// Transaction is one immutable ledger entry. Amount is stored as an absolute
// value; Direction says whether the entry credits or debits the wallet, which
// is what clients use to render signed amounts.
type Transaction struct {
	ID                 string          `db:"id"`
	WalletID           string          `db:"wallet_id"`
	Type               string          `db:"type"`
	Direction          string          `db:"direction"`
	Amount             float64         `db:"amount"`
	Description        sql.NullString  `db:"description"`
	ReferenceNumber    string          `db:"reference_number"`
	AgreementID        sql.NullString  `db:"agreement_id"`
	WorkLogID          sql.NullString  `db:"work_log_id"`
	Status             string          `db:"status"`
	BalanceAfter       float64         `db:"balance_after"`
	EscrowBalanceAfter sql.NullFloat64 `db:"escrow_balance_after"`
	CreatedAt          time.Time       `db:"created_at"`
}
