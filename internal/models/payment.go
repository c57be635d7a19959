package models

import (
	"database/sql"
	"time"
)

// Payment is a derived view over the ledger, not a second source of truth:
// every completed payment references the escrow-release transaction that moved
// the money. It exists to carry gateway metadata (method, fee, reference) that
// has no place on a wallet transaction.
type Payment struct {
	ID            string         `db:"id"`
	AgreementID   string         `db:"agreement_id"`
	WorkLogID     string         `db:"work_log_id"`
	EmployerID    string         `db:"employer_id"`
	WorkerID      string         `db:"worker_id"`
	Amount        float64        `db:"amount"`
	Fee           float64        `db:"fee"`
	Method        string         `db:"method"`
	Reference     string         `db:"reference"`
	TransactionID sql.NullString `db:"transaction_id"`
	Status        string         `db:"status"`
	FailureReason sql.NullString `db:"failure_reason"`
	PolicyVersion int            `db:"policy_version"`
	CreatedAt     time.Time      `db:"created_at"`
	SettledAt     sql.NullTime   `db:"settled_at"`
}
