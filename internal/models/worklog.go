package models

import (
	"database/sql"
	"time"
)

type WorkLog struct {
	ID            string          `db:"id"`
	AgreementID   string          `db:"agreement_id"`
	WorkerID      string          `db:"worker_id"`
	Hours         float64         `db:"hours"`
	Days          float64         `db:"days"`
	Description   string          `db:"description"`
	WorkDate      time.Time       `db:"work_date"`
	Status        string          `db:"status"`
	Amount        sql.NullFloat64 `db:"amount"`
	PolicyVersion sql.NullInt32   `db:"policy_version"`
	Paid          bool            `db:"paid"`
	ApprovedBy    sql.NullString  `db:"approved_by"`
	ApprovedAt    sql.NullTime    `db:"approved_at"`
	RejectReason  sql.NullString  `db:"reject_reason"`
	PaymentDate   sql.NullTime    `db:"payment_date"`
	PaymentMethod sql.NullString  `db:"payment_method"`
	TransactionID sql.NullString  `db:"transaction_id"`
	CreatedAt     time.Time       `db:"created_at"`
}
