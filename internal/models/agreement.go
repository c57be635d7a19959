package models

import (
	"database/sql"
	"time"
)

type Agreement struct {
	ID          string       `db:"id"`
	JobID       string       `db:"job_id"`
	EmployerID  string       `db:"employer_id"`
	WorkerID    string       `db:"worker_id"`
	JobTitle    string       `db:"job_title"`
	Status      string       `db:"status"`
	TermsType   string       `db:"terms_type"`
	Rate        float64      `db:"rate"`
	CreatedAt   time.Time    `db:"created_at"`
	CompletedAt sql.NullTime `db:"completed_at"`

	// populated on detail queries
	EmployerFirstName string `db:"employer_first_name"`
	EmployerLastName  string `db:"employer_last_name"`
	WorkerFirstName   string `db:"worker_first_name"`
	WorkerLastName    string `db:"worker_last_name"`
}
