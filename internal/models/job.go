package models

import (
	"database/sql"
	"time"
)

type Job struct {
	ID          string       `db:"id"`
	EmployerID  string       `db:"employer_id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Category    string       `db:"category"`
	Location    string       `db:"location"`
	TermsType   string       `db:"terms_type"`
	Rate        float64      `db:"rate"`
	Status      string       `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	ClosedAt    sql.NullTime `db:"closed_at"`

	EmployerFirstName string `db:"employer_first_name"`
	EmployerLastName  string `db:"employer_last_name"`
}
