package models

import (
	"database/sql"
	"time"
)

type Application struct {
	ID          string       `db:"id"`
	JobID       string       `db:"job_id"`
	WorkerID    string       `db:"worker_id"`
	CoverLetter string       `db:"cover_letter"`
	Status      string       `db:"status"`
	CreatedAt   time.Time    `db:"created_at"`
	DecidedAt   sql.NullTime `db:"decided_at"`

	WorkerFirstName string  `db:"worker_first_name"`
	WorkerLastName  string  `db:"worker_last_name"`
	WorkerRating    float64 `db:"worker_rating"`
	JobTitle        string  `db:"job_title"`
}
