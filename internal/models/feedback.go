package models

import "time"

type Feedback struct {
	ID          string    `db:"id"`
	AgreementID string    `db:"agreement_id"`
	AuthorID    string    `db:"author_id"`
	SubjectID   string    `db:"subject_id"`
	Rating      int       `db:"rating"`
	Comment     string    `db:"comment"`
	CreatedAt   time.Time `db:"created_at"`

	AuthorFirstName string `db:"author_first_name"`
	AuthorLastName  string `db:"author_last_name"`
}
