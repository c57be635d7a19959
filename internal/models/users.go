package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID             string         `db:"id"`
	FirstName      string         `db:"first_name"`
	LastName       string         `db:"last_name"`
	PhoneNumber    string         `db:"phone_number"`
	Image          sql.NullString `db:"image"`
	Role           string         `db:"role"`
	Headline       sql.NullString `db:"headline"`
	Email          string         `db:"email"`
	Status         string         `db:"status"`
	Rating         float64        `db:"rating"`
	RatingCount    int            `db:"rating_count"`
	CreatedAt      time.Time      `db:"created_at"`
	DeletedAt      sql.NullTime   `db:"deleted_at"`
	VerifiedAt     sql.NullTime   `db:"verified_at"`
	HashedPassword string         `db:"hashed_password"`
}
