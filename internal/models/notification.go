package models

import "time"

type Notification struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Kind      string    `db:"kind"`
	Message   string    `db:"message"`
	Data      []byte    `db:"data"`
	Read      bool      `db:"read"`
	CreatedAt time.Time `db:"created_at"`
}
