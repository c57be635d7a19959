package seeders

import (
	"context"
	"database/sql"
	"log"

	"github.com/cradoe/gopass"
)

// seedDemoAccounts creates the demo logins used for local walkthroughs: one
// employer with a funded wallet, one worker, one admin, and an open job to
// apply to. Seeding is idempotent; existing rows are left alone.
func (seeder *Seeder) seedDemoAccounts() {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	tx, err := seeder.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		log.Fatalf("Failed to start transaction: %v", err)
	}

	hashedPassword, err := gopass.Hash("Demo@1234")
	if err != nil {
		tx.Rollback()
		log.Fatalf("Failed to hash demo password: %v", err)
	}

	demoUsers := []struct {
		FirstName   string
		LastName    string
		Email       string
		PhoneNumber string
		Role        string
		Headline    string
		Balance     float64
	}{
		{
			FirstName:   "Asha",
			LastName:    "Mehta",
			Email:       "employer@opuslink.example",
			PhoneNumber: "+919810000001",
			Role:        "employer",
			Headline:    "Founder, Mehta Design Studio",
			Balance:     50000,
		},
		{
			FirstName:   "Ravi",
			LastName:    "Sharma",
			Email:       "worker@opuslink.example",
			PhoneNumber: "+919810000002",
			Role:        "worker",
			Headline:    "Full-stack developer",
		},
		{
			FirstName:   "Opus",
			LastName:    "Admin",
			Email:       "admin@opuslink.example",
			PhoneNumber: "+919810000003",
			Role:        "admin",
		},
	}

	userIDs := make(map[string]string, len(demoUsers))

	for _, demoUser := range demoUsers {
		var userID string
		err := tx.QueryRowContext(ctx, `
			INSERT INTO users (first_name, last_name, email, phone_number, role, headline, status, verified_at, hashed_password)
			VALUES ($1, $2, $3, $4, $5, $6, 'active', now(), $7)
			ON CONFLICT (email) DO NOTHING
			RETURNING id;`,
			demoUser.FirstName, demoUser.LastName, demoUser.Email, demoUser.PhoneNumber,
			demoUser.Role, demoUser.Headline, hashedPassword,
		).Scan(&userID)

		// Check if the insert failed due to conflict (no ID returned)
		if err == sql.ErrNoRows {
			err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = $1`, demoUser.Email).Scan(&userID)
		}

		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to insert or retrieve demo user '%s': %v", demoUser.Email, err)
		}

		userIDs[demoUser.Role] = userID

		_, err = tx.ExecContext(ctx, `
			INSERT INTO wallets (user_id, balance)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING;`,
			userID, demoUser.Balance,
		)
		if err != nil {
			tx.Rollback()
			log.Fatalf("Failed to insert wallet for demo user '%s': %v", demoUser.Email, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO jobs (employer_id, title, description, category, location, terms_type, rate)
		SELECT $1, 'Build a landing page', 'Responsive landing page for a design studio. Figma files provided.', 'Web Development', 'Remote', 'fixed', 30000
		WHERE NOT EXISTS (SELECT 1 FROM jobs WHERE employer_id = $1 AND title = 'Build a landing page');`,
		userIDs["employer"],
	)
	if err != nil {
		tx.Rollback()
		log.Fatalf("Failed to insert demo job: %v", err)
	}

	if err = tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}
}
