package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

const (
	AgreementActiveStatus    = "active"
	AgreementCompletedStatus = "completed"
	AgreementCancelledStatus = "cancelled"
)

// payment-terms types shared by jobs and agreements
const (
	TermsTypeHourly    = "hourly"
	TermsTypeMonthly   = "monthly"
	TermsTypeFixed     = "fixed"
	TermsTypeMilestone = "milestone"
)

type AgreementRepository interface {
	Insert(agreement *models.Agreement, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.Agreement, bool, error)
	GetAllByEmployer(employerID string) ([]models.Agreement, error)
	GetAllByWorker(workerID string) ([]models.Agreement, error)
	UpdateStatus(id, status string, tx *sqlx.Tx) error
}

type AgreementRepositoryImpl struct {
	db *sqlx.DB
}

func NewAgreementRepository(db *sqlx.DB) AgreementRepository {
	return &AgreementRepositoryImpl{db: db}
}

func (repo *AgreementRepositoryImpl) Insert(agreement *models.Agreement, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO agreements (job_id, employer_id, worker_id, job_title, terms_type, rate)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	args := []any{
		agreement.JobID,
		agreement.EmployerID,
		agreement.WorkerID,
		agreement.JobTitle,
		agreement.TermsType,
		agreement.Rate,
	}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query, args...)
	}
	if err != nil {
		return "", err
	}

	return id, nil
}

const agreementDetailQuery = `
	SELECT a.id, a.job_id, a.employer_id, a.worker_id, a.job_title, a.status, a.terms_type, a.rate, a.created_at, a.completed_at,
	       e.first_name AS employer_first_name, e.last_name AS employer_last_name,
	       w.first_name AS worker_first_name, w.last_name AS worker_last_name
	FROM agreements a
	JOIN users e ON e.id = a.employer_id
	JOIN users w ON w.id = a.worker_id`

func (repo *AgreementRepositoryImpl) GetOne(id string) (*models.Agreement, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var agreement models.Agreement

	query := agreementDetailQuery + ` WHERE a.id=$1`

	err := repo.db.GetContext(ctx, &agreement, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &agreement, true, nil
}

func (repo *AgreementRepositoryImpl) GetAllByEmployer(employerID string) ([]models.Agreement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var agreements []models.Agreement

	query := agreementDetailQuery + ` WHERE a.employer_id=$1 ORDER BY a.created_at DESC`

	err := repo.db.SelectContext(ctx, &agreements, query, employerID)
	if err != nil {
		return nil, err
	}

	return agreements, nil
}

func (repo *AgreementRepositoryImpl) GetAllByWorker(workerID string) ([]models.Agreement, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var agreements []models.Agreement

	query := agreementDetailQuery + ` WHERE a.worker_id=$1 ORDER BY a.created_at DESC`

	err := repo.db.SelectContext(ctx, &agreements, query, workerID)
	if err != nil {
		return nil, err
	}

	return agreements, nil
}

func (repo *AgreementRepositoryImpl) UpdateStatus(id, status string, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE agreements
		SET status=$1, completed_at=CASE WHEN $1='completed' THEN NOW() ELSE completed_at END
		WHERE id=$2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, id)
	} else {
		_, err = repo.db.ExecContext(ctx, query, status, id)
	}
	return err
}
