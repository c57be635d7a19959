package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

const (
	ApplicationPendingStatus  = "pending"
	ApplicationAcceptedStatus = "accepted"
	ApplicationRejectedStatus = "rejected"
)

type ApplicationRepository interface {
	Insert(application *models.Application, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.Application, bool, error)
	HasApplied(jobID, workerID string) (bool, error)
	ListByJob(jobID string) ([]models.Application, error)
	ListByWorker(workerID string) ([]models.Application, error)
	UpdateStatus(id, status string, tx *sqlx.Tx) error
	RejectOthers(jobID, acceptedID string, tx *sqlx.Tx) error
}

type ApplicationRepositoryImpl struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) ApplicationRepository {
	return &ApplicationRepositoryImpl{db: db}
}

const applicationDetailQuery = `
	SELECT ap.id, ap.job_id, ap.worker_id, ap.cover_letter, ap.status, ap.created_at, ap.decided_at,
	       u.first_name AS worker_first_name, u.last_name AS worker_last_name, u.rating AS worker_rating,
	       j.title AS job_title
	FROM applications ap
	JOIN users u ON u.id = ap.worker_id
	JOIN jobs j ON j.id = ap.job_id`

func (repo *ApplicationRepositoryImpl) Insert(application *models.Application, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO applications (job_id, worker_id, cover_letter)
		VALUES ($1, $2, $3)
		RETURNING id`

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, application.JobID, application.WorkerID, application.CoverLetter).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query, application.JobID, application.WorkerID, application.CoverLetter)
	}
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *ApplicationRepositoryImpl) GetOne(id string) (*models.Application, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var application models.Application

	query := applicationDetailQuery + ` WHERE ap.id=$1`

	err := repo.db.GetContext(ctx, &application, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &application, true, nil
}

func (repo *ApplicationRepositoryImpl) HasApplied(jobID, workerID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM applications WHERE job_id=$1 AND worker_id=$2)`

	err := repo.db.GetContext(ctx, &exists, query, jobID, workerID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (repo *ApplicationRepositoryImpl) ListByJob(jobID string) ([]models.Application, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var applications []models.Application

	query := applicationDetailQuery + ` WHERE ap.job_id=$1 ORDER BY ap.created_at ASC`

	err := repo.db.SelectContext(ctx, &applications, query, jobID)
	if err != nil {
		return nil, err
	}

	return applications, nil
}

func (repo *ApplicationRepositoryImpl) ListByWorker(workerID string) ([]models.Application, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var applications []models.Application

	query := applicationDetailQuery + ` WHERE ap.worker_id=$1 ORDER BY ap.created_at DESC`

	err := repo.db.SelectContext(ctx, &applications, query, workerID)
	if err != nil {
		return nil, err
	}

	return applications, nil
}

func (repo *ApplicationRepositoryImpl) UpdateStatus(id, status string, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE applications SET status=$1, decided_at=NOW() WHERE id=$2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, id)
	} else {
		_, err = repo.db.ExecContext(ctx, query, status, id)
	}
	return err
}

// RejectOthers closes out every other pending application for a job once one
// has been accepted.
func (repo *ApplicationRepositoryImpl) RejectOthers(jobID, acceptedID string, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE applications SET status=$1, decided_at=NOW()
		WHERE job_id=$2 AND id != $3 AND status=$4`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, ApplicationRejectedStatus, jobID, acceptedID, ApplicationPendingStatus)
	} else {
		_, err = repo.db.ExecContext(ctx, query, ApplicationRejectedStatus, jobID, acceptedID, ApplicationPendingStatus)
	}
	return err
}
