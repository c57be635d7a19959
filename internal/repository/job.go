package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

const (
	JobOpenStatus   = "open"
	JobClosedStatus = "closed"
)

type JobRepository interface {
	Insert(job *models.Job, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.Job, bool, error)
	ListOpen(search string, page, pageSize int) ([]models.Job, error)
	ListByEmployer(employerID string) ([]models.Job, error)
	Close(id string, tx *sqlx.Tx) error
	Count() (int, error)
}

type JobRepositoryImpl struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) JobRepository {
	return &JobRepositoryImpl{db: db}
}

const jobDetailQuery = `
	SELECT j.id, j.employer_id, j.title, j.description, j.category, j.location, j.terms_type, j.rate, j.status, j.created_at, j.closed_at,
	       u.first_name AS employer_first_name, u.last_name AS employer_last_name
	FROM jobs j
	JOIN users u ON u.id = j.employer_id`

func (repo *JobRepositoryImpl) Insert(job *models.Job, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO jobs (employer_id, title, description, category, location, terms_type, rate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	args := []any{
		job.EmployerID,
		job.Title,
		job.Description,
		job.Category,
		job.Location,
		job.TermsType,
		job.Rate,
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

func (repo *JobRepositoryImpl) GetOne(id string) (*models.Job, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var job models.Job

	query := jobDetailQuery + ` WHERE j.id=$1`

	err := repo.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &job, true, nil
}

func (repo *JobRepositoryImpl) ListOpen(search string, page, pageSize int) ([]models.Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var jobs []models.Job

	query := jobDetailQuery + `
		WHERE j.status=$1 AND ($2 = '' OR j.title ILIKE '%' || $2 || '%' OR j.category ILIKE '%' || $2 || '%')
		ORDER BY j.created_at DESC
		LIMIT $3 OFFSET $4`

	err := repo.db.SelectContext(ctx, &jobs, query, JobOpenStatus, search, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func (repo *JobRepositoryImpl) ListByEmployer(employerID string) ([]models.Job, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var jobs []models.Job

	query := jobDetailQuery + ` WHERE j.employer_id=$1 ORDER BY j.created_at DESC`

	err := repo.db.SelectContext(ctx, &jobs, query, employerID)
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func (repo *JobRepositoryImpl) Close(id string, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE jobs SET status=$1, closed_at=NOW() WHERE id=$2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, JobClosedStatus, id)
	} else {
		_, err = repo.db.ExecContext(ctx, query, JobClosedStatus, id)
	}
	return err
}

func (repo *JobRepositoryImpl) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM jobs`

	err := repo.db.GetContext(ctx, &count, query)
	if err != nil {
		return 0, err
	}

	return count, nil
}
