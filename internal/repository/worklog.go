package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

const (
	WorkLogPendingStatus  = "pending"
	WorkLogApprovedStatus = "approved"
	WorkLogRejectedStatus = "rejected"
)

type WorkLogRepository interface {
	Insert(workLog *models.WorkLog, tx *sqlx.Tx) (*models.WorkLog, error)
	GetOne(id string) (*models.WorkLog, bool, error)
	// Approve stamps the approver and the computed payout in one statement.
	// Only a pending log can be approved; zero rows affected means the log was
	// already decided.
	Approve(id, approvedBy string, amount float64, policyVersion int, tx *sqlx.Tx) (bool, error)
	Reject(id, rejectedBy, reason string) (bool, error)
	MarkPaid(id, method, transactionID string, tx *sqlx.Tx) error
	PendingByEmployer(employerID string) ([]models.WorkLog, error)
	ListByWorker(workerID string) ([]models.WorkLog, error)
	ListByAgreement(agreementID string) ([]models.WorkLog, error)
}

type WorkLogRepositoryImpl struct {
	db *sqlx.DB
}

func NewWorkLogRepository(db *sqlx.DB) WorkLogRepository {
	return &WorkLogRepositoryImpl{db: db}
}

const workLogColumns = `id, agreement_id, worker_id, hours, days, description, work_date, status, amount, policy_version, paid, approved_by, approved_at, reject_reason, payment_date, payment_method, transaction_id, created_at`

func (repo *WorkLogRepositoryImpl) Insert(workLog *models.WorkLog, tx *sqlx.Tx) (*models.WorkLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created models.WorkLog

	query := `
		INSERT INTO work_logs (agreement_id, worker_id, hours, days, description, work_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + workLogColumns

	args := []any{
		workLog.AgreementID,
		workLog.WorkerID,
		workLog.Hours,
		workLog.Days,
		workLog.Description,
		workLog.WorkDate,
	}

	var err error
	if tx != nil {
		err = tx.GetContext(ctx, &created, query, args...)
	} else {
		err = repo.db.GetContext(ctx, &created, query, args...)
	}
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (repo *WorkLogRepositoryImpl) GetOne(id string) (*models.WorkLog, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var workLog models.WorkLog

	query := `SELECT ` + workLogColumns + ` FROM work_logs WHERE id=$1`

	err := repo.db.GetContext(ctx, &workLog, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &workLog, true, nil
}

func (repo *WorkLogRepositoryImpl) Approve(id, approvedBy string, amount float64, policyVersion int, tx *sqlx.Tx) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE work_logs
		SET status=$1, approved_by=$2, approved_at=NOW(), amount=$3, policy_version=$4
		WHERE id=$5 AND status=$6`

	args := []any{WorkLogApprovedStatus, approvedBy, amount, policyVersion, id, WorkLogPendingStatus}

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, args...)
	} else {
		result, err = repo.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (repo *WorkLogRepositoryImpl) Reject(id, rejectedBy, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE work_logs
		SET status=$1, approved_by=$2, approved_at=NOW(), reject_reason=$3
		WHERE id=$4 AND status=$5`

	result, err := repo.db.ExecContext(ctx, query, WorkLogRejectedStatus, rejectedBy, reason, id, WorkLogPendingStatus)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected == 1, nil
}

func (repo *WorkLogRepositoryImpl) MarkPaid(id, method, transactionID string, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	// the paid guard makes concurrent settlements of one work log serialize:
	// the loser updates zero rows and its transaction rolls back
	query := `
		UPDATE work_logs
		SET paid=TRUE, payment_date=NOW(), payment_method=$1, transaction_id=$2
		WHERE id=$3 AND paid=FALSE`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, method, transactionID, id)
	} else {
		result, err = repo.db.ExecContext(ctx, query, method, transactionID, id)
	}
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (repo *WorkLogRepositoryImpl) PendingByEmployer(employerID string) ([]models.WorkLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var workLogs []models.WorkLog

	query := `
		SELECT w.id, w.agreement_id, w.worker_id, w.hours, w.days, w.description, w.work_date, w.status, w.amount, w.policy_version, w.paid, w.approved_by, w.approved_at, w.reject_reason, w.payment_date, w.payment_method, w.transaction_id, w.created_at
		FROM work_logs w
		JOIN agreements a ON a.id = w.agreement_id
		WHERE a.employer_id=$1 AND w.status=$2
		ORDER BY w.created_at ASC`

	err := repo.db.SelectContext(ctx, &workLogs, query, employerID, WorkLogPendingStatus)
	if err != nil {
		return nil, err
	}

	return workLogs, nil
}

func (repo *WorkLogRepositoryImpl) ListByWorker(workerID string) ([]models.WorkLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var workLogs []models.WorkLog

	query := `SELECT ` + workLogColumns + ` FROM work_logs WHERE worker_id=$1 ORDER BY work_date DESC, created_at DESC`

	err := repo.db.SelectContext(ctx, &workLogs, query, workerID)
	if err != nil {
		return nil, err
	}

	return workLogs, nil
}

func (repo *WorkLogRepositoryImpl) ListByAgreement(agreementID string) ([]models.WorkLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var workLogs []models.WorkLog

	query := `SELECT ` + workLogColumns + ` FROM work_logs WHERE agreement_id=$1 ORDER BY work_date ASC`

	err := repo.db.SelectContext(ctx, &workLogs, query, agreementID)
	if err != nil {
		return nil, err
	}

	return workLogs, nil
}
