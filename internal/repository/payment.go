package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

const (
	PaymentProcessingStatus = "processing"
	PaymentSettledStatus    = "settled"
	PaymentFailedStatus     = "failed"
)

type PaymentRepository interface {
	Insert(payment *models.Payment, tx *sqlx.Tx) (*models.Payment, error)
	GetOne(id string) (*models.Payment, bool, error)
	FindSettledByWorkLog(workLogID string) (*models.Payment, bool, error)
	MarkSettled(id, transactionID string, tx *sqlx.Tx) error
	MarkFailed(id, reason string) error
	ListByUser(userID string) ([]models.Payment, error)
	TotalVolume() (float64, error)
}

type PaymentRepositoryImpl struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &PaymentRepositoryImpl{db: db}
}

const paymentColumns = `id, agreement_id, work_log_id, employer_id, worker_id, amount, fee, method, reference, transaction_id, status, failure_reason, policy_version, created_at, settled_at`

func (repo *PaymentRepositoryImpl) Insert(payment *models.Payment, tx *sqlx.Tx) (*models.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created models.Payment

	query := `
		INSERT INTO payments (agreement_id, work_log_id, employer_id, worker_id, amount, fee, method, reference, policy_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + paymentColumns

	args := []any{
		payment.AgreementID,
		payment.WorkLogID,
		payment.EmployerID,
		payment.WorkerID,
		payment.Amount,
		payment.Fee,
		payment.Method,
		payment.Reference,
		payment.PolicyVersion,
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

func (repo *PaymentRepositoryImpl) GetOne(id string) (*models.Payment, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payment models.Payment

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id=$1`

	err := repo.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payment, true, nil
}

func (repo *PaymentRepositoryImpl) FindSettledByWorkLog(workLogID string) (*models.Payment, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payment models.Payment

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE work_log_id=$1 AND status=$2 LIMIT 1`

	err := repo.db.GetContext(ctx, &payment, query, workLogID, PaymentSettledStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &payment, true, nil
}

func (repo *PaymentRepositoryImpl) MarkSettled(id, transactionID string, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	// only a processing attempt can settle; a decided one updates zero rows
	query := `
		UPDATE payments SET status=$1, transaction_id=$2, settled_at=NOW() WHERE id=$3 AND status=$4`

	var result sql.Result
	var err error
	if tx != nil {
		result, err = tx.ExecContext(ctx, query, PaymentSettledStatus, transactionID, id, PaymentProcessingStatus)
	} else {
		result, err = repo.db.ExecContext(ctx, query, PaymentSettledStatus, transactionID, id, PaymentProcessingStatus)
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

func (repo *PaymentRepositoryImpl) MarkFailed(id, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `
		UPDATE payments SET status=$1, failure_reason=$2 WHERE id=$3`

	_, err := repo.db.ExecContext(ctx, query, PaymentFailedStatus, reason, id)
	return err
}

func (repo *PaymentRepositoryImpl) ListByUser(userID string) ([]models.Payment, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var payments []models.Payment

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE employer_id=$1 OR worker_id=$1 ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &payments, query, userID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (repo *PaymentRepositoryImpl) TotalVolume() (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var total float64

	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status=$1`

	err := repo.db.GetContext(ctx, &total, query, PaymentSettledStatus)
	if err != nil {
		return 0, err
	}

	return total, nil
}
