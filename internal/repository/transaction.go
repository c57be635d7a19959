package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

// ledger entry types
const (
	TransactionTypeDeposit         = "deposit"
	TransactionTypeEscrowLock      = "escrow_lock"
	TransactionTypeEscrowRelease   = "escrow_release"
	TransactionTypePaymentReceived = "payment_received"
)

const (
	TransactionDirectionCredit = "credit"
	TransactionDirectionDebit  = "debit"
)

// Ledger entries never exist in a partial state; a row is only written once
// the wallet mutation it records has happened in the same database transaction.
const TransactionStatusCompleted = "completed"

type TransactionRepository interface {
	Insert(transaction *models.Transaction, tx *sqlx.Tx) (*models.Transaction, error)
	ListByWallet(walletID string, page, pageSize int, includeArchived bool) ([]models.Transaction, error)
	Latest(walletID string) (*models.Transaction, bool, error)
	FindByReference(referenceNumber string) (*models.Transaction, bool, error)
	// ArchiveOlderThan moves ledger rows past the retention cutoff into the
	// archive table. Rows are moved, never deleted; the ledger stays complete.
	ArchiveOlderThan(cutoff time.Time) (int64, error)
}

type TransactionRepositoryImpl struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) TransactionRepository {
	return &TransactionRepositoryImpl{db: db}
}

func (repo *TransactionRepositoryImpl) Insert(transaction *models.Transaction, tx *sqlx.Tx) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created models.Transaction

	query := `
		INSERT INTO transactions (wallet_id, type, direction, amount, description, reference_number, agreement_id, work_log_id, balance_after, escrow_balance_after)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, wallet_id, type, direction, amount, description, reference_number, agreement_id, work_log_id, status, balance_after, escrow_balance_after, created_at`

	args := []any{
		transaction.WalletID,
		transaction.Type,
		transaction.Direction,
		transaction.Amount,
		transaction.Description,
		transaction.ReferenceNumber,
		transaction.AgreementID,
		transaction.WorkLogID,
		transaction.BalanceAfter,
		transaction.EscrowBalanceAfter,
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

func (repo *TransactionRepositoryImpl) ListByWallet(walletID string, page, pageSize int, includeArchived bool) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	source := `transactions`
	if includeArchived {
		source = `(SELECT * FROM transactions UNION ALL SELECT * FROM transactions_archive) t`
	}

	query := fmt.Sprintf(`
        SELECT id, wallet_id, type, direction, amount, description, reference_number, agreement_id, work_log_id, status, balance_after, escrow_balance_after, created_at
        FROM %s
        WHERE wallet_id=$1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`, source)

	var transactions []models.Transaction
	err := repo.db.SelectContext(ctx, &transactions, query, walletID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}

func (repo *TransactionRepositoryImpl) Latest(walletID string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transaction models.Transaction

	query := `
        SELECT id, wallet_id, type, direction, amount, description, reference_number, agreement_id, work_log_id, status, balance_after, escrow_balance_after, created_at
        FROM transactions WHERE wallet_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`

	err := repo.db.GetContext(ctx, &transaction, query, walletID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &transaction, true, nil
}

func (repo *TransactionRepositoryImpl) FindByReference(referenceNumber string) (*models.Transaction, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var transaction models.Transaction

	query := `
        SELECT id, wallet_id, type, direction, amount, description, reference_number, agreement_id, work_log_id, status, balance_after, escrow_balance_after, created_at
        FROM transactions WHERE reference_number=$1 LIMIT 1`

	err := repo.db.GetContext(ctx, &transaction, query, referenceNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &transaction, true, nil
}

func (repo *TransactionRepositoryImpl) ArchiveOlderThan(cutoff time.Time) (int64, error) {
	// archiving can move a lot of rows, give it more room than a point query
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
		WITH moved AS (
			DELETE FROM transactions WHERE created_at < $1 RETURNING *
		)
		INSERT INTO transactions_archive SELECT * FROM moved`

	result, err := tx.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return count, nil
}
