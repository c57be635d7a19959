package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/cache"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

const summaryCacheTTL = 30 * time.Second

// EscrowService moves funds between a wallet's spendable and escrow
// sub-balances, and between two users' wallets, always inside one database
// transaction so the ledger entry and the balance it records can never
// disagree. This replaces the read-modify-write-the-whole-blob scheme the
// original demo used, which could silently lose updates across tabs.
type EscrowService struct {
	db     repository.Database
	cache  *cache.Cache
	logger *slog.Logger
}

func NewEscrowService(db repository.Database, c *cache.Cache, logger *slog.Logger) *EscrowService {
	return &EscrowService{
		db:     db,
		cache:  c,
		logger: logger,
	}
}

// InitWallet creates a zero-balance wallet for the user if none exists.
// Calling it again is a no-op returning the existing wallet.
func (s *EscrowService) InitWallet(userID string) (*models.Wallet, error) {
	return s.db.Wallet().GetOrCreate(userID)
}

// AddFunds credits the spendable balance and appends a deposit entry.
// Non-positive amounts are rejected outright rather than silently debiting.
func (s *EscrowService) AddFunds(ctx context.Context, userID string, amount float64, description string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	var updated *models.Wallet
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		locked, found, err := s.db.Wallet().GetForUpdate(userID, tx)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("wallet vanished for user %s", userID)
		}

		updated, err = s.db.Wallet().Deposit(locked.ID, amount, tx)
		if err != nil {
			return err
		}

		_, err = s.db.Transaction().Insert(&models.Transaction{
			WalletID:           updated.ID,
			Type:               repository.TransactionTypeDeposit,
			Direction:          repository.TransactionDirectionCredit,
			Amount:             amount,
			Description:        sql.NullString{String: description, Valid: description != ""},
			ReferenceNumber:    newReference(),
			BalanceAfter:       updated.Balance,
			EscrowBalanceAfter: sql.NullFloat64{Float64: updated.EscrowBalance, Valid: true},
		}, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(wallet.UserID)
	return updated, nil
}

// MoveToEscrow earmarks part of the spendable balance for an agreement before
// any work is approved. The whole movement is one ledger entry of type
// escrow_lock recording both post-amounts.
func (s *EscrowService) MoveToEscrow(ctx context.Context, userID string, amount float64, agreementID, description string) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	_, found, err := s.db.Agreement().GetOne(agreementID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAgreementNotFound
	}

	if _, err := s.db.Wallet().GetOrCreate(userID); err != nil {
		return nil, err
	}

	var updated *models.Wallet
	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		locked, found, err := s.db.Wallet().GetForUpdate(userID, tx)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("wallet vanished for user %s", userID)
		}

		if locked.Balance < amount {
			return ErrInsufficientBalance
		}

		updated, err = s.db.Wallet().MoveToEscrow(locked.ID, amount, tx)
		if err != nil {
			return err
		}

		_, err = s.db.Transaction().Insert(&models.Transaction{
			WalletID:           updated.ID,
			Type:               repository.TransactionTypeEscrowLock,
			Direction:          repository.TransactionDirectionDebit,
			Amount:             amount,
			Description:        sql.NullString{String: description, Valid: description != ""},
			ReferenceNumber:    newReference(),
			AgreementID:        sql.NullString{String: agreementID, Valid: true},
			BalanceAfter:       updated.Balance,
			EscrowBalanceAfter: sql.NullFloat64{Float64: updated.EscrowBalance, Valid: true},
		}, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(userID)
	return updated, nil
}

// ReleaseResult carries both sides of a settled escrow release.
type ReleaseResult struct {
	EmployerWallet *models.Wallet
	WorkerWallet   *models.Wallet
	// CreditTransaction is the worker-side payment_received ledger entry; its
	// ID is what gets stamped onto the paid work log.
	CreditTransaction *models.Transaction
	Reference         string
	Amount            float64
}

// ReleaseFromEscrow settles an approved work log: the employer's escrow
// balance goes down, the worker's spendable balance goes up, and both sides
// get one ledger entry sharing a reference number. Both wallet rows are
// locked for the duration, in a deterministic order so two concurrent
// releases cannot deadlock.
func (s *EscrowService) ReleaseFromEscrow(ctx context.Context, agreementID, workLogID string) (*ReleaseResult, error) {
	return s.ReleaseFromEscrowWith(ctx, agreementID, workLogID, nil)
}

// ReleaseFromEscrowWith runs post inside the same database transaction as the
// transfer, after both ledger entries exist. The payout pipeline uses it to
// mark the work log paid and the payment settled atomically with the money
// movement.
func (s *EscrowService) ReleaseFromEscrowWith(ctx context.Context, agreementID, workLogID string, post func(tx *sqlx.Tx, result *ReleaseResult) error) (*ReleaseResult, error) {
	agreement, found, err := s.db.Agreement().GetOne(agreementID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAgreementNotFound
	}

	workLog, found, err := s.db.WorkLog().GetOne(workLogID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrWorkLogNotFound
	}
	if workLog.AgreementID != agreement.ID {
		return nil, ErrWorkLogMismatch
	}
	if workLog.Status != repository.WorkLogApprovedStatus {
		return nil, ErrWorkLogNotApproved
	}
	if workLog.Paid {
		return nil, ErrWorkLogAlreadyPaid
	}
	if !workLog.Amount.Valid {
		// the original demo defaulted a missing payout to zero and "released"
		// nothing while claiming success; this is a hard error now
		return nil, ErrPaymentRecordMissing
	}
	amount := workLog.Amount.Float64

	// make sure both wallets exist before locking anything
	if _, err := s.db.Wallet().GetOrCreate(agreement.EmployerID); err != nil {
		return nil, err
	}
	if _, err := s.db.Wallet().GetOrCreate(agreement.WorkerID); err != nil {
		return nil, err
	}

	reference := newReference()
	result := &ReleaseResult{Reference: reference, Amount: amount}

	err = s.withTx(ctx, func(tx *sqlx.Tx) error {
		// lock order: smaller user id first
		first, second := agreement.EmployerID, agreement.WorkerID
		if second < first {
			first, second = second, first
		}
		wallets := make(map[string]*models.Wallet, 2)
		for _, id := range []string{first, second} {
			w, found, err := s.db.Wallet().GetForUpdate(id, tx)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("wallet vanished for user %s", id)
			}
			wallets[id] = w
		}

		employerWallet := wallets[agreement.EmployerID]
		workerWallet := wallets[agreement.WorkerID]

		if employerWallet.EscrowBalance < amount {
			return ErrInsufficientEscrowBalance
		}

		result.EmployerWallet, err = s.db.Wallet().DebitEscrow(employerWallet.ID, amount, tx)
		if err != nil {
			return err
		}

		result.WorkerWallet, err = s.db.Wallet().Credit(workerWallet.ID, amount, tx)
		if err != nil {
			return err
		}

		description := fmt.Sprintf("Payment for work on %q", agreement.JobTitle)

		_, err = s.db.Transaction().Insert(&models.Transaction{
			WalletID:           result.EmployerWallet.ID,
			Type:               repository.TransactionTypeEscrowRelease,
			Direction:          repository.TransactionDirectionDebit,
			Amount:             amount,
			Description:        sql.NullString{String: description, Valid: true},
			ReferenceNumber:    reference,
			AgreementID:        sql.NullString{String: agreement.ID, Valid: true},
			WorkLogID:          sql.NullString{String: workLog.ID, Valid: true},
			BalanceAfter:       result.EmployerWallet.Balance,
			EscrowBalanceAfter: sql.NullFloat64{Float64: result.EmployerWallet.EscrowBalance, Valid: true},
		}, tx)
		if err != nil {
			return err
		}

		result.CreditTransaction, err = s.db.Transaction().Insert(&models.Transaction{
			WalletID:           result.WorkerWallet.ID,
			Type:               repository.TransactionTypePaymentReceived,
			Direction:          repository.TransactionDirectionCredit,
			Amount:             amount,
			Description:        sql.NullString{String: description, Valid: true},
			ReferenceNumber:    reference,
			AgreementID:        sql.NullString{String: agreement.ID, Valid: true},
			WorkLogID:          sql.NullString{String: workLog.ID, Valid: true},
			BalanceAfter:       result.WorkerWallet.Balance,
			EscrowBalanceAfter: sql.NullFloat64{Float64: result.WorkerWallet.EscrowBalance, Valid: true},
		}, tx)
		if err != nil {
			return err
		}

		if post != nil {
			return post(tx, result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSummary(agreement.EmployerID)
	s.invalidateSummary(agreement.WorkerID)
	return result, nil
}

// Summary returns {available, escrow, total}. Cached briefly in Redis;
// invalidated on every mutation.
func (s *EscrowService) Summary(ctx context.Context, userID string) (*models.WalletSummary, error) {
	var summary models.WalletSummary
	if s.cache != nil {
		found, err := s.cache.GetJSON(summaryCacheKey(userID), &summary)
		if err != nil {
			s.logger.Warn("wallet summary cache read", "error", err)
		} else if found {
			return &summary, nil
		}
	}

	wallet, err := s.db.Wallet().GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	summary = models.WalletSummary{
		Available: wallet.Balance,
		Escrow:    wallet.EscrowBalance,
		Total:     math.Round((wallet.Balance+wallet.EscrowBalance)*100) / 100,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(summaryCacheKey(userID), summary, summaryCacheTTL); err != nil {
			s.logger.Warn("wallet summary cache write", "error", err)
		}
	}

	return &summary, nil
}

// History is the paginated, newest-first transaction projection.
func (s *EscrowService) History(ctx context.Context, userID string, page, pageSize int, includeArchived bool) ([]models.Transaction, error) {
	wallet, err := s.db.Wallet().GetOrCreate(userID)
	if err != nil {
		return nil, err
	}

	return s.db.Transaction().ListByWallet(wallet.ID, page, pageSize, includeArchived)
}

func (s *EscrowService) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *EscrowService) invalidateSummary(userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(summaryCacheKey(userID)); err != nil {
		s.logger.Warn("wallet summary cache invalidate", "error", err)
	}
}

func summaryCacheKey(userID string) string {
	return "wallet:summary:" + userID
}

func newReference() string {
	return uuid.NewString()
}
