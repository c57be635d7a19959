package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opuslink/opuslink/internal/mocks"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

type escrowFixture struct {
	db         *mocks.MockDatabase
	wallets    *mocks.InMemoryWalletRepo
	ledger     *mocks.InMemoryTransactionRepo
	agreements *mocks.InMemoryAgreementRepo
	workLogs   *mocks.InMemoryWorkLogRepo
	escrow     *EscrowService
}

func newEscrowFixture(t *testing.T) *escrowFixture {
	t.Helper()

	db := mocks.NewMockDatabase()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &escrowFixture{
		db:         db,
		wallets:    db.WalletRepo.(*mocks.InMemoryWalletRepo),
		ledger:     db.TransactionRepo.(*mocks.InMemoryTransactionRepo),
		agreements: db.AgreementRepo.(*mocks.InMemoryAgreementRepo),
		workLogs:   db.WorkLogRepo.(*mocks.InMemoryWorkLogRepo),
		escrow:     NewEscrowService(db, nil, logger),
	}
}

func (f *escrowFixture) newAgreement(t *testing.T, employerID, workerID string) *models.Agreement {
	t.Helper()

	id, err := f.agreements.Insert(&models.Agreement{
		EmployerID: employerID,
		WorkerID:   workerID,
		JobTitle:   "Logo design",
		TermsType:  repository.TermsTypeHourly,
		Rate:       200,
	}, nil)
	require.NoError(t, err)

	agreement, found, err := f.agreements.GetOne(id)
	require.NoError(t, err)
	require.True(t, found)
	return agreement
}

func (f *escrowFixture) approvedWorkLog(t *testing.T, agreement *models.Agreement, amount float64) *models.WorkLog {
	t.Helper()

	workLog, err := f.workLogs.Insert(&models.WorkLog{
		AgreementID: agreement.ID,
		WorkerID:    agreement.WorkerID,
		Hours:       amount / agreement.Rate,
	}, nil)
	require.NoError(t, err)

	ok, err := f.workLogs.Approve(workLog.ID, agreement.EmployerID, amount, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	workLog, _, err = f.workLogs.GetOne(workLog.ID)
	require.NoError(t, err)
	return workLog
}

func TestInitWalletIsIdempotent(t *testing.T) {
	f := newEscrowFixture(t)

	first, err := f.escrow.InitWallet("user-1")
	require.NoError(t, err)
	require.Zero(t, first.Balance)
	require.Zero(t, first.EscrowBalance)

	second, err := f.escrow.InitWallet("user-1")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
}

func TestAddFunds(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	wallet, err := f.escrow.AddFunds(ctx, "emp-1", 2500, "Top up")
	require.NoError(t, err)
	require.Equal(t, 2500.0, wallet.Balance)
	require.Zero(t, wallet.EscrowBalance)

	entries := f.ledger.All()
	require.Len(t, entries, 1)
	require.Equal(t, repository.TransactionTypeDeposit, entries[0].Type)
	require.Equal(t, repository.TransactionDirectionCredit, entries[0].Direction)
	require.Equal(t, 2500.0, entries[0].Amount)
	require.Equal(t, 2500.0, entries[0].BalanceAfter)
	require.NotEmpty(t, entries[0].ReferenceNumber)
}

func TestAddFundsRejectsNonPositiveAmounts(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	_, err := f.escrow.AddFunds(ctx, "emp-1", 0, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.escrow.AddFunds(ctx, "emp-1", -50, "")
	require.ErrorIs(t, err, ErrInvalidAmount)

	require.Empty(t, f.ledger.All())
}

func TestMoveToEscrowUnknownAgreement(t *testing.T) {
	f := newEscrowFixture(t)

	_, err := f.escrow.MoveToEscrow(context.Background(), "emp-1", 1000, "missing", "")
	require.ErrorIs(t, err, ErrAgreementNotFound)
}

func TestMoveToEscrowInsufficientBalance(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, "emp-1", "wkr-1")

	_, err := f.escrow.AddFunds(ctx, "emp-1", 1000, "")
	require.NoError(t, err)

	_, err = f.escrow.MoveToEscrow(ctx, "emp-1", 4000, agreement.ID, "")
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// nothing moved, nothing written
	wallet, _, err := f.wallets.GetByUserID("emp-1")
	require.NoError(t, err)
	require.Equal(t, 1000.0, wallet.Balance)
	require.Zero(t, wallet.EscrowBalance)
	require.Len(t, f.ledger.All(), 1) // just the deposit
}

func TestMoveToEscrow(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, "emp-1", "wkr-1")

	_, err := f.escrow.AddFunds(ctx, "emp-1", 10000, "")
	require.NoError(t, err)

	wallet, err := f.escrow.MoveToEscrow(ctx, "emp-1", 4000, agreement.ID, "Escrow for logo design")
	require.NoError(t, err)
	require.Equal(t, 6000.0, wallet.Balance)
	require.Equal(t, 4000.0, wallet.EscrowBalance)

	entries := f.ledger.All()
	require.Len(t, entries, 2)
	lock := entries[1]
	require.Equal(t, repository.TransactionTypeEscrowLock, lock.Type)
	require.Equal(t, repository.TransactionDirectionDebit, lock.Direction)
	require.Equal(t, agreement.ID, lock.AgreementID.String)
	require.Equal(t, 6000.0, lock.BalanceAfter)
	require.Equal(t, 4000.0, lock.EscrowBalanceAfter.Float64)
}

func TestReleaseFromEscrow(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, "emp-1", "wkr-1")

	_, err := f.escrow.AddFunds(ctx, "emp-1", 10000, "")
	require.NoError(t, err)
	_, err = f.escrow.MoveToEscrow(ctx, "emp-1", 4000, agreement.ID, "")
	require.NoError(t, err)

	workLog := f.approvedWorkLog(t, agreement, 4000)

	result, err := f.escrow.ReleaseFromEscrow(ctx, agreement.ID, workLog.ID)
	require.NoError(t, err)
	require.Equal(t, 4000.0, result.Amount)
	require.NotEmpty(t, result.Reference)
	require.NotNil(t, result.CreditTransaction)
	require.NotEmpty(t, result.CreditTransaction.ID)

	require.Equal(t, 6000.0, result.EmployerWallet.Balance)
	require.Zero(t, result.EmployerWallet.EscrowBalance)
	require.Equal(t, 4000.0, result.WorkerWallet.Balance)

	// money is conserved across the two wallets
	total := result.EmployerWallet.Balance + result.EmployerWallet.EscrowBalance + result.WorkerWallet.Balance
	require.Equal(t, 10000.0, total)

	// both sides of the transfer share one reference
	entries := f.ledger.All()
	require.Len(t, entries, 4)
	debit, credit := entries[2], entries[3]
	require.Equal(t, repository.TransactionTypeEscrowRelease, debit.Type)
	require.Equal(t, repository.TransactionTypePaymentReceived, credit.Type)
	require.Equal(t, debit.ReferenceNumber, credit.ReferenceNumber)
	require.Equal(t, workLog.ID, debit.WorkLogID.String)
	require.Equal(t, workLog.ID, credit.WorkLogID.String)
	require.Equal(t, 4000.0, credit.BalanceAfter)
}

func TestReleaseFromEscrowGuards(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, "emp-1", "wkr-1")
	other := f.newAgreement(t, "emp-2", "wkr-2")

	_, err := f.escrow.AddFunds(ctx, "emp-1", 10000, "")
	require.NoError(t, err)
	_, err = f.escrow.MoveToEscrow(ctx, "emp-1", 4000, agreement.ID, "")
	require.NoError(t, err)

	t.Run("unknown agreement", func(t *testing.T) {
		_, err := f.escrow.ReleaseFromEscrow(ctx, "missing", "whatever")
		require.ErrorIs(t, err, ErrAgreementNotFound)
	})

	t.Run("unknown work log", func(t *testing.T) {
		_, err := f.escrow.ReleaseFromEscrow(ctx, agreement.ID, "missing")
		require.ErrorIs(t, err, ErrWorkLogNotFound)
	})

	t.Run("work log on another agreement", func(t *testing.T) {
		workLog := f.approvedWorkLog(t, other, 1000)
		_, err := f.escrow.ReleaseFromEscrow(ctx, agreement.ID, workLog.ID)
		require.ErrorIs(t, err, ErrWorkLogMismatch)
	})

	t.Run("still pending", func(t *testing.T) {
		workLog, err := f.workLogs.Insert(&models.WorkLog{
			AgreementID: agreement.ID,
			WorkerID:    agreement.WorkerID,
			Hours:       5,
		}, nil)
		require.NoError(t, err)

		_, err = f.escrow.ReleaseFromEscrow(ctx, agreement.ID, workLog.ID)
		require.ErrorIs(t, err, ErrWorkLogNotApproved)
	})

	t.Run("approved but no amount on record", func(t *testing.T) {
		workLog := &models.WorkLog{
			AgreementID: agreement.ID,
			WorkerID:    agreement.WorkerID,
			Status:      repository.WorkLogApprovedStatus,
		}
		f.workLogs.Put(workLog)

		_, err := f.escrow.ReleaseFromEscrow(ctx, agreement.ID, workLog.ID)
		require.ErrorIs(t, err, ErrPaymentRecordMissing)
	})

	t.Run("already paid", func(t *testing.T) {
		workLog := &models.WorkLog{
			AgreementID: agreement.ID,
			WorkerID:    agreement.WorkerID,
			Status:      repository.WorkLogApprovedStatus,
			Amount:      sql.NullFloat64{Float64: 1000, Valid: true},
			Paid:        true,
		}
		f.workLogs.Put(workLog)

		_, err := f.escrow.ReleaseFromEscrow(ctx, agreement.ID, workLog.ID)
		require.ErrorIs(t, err, ErrWorkLogAlreadyPaid)
	})

	t.Run("escrow cannot cover the amount", func(t *testing.T) {
		workLog := f.approvedWorkLog(t, agreement, 9000)
		_, err := f.escrow.ReleaseFromEscrow(ctx, agreement.ID, workLog.ID)
		require.ErrorIs(t, err, ErrInsufficientEscrowBalance)

		// escrow untouched by the failed release
		wallet, _, err := f.wallets.GetByUserID("emp-1")
		require.NoError(t, err)
		require.Equal(t, 4000.0, wallet.EscrowBalance)
	})
}

func TestSummary(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, "emp-1", "wkr-1")

	_, err := f.escrow.AddFunds(ctx, "emp-1", 10000, "")
	require.NoError(t, err)
	_, err = f.escrow.MoveToEscrow(ctx, "emp-1", 2500, agreement.ID, "")
	require.NoError(t, err)

	summary, err := f.escrow.Summary(ctx, "emp-1")
	require.NoError(t, err)
	require.Equal(t, 7500.0, summary.Available)
	require.Equal(t, 2500.0, summary.Escrow)
	require.Equal(t, 10000.0, summary.Total)
}

func TestHistoryPagination(t *testing.T) {
	f := newEscrowFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.escrow.AddFunds(ctx, "emp-1", 100, "")
		require.NoError(t, err)
	}

	page1, err := f.escrow.History(ctx, "emp-1", 1, 3, false)
	require.NoError(t, err)
	require.Len(t, page1, 3)

	page2, err := f.escrow.History(ctx, "emp-1", 2, 3, false)
	require.NoError(t, err)
	require.Len(t, page2, 2)

	page3, err := f.escrow.History(ctx, "emp-1", 3, 3, false)
	require.NoError(t, err)
	require.Empty(t, page3)
}
