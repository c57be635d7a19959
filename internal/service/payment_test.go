package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/gateway"
	"github.com/opuslink/opuslink/internal/mocks"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

// publisherStub collects produced messages per topic instead of talking to a
// broker.
type publisherStub struct {
	mu       sync.Mutex
	messages map[string][]string
	err      error
}

func newPublisherStub() *publisherStub {
	return &publisherStub{messages: make(map[string][]string)}
}

func (p *publisherStub) ProduceMessage(topic, message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages[topic] = append(p.messages[topic], message)
	return nil
}

func (p *publisherStub) published(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string{}, p.messages[topic]...)
}

type paymentFixture struct {
	db        *mocks.MockDatabase
	wallets   *mocks.InMemoryWalletRepo
	workLogs  *mocks.InMemoryWorkLogRepo
	payRepo   *mocks.InMemoryPaymentRepo
	publisher *publisherStub
	escrow    *EscrowService
	payments  *PaymentService
	agreement *models.Agreement
}

// newPaymentFixture stands up the full payout path with a gateway whose
// success rate pins the outcome: 1 always settles, 0 always fails.
func newPaymentFixture(t *testing.T, successRate float64) *paymentFixture {
	t.Helper()

	db := mocks.NewMockDatabase()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := newPublisherStub()

	gw := gateway.NewWithSource(config.GatewayConfig{
		SuccessRate: successRate,
		Fees:        config.DefaultFeeBands(),
	}, rand.NewSource(1))

	escrow := NewEscrowService(db, nil, logger)
	notifier := NewNotificationService(db, logger)
	payments := NewPaymentService(db, escrow, gw, publisher, notifier, config.DefaultPayoutPolicy(), logger)

	agreements := db.AgreementRepo.(*mocks.InMemoryAgreementRepo)
	id, err := agreements.Insert(&models.Agreement{
		EmployerID: "emp-1",
		WorkerID:   "wkr-1",
		JobTitle:   "Data migration",
		TermsType:  repository.TermsTypeHourly,
		Rate:       400,
	}, nil)
	require.NoError(t, err)
	agreement, _, err := agreements.GetOne(id)
	require.NoError(t, err)

	return &paymentFixture{
		db:        db,
		wallets:   db.WalletRepo.(*mocks.InMemoryWalletRepo),
		workLogs:  db.WorkLogRepo.(*mocks.InMemoryWorkLogRepo),
		payRepo:   db.PaymentRepo.(*mocks.InMemoryPaymentRepo),
		publisher: publisher,
		escrow:    escrow,
		payments:  payments,
		agreement: agreement,
	}
}

// fundAndApprove deposits, locks escrow, and leaves one approved work log
// worth amount ready to be paid out.
func (f *paymentFixture) fundAndApprove(t *testing.T, amount float64) *models.WorkLog {
	t.Helper()
	ctx := context.Background()

	_, err := f.escrow.AddFunds(ctx, "emp-1", amount*2, "")
	require.NoError(t, err)
	_, err = f.escrow.MoveToEscrow(ctx, "emp-1", amount, f.agreement.ID, "")
	require.NoError(t, err)

	workLog, err := f.workLogs.Insert(&models.WorkLog{
		AgreementID: f.agreement.ID,
		WorkerID:    "wkr-1",
		Hours:       amount / f.agreement.Rate,
	}, nil)
	require.NoError(t, err)

	ok, err := f.workLogs.Approve(workLog.ID, "emp-1", amount, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	workLog, _, err = f.workLogs.GetOne(workLog.ID)
	require.NoError(t, err)
	return workLog
}

func TestInitiate(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()
	workLog := f.fundAndApprove(t, 4000)

	payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.NoError(t, err)
	require.Equal(t, repository.PaymentProcessingStatus, payment.Status)
	require.Equal(t, 4000.0, payment.Amount)
	require.Equal(t, 50.0, payment.Fee) // 2% clamped to the band max
	require.Equal(t, 1, payment.PolicyVersion)
	require.Equal(t, "wkr-1", payment.WorkerID)
	require.NotEmpty(t, payment.Reference)

	requested := f.publisher.published(PayoutRequestedTopic)
	require.Len(t, requested, 1)
	require.Contains(t, requested[0], payment.ID)
}

func TestInitiateGuards(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()

	t.Run("unknown method", func(t *testing.T) {
		_, err := f.payments.Initiate(ctx, "whatever", "emp-1", "cheque")
		require.ErrorIs(t, err, ErrInvalidPaymentMethod)
	})

	t.Run("unknown work log", func(t *testing.T) {
		_, err := f.payments.Initiate(ctx, "missing", "emp-1", config.PaymentMethodEscrow)
		require.ErrorIs(t, err, ErrWorkLogNotFound)
	})

	t.Run("not the employer", func(t *testing.T) {
		workLog := f.fundAndApprove(t, 1000)
		_, err := f.payments.Initiate(ctx, workLog.ID, "somebody-else", config.PaymentMethodEscrow)
		require.ErrorIs(t, err, ErrNotAgreementEmployer)
	})

	t.Run("still pending", func(t *testing.T) {
		workLog, err := f.workLogs.Insert(&models.WorkLog{
			AgreementID: f.agreement.ID,
			WorkerID:    "wkr-1",
			Hours:       2,
		}, nil)
		require.NoError(t, err)

		_, err = f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
		require.ErrorIs(t, err, ErrWorkLogNotApproved)
	})

	t.Run("approved but no amount on record", func(t *testing.T) {
		workLog := &models.WorkLog{
			AgreementID: f.agreement.ID,
			WorkerID:    "wkr-1",
			Status:      repository.WorkLogApprovedStatus,
		}
		f.workLogs.Put(workLog)

		_, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
		require.ErrorIs(t, err, ErrPaymentRecordMissing)
	})

	t.Run("payout already settled", func(t *testing.T) {
		workLog := f.fundAndApprove(t, 1000)

		payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
		require.NoError(t, err)
		require.NoError(t, f.payRepo.MarkSettled(payment.ID, "txn-settled", nil))

		_, err = f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
		require.ErrorIs(t, err, ErrPayoutAlreadySettled)
	})
}

func TestInitiatePublishFailure(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()
	workLog := f.fundAndApprove(t, 2000)

	f.publisher.err = errors.New("broker unreachable")

	_, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.Error(t, err)
}

func TestProcessSettles(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()
	workLog := f.fundAndApprove(t, 4000)

	payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.NoError(t, err)

	require.NoError(t, f.payments.Process(ctx, payment.ID))

	settled, found, err := f.payRepo.GetOne(payment.ID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, repository.PaymentSettledStatus, settled.Status)
	require.True(t, settled.TransactionID.Valid)
	require.True(t, settled.SettledAt.Valid)

	// the work log was marked paid in the same transaction, pointing at the
	// worker-side ledger entry
	paid, _, err := f.workLogs.GetOne(workLog.ID)
	require.NoError(t, err)
	require.True(t, paid.Paid)
	require.Equal(t, settled.TransactionID.String, paid.TransactionID.String)

	worker, _, err := f.wallets.GetByUserID("wkr-1")
	require.NoError(t, err)
	require.Equal(t, 4000.0, worker.Balance)

	employer, _, err := f.wallets.GetByUserID("emp-1")
	require.NoError(t, err)
	require.Zero(t, employer.EscrowBalance)

	require.Len(t, f.publisher.published(PayoutSettledTopic), 1)
	require.Empty(t, f.publisher.published(PayoutFailedTopic))
}

func TestProcessFails(t *testing.T) {
	f := newPaymentFixture(t, 0)
	ctx := context.Background()
	workLog := f.fundAndApprove(t, 4000)

	payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.NoError(t, err)

	require.NoError(t, f.payments.Process(ctx, payment.ID))

	failed, _, err := f.payRepo.GetOne(payment.ID)
	require.NoError(t, err)
	require.Equal(t, repository.PaymentFailedStatus, failed.Status)
	require.True(t, failed.FailureReason.Valid)
	require.NotEmpty(t, failed.FailureReason.String)

	// the work log stays approved and unpaid so the employer can retry
	unpaid, _, err := f.workLogs.GetOne(workLog.ID)
	require.NoError(t, err)
	require.False(t, unpaid.Paid)
	require.Equal(t, repository.WorkLogApprovedStatus, unpaid.Status)

	// escrow untouched
	employer, _, err := f.wallets.GetByUserID("emp-1")
	require.NoError(t, err)
	require.Equal(t, 4000.0, employer.EscrowBalance)

	require.Len(t, f.publisher.published(PayoutFailedTopic), 1)
	require.Empty(t, f.publisher.published(PayoutSettledTopic))
}

func TestProcessFailsAttemptWhenEscrowUnfunded(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()

	// approved work log, but the employer never moved anything to escrow
	workLog, err := f.workLogs.Insert(&models.WorkLog{
		AgreementID: f.agreement.ID,
		WorkerID:    "wkr-1",
		Hours:       10,
	}, nil)
	require.NoError(t, err)
	ok, err := f.workLogs.Approve(workLog.ID, "emp-1", 4000, 1, nil)
	require.NoError(t, err)
	require.True(t, ok)

	payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.NoError(t, err)

	require.NoError(t, f.payments.Process(ctx, payment.ID))

	// the attempt must not be stranded in processing: the rejection is final
	failed, _, err := f.payRepo.GetOne(payment.ID)
	require.NoError(t, err)
	require.Equal(t, repository.PaymentFailedStatus, failed.Status)
	require.Equal(t, ErrInsufficientEscrowBalance.Error(), failed.FailureReason.String)

	unpaid, _, err := f.workLogs.GetOne(workLog.ID)
	require.NoError(t, err)
	require.False(t, unpaid.Paid)

	require.Len(t, f.publisher.published(PayoutFailedTopic), 1)
	require.Empty(t, f.publisher.published(PayoutSettledTopic))
}

// staleUnpaidWorkLogs serves reads that predate a concurrent settlement, the
// way a snapshot read can inside Postgres: GetOne reports the log unpaid even
// after another settlement committed.
type staleUnpaidWorkLogs struct {
	repository.WorkLogRepository
}

func (r staleUnpaidWorkLogs) GetOne(id string) (*models.WorkLog, bool, error) {
	workLog, found, err := r.WorkLogRepository.GetOne(id)
	if found {
		workLog.Paid = false
	}
	return workLog, found, err
}

// racedSecondAttempt settles one payout, then stages a second processing
// attempt for the same work log whose reads predate the settlement.
func racedSecondAttempt(t *testing.T, f *paymentFixture) *models.Payment {
	t.Helper()
	ctx := context.Background()
	workLog := f.fundAndApprove(t, 4000)

	// extra escrow so a second debit of 4000 would still fit; the paid guard,
	// not the balance, has to stop the double payout
	_, err := f.escrow.MoveToEscrow(ctx, "emp-1", 4000, f.agreement.ID, "")
	require.NoError(t, err)

	payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.NoError(t, err)
	require.NoError(t, f.payments.Process(ctx, payment.ID))

	f.db.WorkLogRepo = staleUnpaidWorkLogs{f.db.WorkLogRepo}
	second, err := f.payRepo.Insert(&models.Payment{
		AgreementID: f.agreement.ID,
		WorkLogID:   workLog.ID,
		EmployerID:  "emp-1",
		WorkerID:    "wkr-1",
		Amount:      4000,
		Method:      config.PaymentMethodEscrow,
	}, nil)
	require.NoError(t, err)
	return second
}

func TestSettleLosesRaceToConcurrentSettlement(t *testing.T) {
	f := newPaymentFixture(t, 1)
	second := racedSecondAttempt(t, f)

	err := f.payments.Settle(context.Background(), second.ID)
	require.ErrorIs(t, err, ErrWorkLogAlreadyPaid)

	stillProcessing, _, err := f.payRepo.GetOne(second.ID)
	require.NoError(t, err)
	require.Equal(t, repository.PaymentProcessingStatus, stillProcessing.Status)
}

func TestProcessFailsRacedAttempt(t *testing.T) {
	f := newPaymentFixture(t, 1)
	second := racedSecondAttempt(t, f)

	require.NoError(t, f.payments.Process(context.Background(), second.ID))

	decided, _, err := f.payRepo.GetOne(second.ID)
	require.NoError(t, err)
	require.Equal(t, repository.PaymentFailedStatus, decided.Status)
	require.Equal(t, ErrWorkLogAlreadyPaid.Error(), decided.FailureReason.String)
	require.Len(t, f.publisher.published(PayoutSettledTopic), 1)
	require.Len(t, f.publisher.published(PayoutFailedTopic), 1)
}

func TestProcessSkipsDecidedPayments(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()
	workLog := f.fundAndApprove(t, 4000)

	payment, err := f.payments.Initiate(ctx, workLog.ID, "emp-1", config.PaymentMethodEscrow)
	require.NoError(t, err)
	require.NoError(t, f.payments.Process(ctx, payment.ID))

	// replayed message: the payment is already settled, nothing moves again
	require.NoError(t, f.payments.Process(ctx, payment.ID))

	worker, _, err := f.wallets.GetByUserID("wkr-1")
	require.NoError(t, err)
	require.Equal(t, 4000.0, worker.Balance)
	require.Len(t, f.publisher.published(PayoutSettledTopic), 1)
}

func TestSettleRefusesMissingAmount(t *testing.T) {
	f := newPaymentFixture(t, 1)
	ctx := context.Background()

	workLog := &models.WorkLog{
		AgreementID: f.agreement.ID,
		WorkerID:    "wkr-1",
		Status:      repository.WorkLogApprovedStatus,
		Amount:      sql.NullFloat64{},
	}
	f.workLogs.Put(workLog)

	payment, err := f.payRepo.Insert(&models.Payment{
		AgreementID: f.agreement.ID,
		WorkLogID:   workLog.ID,
		EmployerID:  "emp-1",
		WorkerID:    "wkr-1",
		Amount:      1000,
		Method:      config.PaymentMethodEscrow,
	}, nil)
	require.NoError(t, err)

	err = f.payments.Settle(ctx, payment.ID)
	require.ErrorIs(t, err, ErrPaymentRecordMissing)
}
