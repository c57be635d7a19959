package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/mocks"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

// notifierSpy records every notification instead of writing it anywhere.
type notifierSpy struct {
	mu     sync.Mutex
	events []spyEvent
}

type spyEvent struct {
	UserID  string
	Kind    string
	Message string
}

func (s *notifierSpy) Notify(userID, kind, message string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, spyEvent{UserID: userID, Kind: kind, Message: message})
}

func (s *notifierSpy) sent() []spyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyEvent{}, s.events...)
}

type workLedgerFixture struct {
	db         *mocks.MockDatabase
	agreements *mocks.InMemoryAgreementRepo
	workLogs   *mocks.InMemoryWorkLogRepo
	notifier   *notifierSpy
	ledger     *WorkLedgerService
}

func newWorkLedgerFixture(t *testing.T) *workLedgerFixture {
	t.Helper()

	db := mocks.NewMockDatabase()
	notifier := &notifierSpy{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &workLedgerFixture{
		db:         db,
		agreements: db.AgreementRepo.(*mocks.InMemoryAgreementRepo),
		workLogs:   db.WorkLogRepo.(*mocks.InMemoryWorkLogRepo),
		notifier:   notifier,
		ledger:     NewWorkLedgerService(db, config.DefaultPayoutPolicy(), notifier, logger),
	}
}

func (f *workLedgerFixture) newAgreement(t *testing.T, termsType string, rate float64) *models.Agreement {
	t.Helper()

	id, err := f.agreements.Insert(&models.Agreement{
		EmployerID: "emp-1",
		WorkerID:   "wkr-1",
		JobTitle:   "Backend revamp",
		TermsType:  termsType,
		Rate:       rate,
	}, nil)
	require.NoError(t, err)

	agreement, _, err := f.agreements.GetOne(id)
	require.NoError(t, err)
	return agreement
}

func TestCalculateWorkAmount(t *testing.T) {
	policy := config.DefaultPayoutPolicy()

	tests := []struct {
		name      string
		termsType string
		rate      float64
		hours     float64
		days      float64
		want      float64
	}{
		{"hourly", repository.TermsTypeHourly, 200, 10, 0, 2000},
		{"monthly by days", repository.TermsTypeMonthly, 26000, 0, 13, 13000},
		{"monthly by hours", repository.TermsTypeMonthly, 32000, 16, 0, 3200},
		{"fixed prorated over thirty days", repository.TermsTypeFixed, 30000, 0, 15, 15000},
		{"milestone ignores units", repository.TermsTypeMilestone, 5000, 40, 10, 5000},
		{"rounds to whole units", repository.TermsTypeMonthly, 26000, 0, 1, 1000},
		{"hourly fraction rounds", repository.TermsTypeHourly, 333, 1.5, 0, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateWorkAmount(tt.termsType, tt.rate, tt.hours, tt.days, policy)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLogWork(t *testing.T) {
	f := newWorkLedgerFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, repository.TermsTypeHourly, 200)

	workDate := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)
	workLog, err := f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 8, 0, "API endpoints", workDate)
	require.NoError(t, err)
	require.Equal(t, repository.WorkLogPendingStatus, workLog.Status)
	require.Equal(t, 8.0, workLog.Hours)
	require.Equal(t, workDate, workLog.WorkDate)
	require.False(t, workLog.Amount.Valid)

	events := f.notifier.sent()
	require.Len(t, events, 1)
	require.Equal(t, "emp-1", events[0].UserID)
	require.Equal(t, repository.NotificationWorkLogged, events[0].Kind)
}

func TestLogWorkGuards(t *testing.T) {
	f := newWorkLedgerFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, repository.TermsTypeHourly, 200)

	_, err := f.ledger.LogWork(ctx, "missing", "wkr-1", 8, 0, "", time.Time{})
	require.ErrorIs(t, err, ErrAgreementNotFound)

	_, err = f.ledger.LogWork(ctx, agreement.ID, "somebody-else", 8, 0, "", time.Time{})
	require.ErrorIs(t, err, ErrNotAgreementWorker)

	_, err = f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 0, 0, "", time.Time{})
	require.ErrorIs(t, err, ErrInvalidAmount)

	require.NoError(t, f.agreements.UpdateStatus(agreement.ID, repository.AgreementCompletedStatus, nil))
	_, err = f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 8, 0, "", time.Time{})
	require.ErrorIs(t, err, ErrAgreementNotActive)

	require.Empty(t, f.notifier.sent())
}

func TestApproveWork(t *testing.T) {
	f := newWorkLedgerFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, repository.TermsTypeHourly, 200)

	workLog, err := f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 10, 0, "", time.Time{})
	require.NoError(t, err)

	approved, err := f.ledger.ApproveWork(ctx, workLog.ID, "emp-1")
	require.NoError(t, err)
	require.Equal(t, repository.WorkLogApprovedStatus, approved.Status)
	require.True(t, approved.Amount.Valid)
	require.Equal(t, 2000.0, approved.Amount.Float64)
	require.EqualValues(t, 1, approved.PolicyVersion.Int32)
	require.Equal(t, "emp-1", approved.ApprovedBy.String)

	events := f.notifier.sent()
	require.Len(t, events, 2) // logged + approved
	require.Equal(t, "wkr-1", events[1].UserID)
	require.Equal(t, repository.NotificationWorkApproved, events[1].Kind)

	// a decided log cannot be decided again
	_, err = f.ledger.ApproveWork(ctx, workLog.ID, "emp-1")
	require.ErrorIs(t, err, ErrWorkLogNotPending)
}

func TestApproveWorkOnlyByEmployer(t *testing.T) {
	f := newWorkLedgerFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, repository.TermsTypeHourly, 200)

	workLog, err := f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 10, 0, "", time.Time{})
	require.NoError(t, err)

	_, err = f.ledger.ApproveWork(ctx, workLog.ID, "somebody-else")
	require.ErrorIs(t, err, ErrNotAgreementEmployer)

	_, err = f.ledger.ApproveWork(ctx, "missing", "emp-1")
	require.ErrorIs(t, err, ErrWorkLogNotFound)
}

func TestRejectWork(t *testing.T) {
	f := newWorkLedgerFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, repository.TermsTypeHourly, 200)

	workLog, err := f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 10, 0, "", time.Time{})
	require.NoError(t, err)

	rejected, err := f.ledger.RejectWork(ctx, workLog.ID, "emp-1", "Hours look inflated")
	require.NoError(t, err)
	require.Equal(t, repository.WorkLogRejectedStatus, rejected.Status)
	require.Equal(t, "Hours look inflated", rejected.RejectReason.String)
	require.False(t, rejected.Amount.Valid)

	events := f.notifier.sent()
	require.Equal(t, repository.NotificationWorkRejected, events[len(events)-1].Kind)

	_, err = f.ledger.ApproveWork(ctx, workLog.ID, "emp-1")
	require.ErrorIs(t, err, ErrWorkLogNotPending)
}

func TestPendingApprovals(t *testing.T) {
	f := newWorkLedgerFixture(t)
	ctx := context.Background()
	agreement := f.newAgreement(t, repository.TermsTypeHourly, 200)

	first, err := f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 4, 0, "", time.Time{})
	require.NoError(t, err)
	second, err := f.ledger.LogWork(ctx, agreement.ID, "wkr-1", 6, 0, "", time.Time{})
	require.NoError(t, err)

	_, err = f.ledger.ApproveWork(ctx, first.ID, "emp-1")
	require.NoError(t, err)

	pending, err := f.ledger.PendingApprovals("emp-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, second.ID, pending[0].ID)

	none, err := f.ledger.PendingApprovals("someone-else")
	require.NoError(t, err)
	require.Empty(t, none)
}
