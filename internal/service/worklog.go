package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

// WorkLedgerService tracks reported work, its approval, and derives the
// amount owed from the agreement's payment terms and the payout policy in
// effect.
type WorkLedgerService struct {
	db       repository.Database
	policy   config.PayoutPolicy
	notifier Notifier
	logger   *slog.Logger
}

func NewWorkLedgerService(db repository.Database, policy config.PayoutPolicy, notifier Notifier, logger *slog.Logger) *WorkLedgerService {
	return &WorkLedgerService{
		db:       db,
		policy:   policy,
		notifier: notifier,
		logger:   logger,
	}
}

// LogWork records a unit of reported work against an active agreement. The
// log starts out pending and the employer is notified.
func (s *WorkLedgerService) LogWork(ctx context.Context, agreementID, workerID string, hours, days float64, description string, workDate time.Time) (*models.WorkLog, error) {
	agreement, found, err := s.db.Agreement().GetOne(agreementID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAgreementNotFound
	}
	if agreement.Status != repository.AgreementActiveStatus {
		return nil, ErrAgreementNotActive
	}
	if agreement.WorkerID != workerID {
		return nil, ErrNotAgreementWorker
	}
	if hours <= 0 && days <= 0 {
		return nil, ErrInvalidAmount
	}

	if workDate.IsZero() {
		workDate = time.Now()
	}

	workLog, err := s.db.WorkLog().Insert(&models.WorkLog{
		AgreementID: agreement.ID,
		WorkerID:    workerID,
		Hours:       hours,
		Days:        days,
		Description: description,
		WorkDate:    workDate,
	}, nil)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(agreement.EmployerID, repository.NotificationWorkLogged,
		fmt.Sprintf("New work logged on %q", agreement.JobTitle),
		map[string]string{"agreement_id": agreement.ID, "work_log_id": workLog.ID})

	return workLog, nil
}

// ApproveWork transitions a pending log to approved, stamps the approver and
// the payout amount computed under the current policy, and notifies the
// worker. Payment itself happens later, via the payout pipeline.
func (s *WorkLedgerService) ApproveWork(ctx context.Context, workLogID, employerID string) (*models.WorkLog, error) {
	workLog, agreement, err := s.loadForDecision(workLogID, employerID)
	if err != nil {
		return nil, err
	}

	amount := CalculateWorkAmount(agreement.TermsType, agreement.Rate, workLog.Hours, workLog.Days, s.policy)

	ok, err := s.db.WorkLog().Approve(workLog.ID, employerID, amount, s.policy.Version, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWorkLogNotPending
	}

	s.notifier.Notify(workLog.WorkerID, repository.NotificationWorkApproved,
		fmt.Sprintf("Your work on %q was approved", agreement.JobTitle),
		map[string]string{"agreement_id": agreement.ID, "work_log_id": workLog.ID})

	updated, _, err := s.db.WorkLog().GetOne(workLog.ID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RejectWork transitions a pending log to rejected and notifies the worker.
func (s *WorkLedgerService) RejectWork(ctx context.Context, workLogID, employerID, reason string) (*models.WorkLog, error) {
	workLog, agreement, err := s.loadForDecision(workLogID, employerID)
	if err != nil {
		return nil, err
	}

	ok, err := s.db.WorkLog().Reject(workLog.ID, employerID, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrWorkLogNotPending
	}

	s.notifier.Notify(workLog.WorkerID, repository.NotificationWorkRejected,
		fmt.Sprintf("Your work on %q was rejected", agreement.JobTitle),
		map[string]string{"agreement_id": agreement.ID, "work_log_id": workLog.ID, "reason": reason})

	updated, _, err := s.db.WorkLog().GetOne(workLog.ID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *WorkLedgerService) loadForDecision(workLogID, employerID string) (*models.WorkLog, *models.Agreement, error) {
	workLog, found, err := s.db.WorkLog().GetOne(workLogID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrWorkLogNotFound
	}

	agreement, found, err := s.db.Agreement().GetOne(workLog.AgreementID)
	if err != nil {
		return nil, nil, err
	}
	if !found {
		return nil, nil, ErrAgreementNotFound
	}
	if agreement.EmployerID != employerID {
		return nil, nil, ErrNotAgreementEmployer
	}

	return workLog, agreement, nil
}

func (s *WorkLedgerService) PendingApprovals(employerID string) ([]models.WorkLog, error) {
	return s.db.WorkLog().PendingByEmployer(employerID)
}

func (s *WorkLedgerService) WorkerWorkLogs(workerID string) ([]models.WorkLog, error) {
	return s.db.WorkLog().ListByWorker(workerID)
}

func (s *WorkLedgerService) AgreementWorkLogs(agreementID string) ([]models.WorkLog, error) {
	return s.db.WorkLog().ListByAgreement(agreementID)
}

// CalculateWorkAmount computes the amount owed for a unit of work, rounded to
// the nearest whole currency unit.
//
//   - hourly: hours × rate
//   - monthly: (days ÷ working days per month) × rate; work logged in hours
//     instead of days uses an hourly rate of rate ÷ working hours per month
//   - fixed: (days ÷ proration window) × rate
//   - milestone: flat rate regardless of units
func CalculateWorkAmount(termsType string, rate, hours, days float64, policy config.PayoutPolicy) float64 {
	var amount float64

	switch termsType {
	case repository.TermsTypeHourly:
		amount = hours * rate
	case repository.TermsTypeMonthly:
		if days > 0 {
			amount = (days / policy.WorkingDaysPerMonth) * rate
		} else {
			amount = hours * (rate / policy.WorkingHoursPerMonth)
		}
	case repository.TermsTypeFixed:
		amount = (days / policy.FixedProrationDays) * rate
	case repository.TermsTypeMilestone:
		amount = rate
	}

	return math.Round(amount)
}
