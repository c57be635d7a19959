package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/config"
	"github.com/opuslink/opuslink/internal/gateway"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

// Kafka topics for the payout pipeline. A requested payout is charged against
// the simulated gateway by the payout worker; the outcome fans out to the
// settlement or failure worker.
const (
	PayoutRequestedTopic = "payout.requested"
	PayoutSettledTopic   = "payout.settled"
	PayoutFailedTopic    = "payout.failed"
)

// PayoutEvent is the message passed between pipeline stages.
type PayoutEvent struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason,omitempty"`
}

// Publisher is the slice of the Kafka stream the payment service needs.
type Publisher interface {
	ProduceMessage(topic, message string) error
}

// PaymentService orchestrates paying out an approved work log: it creates the
// payment attempt, hands it to the pipeline, and settles or fails it based on
// the gateway outcome.
type PaymentService struct {
	db       repository.Database
	escrow   *EscrowService
	gateway  *gateway.Gateway
	kafka    Publisher
	notifier *NotificationService
	policy   config.PayoutPolicy
	logger   *slog.Logger
}

func NewPaymentService(db repository.Database, escrow *EscrowService, gw *gateway.Gateway, kafka Publisher, notifier *NotificationService, policy config.PayoutPolicy, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		db:       db,
		escrow:   escrow,
		gateway:  gw,
		kafka:    kafka,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
	}
}

// Initiate validates that the work log is payable and records a processing
// payment attempt, then puts it on the pipeline. The caller gets the payment
// row back immediately; settlement happens asynchronously.
func (s *PaymentService) Initiate(ctx context.Context, workLogID, employerID, method string) (*models.Payment, error) {
	switch method {
	case config.PaymentMethodEscrow, config.PaymentMethodUPI, config.PaymentMethodBank:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	workLog, found, err := s.db.WorkLog().GetOne(workLogID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrWorkLogNotFound
	}

	agreement, found, err := s.db.Agreement().GetOne(workLog.AgreementID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrAgreementNotFound
	}
	if agreement.EmployerID != employerID {
		return nil, ErrNotAgreementEmployer
	}

	if workLog.Status != repository.WorkLogApprovedStatus {
		return nil, ErrWorkLogNotApproved
	}
	if workLog.Paid {
		return nil, ErrWorkLogAlreadyPaid
	}
	if !workLog.Amount.Valid {
		return nil, ErrPaymentRecordMissing
	}

	_, settled, err := s.db.Payment().FindSettledByWorkLog(workLog.ID)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, ErrPayoutAlreadySettled
	}

	payment, err := s.db.Payment().Insert(&models.Payment{
		AgreementID:   agreement.ID,
		WorkLogID:     workLog.ID,
		EmployerID:    agreement.EmployerID,
		WorkerID:      agreement.WorkerID,
		Amount:        workLog.Amount.Float64,
		Fee:           s.gateway.Fee(workLog.Amount.Float64, method),
		Method:        method,
		Reference:     newReference(),
		PolicyVersion: s.policy.Version,
	}, nil)
	if err != nil {
		return nil, err
	}

	if err := s.publish(PayoutRequestedTopic, PayoutEvent{PaymentID: payment.ID}); err != nil {
		// leave the attempt in processing; the employer can retry with a new
		// attempt, and if this one is ever delivered after the retry settles,
		// the paid guard on settlement fails it
		s.logger.Error("publish payout request", "error", err, "payment_id", payment.ID)
		return nil, err
	}

	return payment, nil
}

// Process charges the gateway for a pending payment attempt. It is called by
// the payout worker, off the request path.
func (s *PaymentService) Process(ctx context.Context, paymentID string) error {
	payment, found, err := s.db.Payment().GetOne(paymentID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("payment %s not found", paymentID)
	}
	if payment.Status != repository.PaymentProcessingStatus {
		// already decided, nothing to do
		return nil
	}

	_, err = s.gateway.Process(ctx, payment.Amount, payment.Method)
	if err != nil {
		if failErr := s.Fail(ctx, payment.ID, err.Error()); failErr != nil {
			return failErr
		}
		return s.publish(PayoutFailedTopic, PayoutEvent{PaymentID: payment.ID, Reason: err.Error()})
	}

	if err := s.Settle(ctx, payment.ID); err != nil {
		// a settle rejection is final: the attempt can never succeed, so it
		// must not sit in processing forever. Transient errors are returned
		// as-is so the message can be redelivered.
		if isSettleRejection(err) {
			if failErr := s.Fail(ctx, payment.ID, err.Error()); failErr != nil {
				return failErr
			}
			return s.publish(PayoutFailedTopic, PayoutEvent{PaymentID: payment.ID, Reason: err.Error()})
		}
		return err
	}
	return s.publish(PayoutSettledTopic, PayoutEvent{PaymentID: payment.ID})
}

// isSettleRejection reports whether a settlement error is a business rule
// rejection rather than an infrastructure failure.
func isSettleRejection(err error) bool {
	switch {
	case errors.Is(err, ErrAgreementNotFound),
		errors.Is(err, ErrWorkLogNotFound),
		errors.Is(err, ErrWorkLogMismatch),
		errors.Is(err, ErrWorkLogNotApproved),
		errors.Is(err, ErrWorkLogAlreadyPaid),
		errors.Is(err, ErrPaymentRecordMissing),
		errors.Is(err, ErrInsufficientEscrowBalance),
		errors.Is(err, ErrPayoutAlreadyDecided):
		return true
	}
	return false
}

// Settle releases the escrowed amount to the worker and, in the same database
// transaction, marks the work log paid and the payment settled.
func (s *PaymentService) Settle(ctx context.Context, paymentID string) error {
	payment, found, err := s.db.Payment().GetOne(paymentID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("payment %s not found", paymentID)
	}

	_, err = s.escrow.ReleaseFromEscrowWith(ctx, payment.AgreementID, payment.WorkLogID,
		func(tx *sqlx.Tx, result *ReleaseResult) error {
			// both updates are guarded so a concurrent settlement of the same
			// work log loses here and the whole transfer rolls back
			err := s.db.WorkLog().MarkPaid(payment.WorkLogID, payment.Method, result.CreditTransaction.ID, tx)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrWorkLogAlreadyPaid
				}
				return err
			}

			err = s.db.Payment().MarkSettled(payment.ID, result.CreditTransaction.ID, tx)
			if errors.Is(err, sql.ErrNoRows) {
				return ErrPayoutAlreadyDecided
			}
			return err
		})
	return err
}

// Fail records a gateway rejection against the attempt. The work log stays
// approved and unpaid so the employer can retry manually.
func (s *PaymentService) Fail(ctx context.Context, paymentID, reason string) error {
	return s.db.Payment().MarkFailed(paymentID, reason)
}

func (s *PaymentService) ListByUser(userID string) ([]models.Payment, error) {
	return s.db.Payment().ListByUser(userID)
}

func (s *PaymentService) GetOne(paymentID string) (*models.Payment, bool, error) {
	return s.db.Payment().GetOne(paymentID)
}

func (s *PaymentService) publish(topic string, event PayoutEvent) error {
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.kafka.ProduceMessage(topic, string(message))
}

// NotifySettled is used by the settlement worker once a payout lands.
func (s *PaymentService) NotifySettled(payment *models.Payment) {
	amount := s.notifier.FormatAmount(payment.Amount)
	s.notifier.Notify(payment.WorkerID, repository.NotificationPaymentSent,
		fmt.Sprintf("You received %s", amount),
		map[string]string{"payment_id": payment.ID, "work_log_id": payment.WorkLogID})
	s.notifier.Notify(payment.EmployerID, repository.NotificationPaymentSent,
		fmt.Sprintf("Payment of %s settled", amount),
		map[string]string{"payment_id": payment.ID, "work_log_id": payment.WorkLogID})
}

// NotifyFailed is used by the failure worker; only the employer acts on it.
func (s *PaymentService) NotifyFailed(payment *models.Payment, reason string) {
	s.notifier.Notify(payment.EmployerID, repository.NotificationPaymentFailed,
		fmt.Sprintf("Payment of %s failed: %s", s.notifier.FormatAmount(payment.Amount), reason),
		map[string]string{"payment_id": payment.ID, "work_log_id": payment.WorkLogID})
}
