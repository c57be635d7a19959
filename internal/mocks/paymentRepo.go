package mocks

import (
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

type InMemoryPaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*models.Payment
}

func NewInMemoryPaymentRepo() *InMemoryPaymentRepo {
	return &InMemoryPaymentRepo{payments: make(map[string]*models.Payment)}
}

func (r *InMemoryPaymentRepo) Insert(payment *models.Payment, tx *sqlx.Tx) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *payment
	created.ID = nextID("payment")
	created.Status = repository.PaymentProcessingStatus
	created.CreatedAt = time.Now()
	r.payments[created.ID] = &created

	copied := created
	return &copied, nil
}

func (r *InMemoryPaymentRepo) GetOne(id string) (*models.Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, false, nil
	}
	copied := *payment
	return &copied, true, nil
}

func (r *InMemoryPaymentRepo) FindSettledByWorkLog(workLogID string) (*models.Payment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, payment := range r.payments {
		if payment.WorkLogID == workLogID && payment.Status == repository.PaymentSettledStatus {
			copied := *payment
			return &copied, true, nil
		}
	}
	return nil, false, nil
}

func (r *InMemoryPaymentRepo) MarkSettled(id, transactionID string, tx *sqlx.Tx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok || payment.Status != repository.PaymentProcessingStatus {
		return sql.ErrNoRows
	}
	payment.Status = repository.PaymentSettledStatus
	payment.TransactionID = sql.NullString{String: transactionID, Valid: true}
	payment.SettledAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (r *InMemoryPaymentRepo) MarkFailed(id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return sql.ErrNoRows
	}
	payment.Status = repository.PaymentFailedStatus
	payment.FailureReason = sql.NullString{String: reason, Valid: true}
	return nil
}

func (r *InMemoryPaymentRepo) ListByUser(userID string) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Payment
	for _, payment := range r.payments {
		if payment.EmployerID == userID || payment.WorkerID == userID {
			matched = append(matched, *payment)
		}
	}
	return matched, nil
}

func (r *InMemoryPaymentRepo) TotalVolume() (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var total float64
	for _, payment := range r.payments {
		if payment.Status == repository.PaymentSettledStatus {
			total += payment.Amount
		}
	}
	return total, nil
}
