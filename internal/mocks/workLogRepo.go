package mocks

import (
	"database/sql"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

type InMemoryWorkLogRepo struct {
	mu       sync.Mutex
	workLogs map[string]*models.WorkLog

	// agreements lets PendingByEmployer resolve ownership like the SQL join
	agreements *InMemoryAgreementRepo
}

func NewInMemoryWorkLogRepo() *InMemoryWorkLogRepo {
	return &InMemoryWorkLogRepo{workLogs: make(map[string]*models.WorkLog)}
}

// WithAgreements attaches the agreement store used to resolve the employer on
// PendingByEmployer.
func (r *InMemoryWorkLogRepo) WithAgreements(agreements *InMemoryAgreementRepo) *InMemoryWorkLogRepo {
	r.agreements = agreements
	return r
}

// Put stores a work log exactly as given, id included. Test helper for
// setting up states the normal flow can't produce, like an approved log with
// no amount stamped.
func (r *InMemoryWorkLogRepo) Put(workLog *models.WorkLog) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := *workLog
	if copied.ID == "" {
		copied.ID = nextID("worklog")
		workLog.ID = copied.ID
	}
	r.workLogs[copied.ID] = &copied
}

func (r *InMemoryWorkLogRepo) Insert(workLog *models.WorkLog, tx *sqlx.Tx) (*models.WorkLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *workLog
	created.ID = nextID("worklog")
	created.Status = repository.WorkLogPendingStatus
	created.CreatedAt = time.Now()
	r.workLogs[created.ID] = &created

	copied := created
	return &copied, nil
}

func (r *InMemoryWorkLogRepo) GetOne(id string) (*models.WorkLog, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workLog, ok := r.workLogs[id]
	if !ok {
		return nil, false, nil
	}
	copied := *workLog
	return &copied, true, nil
}

func (r *InMemoryWorkLogRepo) Approve(id, approvedBy string, amount float64, policyVersion int, tx *sqlx.Tx) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workLog, ok := r.workLogs[id]
	if !ok || workLog.Status != repository.WorkLogPendingStatus {
		return false, nil
	}
	workLog.Status = repository.WorkLogApprovedStatus
	workLog.ApprovedBy = sql.NullString{String: approvedBy, Valid: true}
	workLog.ApprovedAt = sql.NullTime{Time: time.Now(), Valid: true}
	workLog.Amount = sql.NullFloat64{Float64: amount, Valid: true}
	workLog.PolicyVersion = sql.NullInt32{Int32: int32(policyVersion), Valid: true}
	return true, nil
}

func (r *InMemoryWorkLogRepo) Reject(id, rejectedBy, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workLog, ok := r.workLogs[id]
	if !ok || workLog.Status != repository.WorkLogPendingStatus {
		return false, nil
	}
	workLog.Status = repository.WorkLogRejectedStatus
	workLog.ApprovedBy = sql.NullString{String: rejectedBy, Valid: true}
	workLog.RejectReason = sql.NullString{String: reason, Valid: true}
	return true, nil
}

func (r *InMemoryWorkLogRepo) MarkPaid(id, method, transactionID string, tx *sqlx.Tx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	workLog, ok := r.workLogs[id]
	if !ok || workLog.Paid {
		return sql.ErrNoRows
	}
	workLog.Paid = true
	workLog.PaymentDate = sql.NullTime{Time: time.Now(), Valid: true}
	workLog.PaymentMethod = sql.NullString{String: method, Valid: true}
	workLog.TransactionID = sql.NullString{String: transactionID, Valid: true}
	return nil
}

func (r *InMemoryWorkLogRepo) PendingByEmployer(employerID string) ([]models.WorkLog, error) {
	return r.filter(func(w *models.WorkLog) bool {
		if w.Status != repository.WorkLogPendingStatus || r.agreements == nil {
			return false
		}
		agreement, found, _ := r.agreements.GetOne(w.AgreementID)
		return found && agreement.EmployerID == employerID
	})
}

func (r *InMemoryWorkLogRepo) ListByWorker(workerID string) ([]models.WorkLog, error) {
	return r.filter(func(w *models.WorkLog) bool { return w.WorkerID == workerID })
}

func (r *InMemoryWorkLogRepo) ListByAgreement(agreementID string) ([]models.WorkLog, error) {
	return r.filter(func(w *models.WorkLog) bool { return w.AgreementID == agreementID })
}

func (r *InMemoryWorkLogRepo) filter(keep func(*models.WorkLog) bool) ([]models.WorkLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.WorkLog
	for _, workLog := range r.workLogs {
		if keep(workLog) {
			matched = append(matched, *workLog)
		}
	}
	return matched, nil
}
