package mocks

import (
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

type InMemoryAgreementRepo struct {
	mu         sync.Mutex
	agreements map[string]*models.Agreement
}

func NewInMemoryAgreementRepo() *InMemoryAgreementRepo {
	return &InMemoryAgreementRepo{agreements: make(map[string]*models.Agreement)}
}

func (r *InMemoryAgreementRepo) Insert(agreement *models.Agreement, tx *sqlx.Tx) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *agreement
	created.ID = nextID("agreement")
	if created.Status == "" {
		created.Status = repository.AgreementActiveStatus
	}
	created.CreatedAt = time.Now()
	r.agreements[created.ID] = &created
	return created.ID, nil
}

func (r *InMemoryAgreementRepo) GetOne(id string) (*models.Agreement, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agreement, ok := r.agreements[id]
	if !ok {
		return nil, false, nil
	}
	copied := *agreement
	return &copied, true, nil
}

func (r *InMemoryAgreementRepo) GetAllByEmployer(employerID string) ([]models.Agreement, error) {
	return r.filter(func(a *models.Agreement) bool { return a.EmployerID == employerID })
}

func (r *InMemoryAgreementRepo) GetAllByWorker(workerID string) ([]models.Agreement, error) {
	return r.filter(func(a *models.Agreement) bool { return a.WorkerID == workerID })
}

func (r *InMemoryAgreementRepo) UpdateStatus(id, status string, tx *sqlx.Tx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if agreement, ok := r.agreements[id]; ok {
		agreement.Status = status
	}
	return nil
}

func (r *InMemoryAgreementRepo) filter(keep func(*models.Agreement) bool) ([]models.Agreement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Agreement
	for _, agreement := range r.agreements {
		if keep(agreement) {
			matched = append(matched, *agreement)
		}
	}
	return matched, nil
}
