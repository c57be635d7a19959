package mocks

import (
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

type InMemoryTransactionRepo struct {
	mu       sync.Mutex
	entries  []models.Transaction
	archived []models.Transaction
}

func NewInMemoryTransactionRepo() *InMemoryTransactionRepo {
	return &InMemoryTransactionRepo{}
}

func (r *InMemoryTransactionRepo) Insert(transaction *models.Transaction, tx *sqlx.Tx) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := *transaction
	created.ID = nextID("txn")
	created.Status = repository.TransactionStatusCompleted
	created.CreatedAt = time.Now()
	r.entries = append(r.entries, created)

	copied := created
	return &copied, nil
}

func (r *InMemoryTransactionRepo) ListByWallet(walletID string, page, pageSize int, includeArchived bool) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []models.Transaction
	pool := r.entries
	if includeArchived {
		pool = append(append([]models.Transaction{}, r.entries...), r.archived...)
	}
	// newest first
	for i := len(pool) - 1; i >= 0; i-- {
		if pool[i].WalletID == walletID {
			matched = append(matched, pool[i])
		}
	}

	start := (page - 1) * pageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (r *InMemoryTransactionRepo) Latest(walletID string) (*models.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].WalletID == walletID {
			copied := r.entries[i]
			return &copied, true, nil
		}
	}
	return nil, false, nil
}

func (r *InMemoryTransactionRepo) FindByReference(referenceNumber string) (*models.Transaction, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.entries {
		if r.entries[i].ReferenceNumber == referenceNumber {
			copied := r.entries[i]
			return &copied, true, nil
		}
	}
	return nil, false, nil
}

func (r *InMemoryTransactionRepo) ArchiveOlderThan(cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []models.Transaction
	var moved int64
	for _, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			r.archived = append(r.archived, entry)
			moved++
		} else {
			kept = append(kept, entry)
		}
	}
	r.entries = kept
	return moved, nil
}

// All returns every live ledger entry, oldest first. Test helper.
func (r *InMemoryTransactionRepo) All() []models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Transaction{}, r.entries...)
}
