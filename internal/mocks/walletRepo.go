package mocks

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

// InMemoryWalletRepo mirrors the SQL repository's semantics, including the
// balance guards: a debit past zero fails with sql.ErrNoRows exactly like the
// guarded UPDATE returning no row.
type InMemoryWalletRepo struct {
	mu      sync.Mutex
	wallets map[string]*models.Wallet // keyed by wallet id
}

func NewInMemoryWalletRepo() *InMemoryWalletRepo {
	return &InMemoryWalletRepo{wallets: make(map[string]*models.Wallet)}
}

func (r *InMemoryWalletRepo) Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.wallets {
		if w.UserID == wallet.UserID {
			return "", nil
		}
	}

	id := nextID("wallet")
	r.wallets[id] = &models.Wallet{
		ID:        id,
		UserID:    wallet.UserID,
		Balance:   wallet.Balance,
		Currency:  "INR",
		Status:    repository.WalletActiveStatus,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (r *InMemoryWalletRepo) GetOrCreate(userID string) (*models.Wallet, error) {
	wallet, found, err := r.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if found {
		return wallet, nil
	}

	if _, err := r.Insert(&models.Wallet{UserID: userID}, nil); err != nil {
		return nil, err
	}

	wallet, found, err = r.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("wallet missing for user %s after insert", userID)
	}
	return wallet, nil
}

func (r *InMemoryWalletRepo) GetByUserID(userID string) (*models.Wallet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, w := range r.wallets {
		if w.UserID == userID {
			copied := *w
			return &copied, true, nil
		}
	}
	return nil, false, nil
}

func (r *InMemoryWalletRepo) GetOne(id string) (*models.Wallet, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wallets[id]
	if !ok {
		return nil, false, nil
	}
	copied := *w
	return &copied, true, nil
}

func (r *InMemoryWalletRepo) GetForUpdate(userID string, tx *sqlx.Tx) (*models.Wallet, bool, error) {
	return r.GetByUserID(userID)
}

func (r *InMemoryWalletRepo) Deposit(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return r.update(walletID, func(w *models.Wallet) bool {
		w.Balance += amount
		return true
	})
}

func (r *InMemoryWalletRepo) MoveToEscrow(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return r.update(walletID, func(w *models.Wallet) bool {
		if w.Balance < amount {
			return false
		}
		w.Balance -= amount
		w.EscrowBalance += amount
		return true
	})
}

func (r *InMemoryWalletRepo) DebitEscrow(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return r.update(walletID, func(w *models.Wallet) bool {
		if w.EscrowBalance < amount {
			return false
		}
		w.EscrowBalance -= amount
		return true
	})
}

func (r *InMemoryWalletRepo) Credit(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return r.update(walletID, func(w *models.Wallet) bool {
		w.Balance += amount
		return true
	})
}

func (r *InMemoryWalletRepo) Lock(id string) error {
	_, err := r.update(id, func(w *models.Wallet) bool {
		w.Status = repository.WalletOnHoldStatus
		return true
	})
	return err
}

func (r *InMemoryWalletRepo) update(walletID string, fn func(*models.Wallet) bool) (*models.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.wallets[walletID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if !fn(w) {
		return nil, sql.ErrNoRows
	}
	w.UpdatedAt = sql.NullTime{Time: time.Now(), Valid: true}
	copied := *w
	return &copied, nil
}
