package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

const (
	WalletActiveStatus = "active"
	WalletOnHoldStatus = "on-hold"
)

type WalletRepository interface {
	Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error)
	GetOrCreate(userID string) (*models.Wallet, error)
	GetByUserID(userID string) (*models.Wallet, bool, error)
	GetOne(id string) (*models.Wallet, bool, error)
	// GetForUpdate reads the wallet row inside tx holding a row lock until the
	// transaction ends. Multi-wallet operations must acquire locks in a
	// deterministic order to avoid deadlocks.
	GetForUpdate(userID string, tx *sqlx.Tx) (*models.Wallet, bool, error)
	Deposit(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error)
	MoveToEscrow(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error)
	DebitEscrow(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error)
	Credit(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error)
	Lock(id string) error
}

type WalletRepositoryImpl struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) WalletRepository {
	return &WalletRepositoryImpl{db: db}
}

func (repo *WalletRepositoryImpl) Insert(wallet *models.Wallet, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	// ON CONFLICT DO NOTHING keeps wallet creation idempotent: a second insert
	// for the same user returns no row and the caller falls back to a lookup.
	query := `
		INSERT INTO wallets (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING id`
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, wallet.UserID).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query, wallet.UserID)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}

	return id, nil
}

// GetOrCreate returns the user's wallet, creating a zero-balance one on first
// use. A missing wallet is never surfaced as an error to callers.
func (repo *WalletRepositoryImpl) GetOrCreate(userID string) (*models.Wallet, error) {
	wallet, found, err := repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if found {
		return wallet, nil
	}

	_, err = repo.Insert(&models.Wallet{UserID: userID}, nil)
	if err != nil {
		return nil, err
	}

	wallet, found, err = repo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("wallet missing for user %s after insert", userID)
	}
	return wallet, nil
}

func (repo *WalletRepositoryImpl) GetByUserID(userID string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, user_id, balance, escrow_balance, currency, status, created_at FROM wallets WHERE user_id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) GetOne(id string) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
        SELECT id, user_id, balance, escrow_balance, currency, status, created_at FROM wallets WHERE id=$1`

	err := repo.db.GetContext(ctx, &wallet, query, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) GetForUpdate(userID string, tx *sqlx.Tx) (*models.Wallet, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	query := `
		SELECT id, user_id, balance, escrow_balance, currency, status, created_at FROM wallets WHERE user_id=$1 FOR UPDATE`

	err := tx.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &wallet, true, nil
}

func (repo *WalletRepositoryImpl) Deposit(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return repo.update(walletID, tx, `
		UPDATE wallets SET balance=balance+$1, updated_at=NOW() WHERE id=$2
		RETURNING id, user_id, balance, escrow_balance, currency, status, created_at`, amount)
}

// MoveToEscrow shifts amount from the spendable balance into escrow. The WHERE
// guard backs up the service-level check so a stale read can never drive the
// balance negative; no matching row means insufficient funds.
func (repo *WalletRepositoryImpl) MoveToEscrow(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return repo.update(walletID, tx, `
		UPDATE wallets SET balance=balance-$1, escrow_balance=escrow_balance+$1, updated_at=NOW()
		WHERE id=$2 AND balance >= $1
		RETURNING id, user_id, balance, escrow_balance, currency, status, created_at`, amount)
}

func (repo *WalletRepositoryImpl) DebitEscrow(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return repo.update(walletID, tx, `
		UPDATE wallets SET escrow_balance=escrow_balance-$1, updated_at=NOW()
		WHERE id=$2 AND escrow_balance >= $1
		RETURNING id, user_id, balance, escrow_balance, currency, status, created_at`, amount)
}

func (repo *WalletRepositoryImpl) Credit(walletID string, amount float64, tx *sqlx.Tx) (*models.Wallet, error) {
	return repo.update(walletID, tx, `
		UPDATE wallets SET balance=balance+$1, updated_at=NOW() WHERE id=$2
		RETURNING id, user_id, balance, escrow_balance, currency, status, created_at`, amount)
}

func (repo *WalletRepositoryImpl) update(walletID string, tx *sqlx.Tx, query string, amount float64) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var wallet models.Wallet

	var err error
	if tx != nil {
		err = tx.GetContext(ctx, &wallet, query, amount, walletID)
	} else {
		err = repo.db.GetContext(ctx, &wallet, query, amount, walletID)
	}
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

func (repo *WalletRepositoryImpl) Lock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE wallets SET status = $1 WHERE id = $2`

	_, err := repo.db.ExecContext(ctx, query, WalletOnHoldStatus, id)
	return err
}
