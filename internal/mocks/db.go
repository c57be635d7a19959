package mocks

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/repository"
)

// noopDriver backs the transactions handed out by MockDatabase.BeginTx. The
// in-memory repositories ignore the tx entirely; all that matters is that
// Commit and Rollback are callable.
type noopDriver struct{}

func (noopDriver) Open(name string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(query string) (driver.Stmt, error) {
	return nil, fmt.Errorf("mock connection does not prepare statements")
}
func (noopConn) Close() error              { return nil }
func (noopConn) Begin() (driver.Tx, error) { return noopTx{}, nil }

type noopTx struct{}

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

var registerOnce sync.Once

func noopDB() *sqlx.DB {
	registerOnce.Do(func() {
		sql.Register("opuslink-mock", noopDriver{})
	})
	db, _ := sql.Open("opuslink-mock", "")
	return sqlx.NewDb(db, "postgres")
}

var idCounter atomic.Int64

func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// MockDatabase satisfies repository.Database with in-memory repositories.
// NewMockDatabase wires the full set; individual fields can be swapped out
// for testify mocks when a test needs expectations instead of state.
type MockDatabase struct {
	UserRepo         repository.UserRepository
	ActivityRepo     repository.ActivityRepository
	WalletRepo       repository.WalletRepository
	TransactionRepo  repository.TransactionRepository
	AgreementRepo    repository.AgreementRepository
	WorkLogRepo      repository.WorkLogRepository
	PaymentRepo      repository.PaymentRepository
	JobRepo          repository.JobRepository
	ApplicationRepo  repository.ApplicationRepository
	NotificationRepo repository.NotificationRepository
	FeedbackRepo     repository.FeedbackRepository

	txDB *sqlx.DB
}

func NewMockDatabase() *MockDatabase {
	agreements := NewInMemoryAgreementRepo()
	return &MockDatabase{
		WalletRepo:       NewInMemoryWalletRepo(),
		TransactionRepo:  NewInMemoryTransactionRepo(),
		AgreementRepo:    agreements,
		WorkLogRepo:      NewInMemoryWorkLogRepo().WithAgreements(agreements),
		PaymentRepo:      NewInMemoryPaymentRepo(),
		NotificationRepo: NewInMemoryNotificationRepo(),
		txDB:             noopDB(),
	}
}

func (m *MockDatabase) User() repository.UserRepository                 { return m.UserRepo }
func (m *MockDatabase) Activity() repository.ActivityRepository         { return m.ActivityRepo }
func (m *MockDatabase) Wallet() repository.WalletRepository             { return m.WalletRepo }
func (m *MockDatabase) Transaction() repository.TransactionRepository   { return m.TransactionRepo }
func (m *MockDatabase) Agreement() repository.AgreementRepository       { return m.AgreementRepo }
func (m *MockDatabase) WorkLog() repository.WorkLogRepository           { return m.WorkLogRepo }
func (m *MockDatabase) Payment() repository.PaymentRepository           { return m.PaymentRepo }
func (m *MockDatabase) Job() repository.JobRepository                   { return m.JobRepo }
func (m *MockDatabase) Application() repository.ApplicationRepository   { return m.ApplicationRepo }
func (m *MockDatabase) Notification() repository.NotificationRepository { return m.NotificationRepo }
func (m *MockDatabase) Feedback() repository.FeedbackRepository         { return m.FeedbackRepo }

func (m *MockDatabase) Close() error { return m.txDB.Close() }

func (m *MockDatabase) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.txDB.BeginTxx(ctx, opts)
}
