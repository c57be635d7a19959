package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/opuslink/opuslink/assets"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"
)

const defaultTimeout = 3 * time.Second

// Database interface defines available repositories
type Database interface {
	User() UserRepository
	Activity() ActivityRepository
	Wallet() WalletRepository
	Transaction() TransactionRepository
	Agreement() AgreementRepository
	WorkLog() WorkLogRepository
	Payment() PaymentRepository
	Job() JobRepository
	Application() ApplicationRepository
	Notification() NotificationRepository
	Feedback() FeedbackRepository

	Close() error
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DatabaseImpl implements the Database interface
type DatabaseImpl struct {
	db               *sqlx.DB
	userRepo         UserRepository
	activityRepo     ActivityRepository
	walletRepo       WalletRepository
	transactionRepo  TransactionRepository
	agreementRepo    AgreementRepository
	workLogRepo      WorkLogRepository
	paymentRepo      PaymentRepository
	jobRepo          JobRepository
	applicationRepo  ApplicationRepository
	notificationRepo NotificationRepository
	feedbackRepo     FeedbackRepository

	mu sync.Mutex
}

// New initializes a database connection and runs migrations if enabled
func New(dsn string, automigrate bool) (Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", "postgres://"+dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(2 * time.Hour)

	if automigrate {
		iofsDriver, err := iofs.New(assets.EmbeddedFiles, "migrations")
		if err != nil {
			return nil, err
		}

		migrator, err := migrate.NewWithSourceInstance("iofs", iofsDriver, "postgres://"+dsn)
		if err != nil {
			return nil, err
		}

		if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, err
		}
	}

	return &DatabaseImpl{db: db}, nil
}

func (d *DatabaseImpl) Close() error {
	return d.db.Close()
}

func (d *DatabaseImpl) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	tx, err := d.db.BeginTxx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (d *DatabaseImpl) User() UserRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.userRepo == nil {
		d.userRepo = NewUserRepository(d.db)
	}
	return d.userRepo
}

func (d *DatabaseImpl) Activity() ActivityRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.activityRepo == nil {
		d.activityRepo = NewActivityRepository(d.db)
	}
	return d.activityRepo
}

func (d *DatabaseImpl) Wallet() WalletRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.walletRepo == nil {
		d.walletRepo = NewWalletRepository(d.db)
	}
	return d.walletRepo
}

func (d *DatabaseImpl) Transaction() TransactionRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.transactionRepo == nil {
		d.transactionRepo = NewTransactionRepository(d.db)
	}
	return d.transactionRepo
}

func (d *DatabaseImpl) Agreement() AgreementRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.agreementRepo == nil {
		d.agreementRepo = NewAgreementRepository(d.db)
	}
	return d.agreementRepo
}

func (d *DatabaseImpl) WorkLog() WorkLogRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.workLogRepo == nil {
		d.workLogRepo = NewWorkLogRepository(d.db)
	}
	return d.workLogRepo
}

func (d *DatabaseImpl) Payment() PaymentRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.paymentRepo == nil {
		d.paymentRepo = NewPaymentRepository(d.db)
	}
	return d.paymentRepo
}

func (d *DatabaseImpl) Job() JobRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.jobRepo == nil {
		d.jobRepo = NewJobRepository(d.db)
	}
	return d.jobRepo
}

func (d *DatabaseImpl) Application() ApplicationRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.applicationRepo == nil {
		d.applicationRepo = NewApplicationRepository(d.db)
	}
	return d.applicationRepo
}

func (d *DatabaseImpl) Notification() NotificationRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.notificationRepo == nil {
		d.notificationRepo = NewNotificationRepository(d.db)
	}
	return d.notificationRepo
}

func (d *DatabaseImpl) Feedback() FeedbackRepository {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.feedbackRepo == nil {
		d.feedbackRepo = NewFeedbackRepository(d.db)
	}
	return d.feedbackRepo
}
