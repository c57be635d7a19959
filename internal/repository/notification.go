package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

// notification kinds produced by the services
const (
	NotificationWorkLogged    = "work_logged"
	NotificationWorkApproved  = "work_approved"
	NotificationWorkRejected  = "work_rejected"
	NotificationPaymentSent   = "payment_sent"
	NotificationPaymentFailed = "payment_failed"
	NotificationAgreement     = "agreement_created"
	NotificationApplication   = "application_received"
)

// maxNotificationsPerUser caps per-user retention; the oldest rows are pruned
// on insert once the cap is exceeded.
const maxNotificationsPerUser = 100

type NotificationRepository interface {
	Insert(notification *models.Notification) (*models.Notification, error)
	ListByUser(userID string, unreadOnly bool) ([]models.Notification, error)
	UnreadCount(userID string) (int, error)
	MarkRead(id, userID string) error
	MarkAllRead(userID string) error
}

type NotificationRepositoryImpl struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (repo *NotificationRepositoryImpl) Insert(notification *models.Notification) (*models.Notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created models.Notification

	query := `
		INSERT INTO notifications (user_id, kind, message, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, kind, message, data, read, created_at`

	err := repo.db.GetContext(ctx, &created, query,
		notification.UserID,
		notification.Kind,
		notification.Message,
		notification.Data,
	)
	if err != nil {
		return nil, err
	}

	// prune oldest entries past the cap, best effort
	pruneQuery := `
		DELETE FROM notifications
		WHERE user_id=$1 AND id NOT IN (
			SELECT id FROM notifications WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2
		)`
	_, _ = repo.db.ExecContext(ctx, pruneQuery, notification.UserID, maxNotificationsPerUser)

	return &created, nil
}

func (repo *NotificationRepositoryImpl) ListByUser(userID string, unreadOnly bool) ([]models.Notification, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var notifications []models.Notification

	query := `
		SELECT id, user_id, kind, message, data, read, created_at
		FROM notifications
		WHERE user_id=$1 AND ($2 = FALSE OR read = FALSE)
		ORDER BY created_at DESC`

	err := repo.db.SelectContext(ctx, &notifications, query, userID, unreadOnly)
	if err != nil {
		return nil, err
	}

	return notifications, nil
}

func (repo *NotificationRepositoryImpl) UnreadCount(userID string) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read=FALSE`

	err := repo.db.GetContext(ctx, &count, query, userID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (repo *NotificationRepositoryImpl) MarkRead(id, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2`

	_, err := repo.db.ExecContext(ctx, query, id, userID)
	return err
}

func (repo *NotificationRepositoryImpl) MarkAllRead(userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE notifications SET read=TRUE WHERE user_id=$1`

	_, err := repo.db.ExecContext(ctx, query, userID)
	return err
}
