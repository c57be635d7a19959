// Every significant action, synchronous or asynchronous, is logged here so the
// platform has an audit trail: logins, escrow movements, work approvals,
// payouts, admin actions. Entity and entity_id are polymorphic so one table
// serves every part of the application.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

type ActivityRepository interface {
	CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int
	Insert(log *models.ActivityLog) (*models.ActivityLog, error)
}

const (
	ActivityLogTransactionEntity = "transaction"
	ActivityLogWalletEntity      = "wallet"
	ActivityLogUserEntity        = "user"
	ActivityLogJobEntity         = "job"
	ActivityLogApplicationEntity = "application"
	ActivityLogAgreementEntity   = "agreement"
	ActivityLogWorkLogEntity     = "work_log"
	ActivityLogPaymentEntity     = "payment"
)

type ActivityRepositoryImpl struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &ActivityRepositoryImpl{db: db}
}

func (repo *ActivityRepositoryImpl) Insert(log *models.ActivityLog) (*models.ActivityLog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var created models.ActivityLog

	query := `
		INSERT INTO activity_logs (user_id, entity, entity_id, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, entity, entity_id, description, created_at`

	err := repo.db.GetContext(ctx, &created, query,
		log.UserID,
		log.Entity,
		log.EntityId,
		log.Description,
	)

	if err != nil {
		return nil, err
	}

	return &created, nil
}

// CountConsecutiveFailedLoginAttempts checks the most recent login attempts in
// descending order and counts failures until a successful login or the limit
// is reached. Used to decide whether an account should be temporarily locked.
func (repo *ActivityRepositoryImpl) CountConsecutiveFailedLoginAttempts(userID, actionDesc string) int {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var descriptions []string

	query := `
		SELECT description
		FROM activity_logs
		WHERE user_id = $1 AND entity = $2
		ORDER BY created_at DESC
		LIMIT 3
	`
	err := repo.db.SelectContext(ctx, &descriptions, query, userID, ActivityLogUserEntity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0
		}
		return 0
	}

	count := 0
	for _, desc := range descriptions {
		if desc == actionDesc {
			count++
		} else {
			break
		}
	}

	return count
}
