package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

type FeedbackRepository interface {
	Insert(feedback *models.Feedback, tx *sqlx.Tx) (string, error)
	Exists(agreementID, authorID string) (bool, error)
	ListForUser(subjectID string) ([]models.Feedback, error)
}

type FeedbackRepositoryImpl struct {
	db *sqlx.DB
}

func NewFeedbackRepository(db *sqlx.DB) FeedbackRepository {
	return &FeedbackRepositoryImpl{db: db}
}

func (repo *FeedbackRepositoryImpl) Insert(feedback *models.Feedback, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string

	query := `
		INSERT INTO feedbacks (agreement_id, author_id, subject_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	args := []any{
		feedback.AgreementID,
		feedback.AuthorID,
		feedback.SubjectID,
		feedback.Rating,
		feedback.Comment,
	}

	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = repo.db.GetContext(ctx, &id, query, args...)
	}
	if err != nil {
		return "", err
	}

	return id, nil
}

func (repo *FeedbackRepositoryImpl) Exists(agreementID, authorID string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM feedbacks WHERE agreement_id=$1 AND author_id=$2)`

	err := repo.db.GetContext(ctx, &exists, query, agreementID, authorID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (repo *FeedbackRepositoryImpl) ListForUser(subjectID string) ([]models.Feedback, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var feedbacks []models.Feedback

	query := `
		SELECT f.id, f.agreement_id, f.author_id, f.subject_id, f.rating, f.comment, f.created_at,
		       u.first_name AS author_first_name, u.last_name AS author_last_name
		FROM feedbacks f
		JOIN users u ON u.id = f.author_id
		WHERE f.subject_id=$1
		ORDER BY f.created_at DESC`

	err := repo.db.SelectContext(ctx, &feedbacks, query, subjectID)
	if err != nil {
		return nil, err
	}

	return feedbacks, nil
}
