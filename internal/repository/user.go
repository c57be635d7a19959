package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

type UserRepository interface {
	CheckIfPhoneNumberExist(phoneNumber string) (bool, error)
	Insert(user *models.User, tx *sqlx.Tx) (string, error)
	GetOne(id string) (*models.User, bool, error)
	GetByEmail(email string) (*models.User, bool, error)
	Verify(id string) error
	UpdatePassword(id, password string) error
	UpdateProfile(id, firstName, lastName, headline string) error
	ChangeProfilePicture(id, image string) error
	UpdateRating(id string, rating float64, ratingCount int, tx *sqlx.Tx) error
	Lock(id string) error
	List(page, pageSize int) ([]models.User, error)
	Count() (int, error)
}

const (
	// UserAccountPendingStatus indicates that the user's account has not been verified.
	// This is the default status after registration.
	UserAccountPendingStatus = "pending"

	// UserAccountActiveStatus indicates that the user's account is active and fully functional.
	UserAccountActiveStatus = "active"

	// UserAccountLockedStatus indicates that the account has been locked, e.g. after
	// repeated failed logins or by admin action. A locked account cannot sign in.
	UserAccountLockedStatus = "locked"
)

const (
	UserRoleEmployer = "employer"
	UserRoleWorker   = "worker"
	UserRoleAdmin    = "admin"
)

type UserRepositoryImpl struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &UserRepositoryImpl{db: db}
}

const userColumns = `id, first_name, last_name, phone_number, image, role, headline, email, status, rating, rating_count, created_at, deleted_at, verified_at, hashed_password`

func (repo *UserRepositoryImpl) Insert(user *models.User, tx *sqlx.Tx) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var id string
	query := `
		INSERT INTO users (first_name, last_name, phone_number, role, email, hashed_password)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	args := []any{
		user.FirstName,
		user.LastName,
		user.PhoneNumber,
		user.Role,
		user.Email,
		user.HashedPassword,
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

func (repo *UserRepositoryImpl) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM users WHERE phone_number=$1 AND deleted_at IS NULL)`

	err := repo.db.GetContext(ctx, &exists, query, phoneNumber)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (repo *UserRepositoryImpl) GetOne(id string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) GetByEmail(email string) (*models.User, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var user models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1 AND deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &user, true, nil
}

func (repo *UserRepositoryImpl) Verify(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET status=$1, verified_at=NOW() WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, UserAccountActiveStatus, id)
	return err
}

func (repo *UserRepositoryImpl) UpdatePassword(id, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET hashed_password=$1 WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, password, id)
	return err
}

func (repo *UserRepositoryImpl) UpdateProfile(id, firstName, lastName, headline string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET first_name=$1, last_name=$2, headline=$3 WHERE id=$4`

	_, err := repo.db.ExecContext(ctx, query, firstName, lastName, headline, id)
	return err
}

func (repo *UserRepositoryImpl) ChangeProfilePicture(id, image string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET image=$1 WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, image, id)
	return err
}

func (repo *UserRepositoryImpl) UpdateRating(id string, rating float64, ratingCount int, tx *sqlx.Tx) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET rating=$1, rating_count=$2 WHERE id=$3`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, rating, ratingCount, id)
	} else {
		_, err = repo.db.ExecContext(ctx, query, rating, ratingCount, id)
	}
	return err
}

func (repo *UserRepositoryImpl) Lock(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	query := `UPDATE users SET status=$1 WHERE id=$2`

	_, err := repo.db.ExecContext(ctx, query, UserAccountLockedStatus, id)
	return err
}

func (repo *UserRepositoryImpl) List(page, pageSize int) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var users []models.User

	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := repo.db.SelectContext(ctx, &users, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}

	return users, nil
}

func (repo *UserRepositoryImpl) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	var count int

	query := `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`

	err := repo.db.GetContext(ctx, &count, query)
	if err != nil {
		return 0, err
	}

	return count, nil
}
