package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/jmoiron/sqlx"

	"github.com/opuslink/opuslink/internal/models"
)

// MockUserRepo implements UserRepository but only mocks the methods the
// tests exercise.
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) CheckIfPhoneNumberExist(phoneNumber string) (bool, error) {
	return false, nil
}

func (m *MockUserRepo) Insert(user *models.User, tx *sqlx.Tx) (string, error) {
	return "", nil
}

func (m *MockUserRepo) GetOne(id string) (*models.User, bool, error) {
	return nil, false, nil
}

func (m *MockUserRepo) GetByEmail(email string) (*models.User, bool, error) {
	args := m.Called(email)
	return args.Get(0).(*models.User), args.Bool(1), args.Error(2)
}

func (m *MockUserRepo) Verify(id string) error {
	return nil
}

func (m *MockUserRepo) UpdatePassword(id, password string) error {
	return nil
}

func (m *MockUserRepo) UpdateProfile(id, firstName, lastName, headline string) error {
	return nil
}

func (m *MockUserRepo) ChangeProfilePicture(id, image string) error {
	return nil
}

func (m *MockUserRepo) UpdateRating(id string, rating float64, ratingCount int, tx *sqlx.Tx) error {
	return nil
}

func (m *MockUserRepo) Lock(id string) error {
	return nil
}

func (m *MockUserRepo) List(page, pageSize int) ([]models.User, error) {
	return nil, nil
}

func (m *MockUserRepo) Count() (int, error) {
	return 0, nil
}
