package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/helper"
	"github.com/opuslink/opuslink/internal/mocks"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
)

func TestHandleAuthLogin_ValidCredentials(t *testing.T) {
	// Arrange
	mockUserRepo := new(mocks.MockUserRepo)
	mockActivityRepo := new(mocks.MockActivityRepo)

	var baseURL string = "http://localhost"
	var wg sync.WaitGroup
	mockHelper := helper.New(&baseURL, &wg, nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := errHandler.New("no-reply@example.com", nil, logger, mockHelper)

	testUser := &models.User{
		ID:             "123",
		Email:          "test@example.com",
		Role:           repository.UserRoleWorker,
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         repository.UserAccountActiveStatus,
	}

	mockUserRepo.On("GetByEmail", "test@example.com").Return(testUser, true, nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)

	db := mocks.NewMockDatabase()
	db.UserRepo = mockUserRepo
	db.ActivityRepo = mockActivityRepo

	authHandler := NewAuthHandler(db, errorHandler, mockHelper, nil, nil, nil, mocks.MockConfig)

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "correctpassword",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()

	// Act
	authHandler.HandleAuthLogin(rr, req)
	wg.Wait() // let the activity log task finish before asserting on it

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	require.Contains(t, response, "data")

	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "Expected response['data'] to be a map")

	require.Contains(t, data, "auth_token")
	require.Contains(t, data, "token_expiry")
	require.NotEmpty(t, data["auth_token"])
	require.Equal(t, repository.UserRoleWorker, data["role"])

	mockUserRepo.AssertExpectations(t)
	mockActivityRepo.AssertExpectations(t)
}

func TestHandleAuthLogin_WrongPassword(t *testing.T) {
	mockUserRepo := new(mocks.MockUserRepo)
	mockActivityRepo := new(mocks.MockActivityRepo)

	var baseURL string = "http://localhost"
	var wg sync.WaitGroup
	mockHelper := helper.New(&baseURL, &wg, nil)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := errHandler.New("no-reply@example.com", nil, logger, mockHelper)

	testUser := &models.User{
		ID:             "123",
		Email:          "test@example.com",
		Role:           repository.UserRoleWorker,
		HashedPassword: "$2a$10$oiIYEECpY/GRNs9Fi7Yh1.o4Dw2fTD26eu5z48KYgXkMuOiWlSvqG",
		Status:         repository.UserAccountActiveStatus,
	}

	mockUserRepo.On("GetByEmail", "test@example.com").Return(testUser, true, nil)
	mockActivityRepo.On("Insert", mock.Anything).Return(&models.ActivityLog{}, nil)

	db := mocks.NewMockDatabase()
	db.UserRepo = mockUserRepo
	db.ActivityRepo = mockActivityRepo

	authHandler := NewAuthHandler(db, errorHandler, mockHelper, nil, nil, nil, mocks.MockConfig)

	requestBody, _ := json.Marshal(map[string]string{
		"email":    "test@example.com",
		"password": "not-the-password",
	})

	req, err := http.NewRequest("POST", "/auth/login", bytes.NewBuffer(requestBody))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()

	authHandler.HandleAuthLogin(rr, req)
	wg.Wait()

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.NotContains(t, rr.Body.String(), "auth_token")
}
