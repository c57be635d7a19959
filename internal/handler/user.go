package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/file"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/request"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/validator"
)

type UserResponseData struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	Role        string    `json:"role"`
	Headline    string    `json:"headline,omitempty"`
	Image       string    `json:"image,omitempty"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type userHandler struct {
	db           repository.Database
	errHandler   *errHandler.ErrorHandler
	fileUploader *file.FileUploader
}

func NewUserHandler(db repository.Database, errHandler *errHandler.ErrorHandler, fileUploader *file.FileUploader) *userHandler {
	return &userHandler{
		db:           db,
		errHandler:   errHandler,
		fileUploader: fileUploader,
	}
}

func (h *userHandler) HandleUserProfile(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	data := &UserResponseData{
		ID:          user.ID,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Role:        user.Role,
		Headline:    user.Headline.String,
		Image:       user.Image.String,
		Rating:      user.Rating,
		RatingCount: user.RatingCount,
		CreatedAt:   user.CreatedAt,
	}

	message := "Profile fetched successfully"
	err := response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *userHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		FirstName string              `json:"first_name"`
		LastName  string              `json:"last_name"`
		Headline  string              `json:"headline"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.FirstName), "First name is required")
	input.Validator.Check(len(input.FirstName) >= 3, "First name is too short")

	input.Validator.Check(validator.NotBlank(input.LastName), "Last name is required")
	input.Validator.Check(len(input.LastName) >= 3, "Last name is too short")

	input.Validator.Check(validator.MaxRunes(input.Headline, 120), "Headline is too long")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	err = h.db.User().UpdateProfile(user.ID, input.FirstName, input.LastName, input.Headline)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Profile updated successfully"
	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *userHandler) HandleChangeProfilePicture(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		h.errHandler.BadRequest(w, r, errors.New("invalid request data"))
		return
	}

	uploaded, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.errHandler.BadRequest(w, r, errors.New("error retrieving the file"))
		return
	}
	defer uploaded.Close()

	fileExtension := filepath.Ext(fileHeader.Filename)

	// Save the file temporarily to the server before pushing it to cloud storage
	tempFile, err := os.CreateTemp("", fmt.Sprintf("upload-*%s", fileExtension))
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	defer tempFile.Close()
	defer os.Remove(tempFile.Name())

	_, err = tempFile.ReadFrom(uploaded)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	fileUrl, err := h.fileUploader.UploadFile(tempFile.Name())
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err = h.db.User().ChangeProfilePicture(user.ID, fileUrl)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Profile picture updated successfully"
	data := map[string]string{
		"image": fileUrl,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
