package handler

import (
	"math"
	"net/http"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/request"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/validator"
)

type FeedbackResponseData struct {
	ID         string    `json:"id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
}

type feedbackHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
}

func NewFeedbackHandler(db repository.Database, errHandler *errHandler.ErrorHandler) *feedbackHandler {
	return &feedbackHandler{
		db:         db,
		errHandler: errHandler,
	}
}

// HandleLeaveFeedback lets either party of a completed agreement rate the
// other, once. The feedback row and the subject's rating aggregate are
// written in the same transaction so the average can't drift from the rows
// it is derived from.
func (h *feedbackHandler) HandleLeaveFeedback(w http.ResponseWriter, r *http.Request) {
	author := context.ContextGetAuthenticatedUser(r)

	var input struct {
		AgreementID string              `json:"agreement_id"`
		Rating      int                 `json:"rating"`
		Comment     string              `json:"comment"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.AgreementID), "Agreement is required")
	input.Validator.Check(validator.Between(input.Rating, 1, 5), "Rating must be between 1 and 5")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	agreement, found, err := h.db.Agreement().GetOne(input.AgreementID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	if author.ID != agreement.EmployerID && author.ID != agreement.WorkerID {
		h.errHandler.Forbidden(w, r)
		return
	}

	if agreement.Status != repository.AgreementCompletedStatus {
		response.JSONErrorResponse(w, nil, "Feedback can only be left on completed agreements", http.StatusUnprocessableEntity, nil)
		return
	}

	exists, err := h.db.Feedback().Exists(agreement.ID, author.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if exists {
		response.JSONErrorResponse(w, nil, "You have already left feedback for this agreement", http.StatusUnprocessableEntity, nil)
		return
	}

	subjectID := agreement.WorkerID
	if author.ID == agreement.WorkerID {
		subjectID = agreement.EmployerID
	}

	subject, found, err := h.db.User().GetOne(subjectID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	feedbackID, err := h.db.Feedback().Insert(&models.Feedback{
		AgreementID: agreement.ID,
		AuthorID:    author.ID,
		SubjectID:   subjectID,
		Rating:      input.Rating,
		Comment:     input.Comment,
	}, tx)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	newCount := subject.RatingCount + 1
	newRating := ((subject.Rating * float64(subject.RatingCount)) + float64(input.Rating)) / float64(newCount)
	newRating = math.Round(newRating*100) / 100

	err = h.db.User().UpdateRating(subjectID, newRating, newCount, tx)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	if err = tx.Commit(); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Feedback submitted successfully"
	data := map[string]string{
		"id": feedbackID,
	}
	err = response.JSONCreatedResponse(w, data, message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *feedbackHandler) HandleUserFeedback(w http.ResponseWriter, r *http.Request) {
	subjectID := r.PathValue("id")

	feedbacks, err := h.db.Feedback().ListForUser(subjectID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*FeedbackResponseData, len(feedbacks))
	for i, feedback := range feedbacks {
		data[i] = &FeedbackResponseData{
			ID:         feedback.ID,
			Rating:     feedback.Rating,
			Comment:    feedback.Comment,
			AuthorName: feedback.AuthorFirstName + " " + feedback.AuthorLastName,
			CreatedAt:  feedback.CreatedAt,
		}
	}

	message := "Feedback fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
