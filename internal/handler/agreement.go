package handler

import (
	"net/http"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/repository"
	"github.com/opuslink/opuslink/internal/response"
)

type AgreementResponseData struct {
	ID           string    `json:"id"`
	JobID        string    `json:"job_id"`
	JobTitle     string    `json:"job_title"`
	EmployerName string    `json:"employer_name"`
	WorkerName   string    `json:"worker_name"`
	TermsType    string    `json:"terms_type"`
	Rate         float64   `json:"rate"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	CompletedAt  string    `json:"completed_at,omitempty"`
}

type agreementHandler struct {
	db         repository.Database
	errHandler *errHandler.ErrorHandler
}

func NewAgreementHandler(db repository.Database, errHandler *errHandler.ErrorHandler) *agreementHandler {
	return &agreementHandler{
		db:         db,
		errHandler: errHandler,
	}
}

func newAgreementResponseData(agreement *models.Agreement) *AgreementResponseData {
	data := &AgreementResponseData{
		ID:           agreement.ID,
		JobID:        agreement.JobID,
		JobTitle:     agreement.JobTitle,
		EmployerName: agreement.EmployerFirstName + " " + agreement.EmployerLastName,
		WorkerName:   agreement.WorkerFirstName + " " + agreement.WorkerLastName,
		TermsType:    agreement.TermsType,
		Rate:         agreement.Rate,
		Status:       agreement.Status,
		CreatedAt:    agreement.CreatedAt,
	}
	if agreement.CompletedAt.Valid {
		data.CompletedAt = agreement.CompletedAt.Time.Format(time.RFC3339)
	}
	return data
}

func (h *agreementHandler) HandleMyAgreements(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var agreements []models.Agreement
	var err error

	if user.Role == repository.UserRoleEmployer {
		agreements, err = h.db.Agreement().GetAllByEmployer(user.ID)
	} else {
		agreements, err = h.db.Agreement().GetAllByWorker(user.ID)
	}
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*AgreementResponseData, len(agreements))
	for i := range agreements {
		data[i] = newAgreementResponseData(&agreements[i])
	}

	message := "Agreements fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *agreementHandler) HandleAgreementDetails(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)
	agreementID := r.PathValue("id")

	agreement, found, err := h.db.Agreement().GetOne(agreementID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	// only the two parties can see the agreement
	if user.ID != agreement.EmployerID && user.ID != agreement.WorkerID {
		h.errHandler.Forbidden(w, r)
		return
	}

	message := "Agreement fetched successfully"
	err = response.JSONOkResponse(w, newAgreementResponseData(agreement), message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

// HandleCompleteAgreement ends the working relationship amicably. Completion
// does not touch escrowed funds; unreleased amounts stay locked until the
// remaining approved work logs are paid out.
func (h *agreementHandler) HandleCompleteAgreement(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, repository.AgreementCompletedStatus, "Agreement marked as completed")
}

func (h *agreementHandler) HandleCancelAgreement(w http.ResponseWriter, r *http.Request) {
	h.updateStatus(w, r, repository.AgreementCancelledStatus, "Agreement cancelled")
}

func (h *agreementHandler) updateStatus(w http.ResponseWriter, r *http.Request, status, message string) {
	user := context.ContextGetAuthenticatedUser(r)
	agreementID := r.PathValue("id")

	agreement, found, err := h.db.Agreement().GetOne(agreementID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	if user.ID != agreement.EmployerID {
		h.errHandler.Forbidden(w, r)
		return
	}

	if agreement.Status != repository.AgreementActiveStatus {
		response.JSONErrorResponse(w, nil, "Agreement is no longer active", http.StatusUnprocessableEntity, nil)
		return
	}

	if err := h.db.Agreement().UpdateStatus(agreementID, status, nil); err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	err = response.JSONOkResponse(w, nil, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
