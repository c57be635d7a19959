package handler

import (
	"net/http"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/request"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/validator"
)

type WorkLogResponseData struct {
	ID          string    `json:"id"`
	AgreementID string    `json:"agreement_id"`
	Hours       float64   `json:"hours,omitempty"`
	Days        float64   `json:"days,omitempty"`
	Description string    `json:"description"`
	WorkDate    string    `json:"work_date"`
	Status      string    `json:"status"`
	Amount      *float64  `json:"amount,omitempty"`
	Paid        bool      `json:"paid"`
	CreatedAt   time.Time `json:"created_at"`
}

type workLogHandler struct {
	workLedger *service.WorkLedgerService
	errHandler *errHandler.ErrorHandler
}

func NewWorkLogHandler(workLedger *service.WorkLedgerService, errHandler *errHandler.ErrorHandler) *workLogHandler {
	return &workLogHandler{
		workLedger: workLedger,
		errHandler: errHandler,
	}
}

func newWorkLogResponseData(workLog *models.WorkLog) *WorkLogResponseData {
	data := &WorkLogResponseData{
		ID:          workLog.ID,
		AgreementID: workLog.AgreementID,
		Hours:       workLog.Hours,
		Days:        workLog.Days,
		Description: workLog.Description,
		WorkDate:    workLog.WorkDate.Format("2006-01-02"),
		Status:      workLog.Status,
		Paid:        workLog.Paid,
		CreatedAt:   workLog.CreatedAt,
	}
	if workLog.Amount.Valid {
		data.Amount = &workLog.Amount.Float64
	}
	return data
}

func (h *workLogHandler) HandleLogWork(w http.ResponseWriter, r *http.Request) {
	worker := context.ContextGetAuthenticatedUser(r)

	var input struct {
		AgreementID string              `json:"agreement_id"`
		Hours       float64             `json:"hours"`
		Days        float64             `json:"days"`
		Description string              `json:"description"`
		WorkDate    string              `json:"work_date"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.AgreementID), "Agreement is required")
	input.Validator.Check(input.Hours > 0 || input.Days > 0, "Hours or days worked is required")
	input.Validator.Check(input.Hours >= 0 && input.Days >= 0, "Hours and days cannot be negative")
	input.Validator.Check(validator.NotBlank(input.Description), "Description is required")

	var workDate time.Time
	if input.WorkDate != "" {
		workDate, err = time.Parse("2006-01-02", input.WorkDate)
		input.Validator.Check(err == nil, "Work date must be in YYYY-MM-DD format")
	}

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	workLog, err := h.workLedger.LogWork(r.Context(), input.AgreementID, worker.ID, input.Hours, input.Days, input.Description, workDate)
	if err != nil {
		respondServiceError(h.errHandler, w, r, err)
		return
	}

	message := "Work logged successfully"
	err = response.JSONCreatedResponse(w, newWorkLogResponseData(workLog), message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *workLogHandler) HandleApproveWork(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)
	workLogID := r.PathValue("id")

	workLog, err := h.workLedger.ApproveWork(r.Context(), workLogID, employer.ID)
	if err != nil {
		respondServiceError(h.errHandler, w, r, err)
		return
	}

	message := "Work approved"
	err = response.JSONOkResponse(w, newWorkLogResponseData(workLog), message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *workLogHandler) HandleRejectWork(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)
	workLogID := r.PathValue("id")

	var input struct {
		Reason    string              `json:"reason"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.Reason), "A reason is required when rejecting work")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	workLog, err := h.workLedger.RejectWork(r.Context(), workLogID, employer.ID, input.Reason)
	if err != nil {
		respondServiceError(h.errHandler, w, r, err)
		return
	}

	message := "Work rejected"
	err = response.JSONOkResponse(w, newWorkLogResponseData(workLog), message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *workLogHandler) HandlePendingApprovals(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)

	workLogs, err := h.workLedger.PendingApprovals(employer.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.respondList(w, r, workLogs)
}

func (h *workLogHandler) HandleMyWorkLogs(w http.ResponseWriter, r *http.Request) {
	worker := context.ContextGetAuthenticatedUser(r)

	workLogs, err := h.workLedger.WorkerWorkLogs(worker.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.respondList(w, r, workLogs)
}

func (h *workLogHandler) HandleAgreementWorkLogs(w http.ResponseWriter, r *http.Request) {
	agreementID := r.PathValue("id")

	workLogs, err := h.workLedger.AgreementWorkLogs(agreementID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	h.respondList(w, r, workLogs)
}

func (h *workLogHandler) respondList(w http.ResponseWriter, r *http.Request, workLogs []models.WorkLog) {
	data := make([]*WorkLogResponseData, len(workLogs))
	for i := range workLogs {
		data[i] = newWorkLogResponseData(&workLogs[i])
	}

	message := "Work logs fetched successfully"
	err := response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
