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

type PaymentResponseData struct {
	ID            string    `json:"id"`
	AgreementID   string    `json:"agreement_id"`
	WorkLogID     string    `json:"work_log_id"`
	Amount        float64   `json:"amount"`
	Fee           float64   `json:"fee"`
	Method        string    `json:"method"`
	Reference     string    `json:"reference"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	SettledAt     string    `json:"settled_at,omitempty"`
}

type paymentHandler struct {
	payments   *service.PaymentService
	errHandler *errHandler.ErrorHandler
}

func NewPaymentHandler(payments *service.PaymentService, errHandler *errHandler.ErrorHandler) *paymentHandler {
	return &paymentHandler{
		payments:   payments,
		errHandler: errHandler,
	}
}

func newPaymentResponseData(payment *models.Payment) *PaymentResponseData {
	data := &PaymentResponseData{
		ID:            payment.ID,
		AgreementID:   payment.AgreementID,
		WorkLogID:     payment.WorkLogID,
		Amount:        payment.Amount,
		Fee:           payment.Fee,
		Method:        payment.Method,
		Reference:     payment.Reference,
		Status:        payment.Status,
		FailureReason: payment.FailureReason.String,
		CreatedAt:     payment.CreatedAt,
	}
	if payment.SettledAt.Valid {
		data.SettledAt = payment.SettledAt.Time.Format(time.RFC3339)
	}
	return data
}

// HandleInitiatePayout kicks off payment of an approved work log. The response
// carries the processing attempt; the outcome arrives asynchronously through
// the payout pipeline and is visible on the payment record and via
// notifications.
func (h *paymentHandler) HandleInitiatePayout(w http.ResponseWriter, r *http.Request) {
	employer := context.ContextGetAuthenticatedUser(r)

	var input struct {
		WorkLogID string              `json:"work_log_id"`
		Method    string              `json:"method"`
		Validator validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(validator.NotBlank(input.WorkLogID), "Work log is required")
	input.Validator.Check(validator.NotBlank(input.Method), "Payment method is required")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	payment, err := h.payments.Initiate(r.Context(), input.WorkLogID, employer.ID, input.Method)
	if err != nil {
		respondServiceError(h.errHandler, w, r, err)
		return
	}

	message := "Payout initiated"
	err = response.JSONCreatedResponse(w, newPaymentResponseData(payment), message)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *paymentHandler) HandleMyPayments(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	payments, err := h.payments.ListByUser(user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*PaymentResponseData, len(payments))
	for i := range payments {
		data[i] = newPaymentResponseData(&payments[i])
	}

	message := "Payments fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *paymentHandler) HandlePaymentDetails(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)
	paymentID := r.PathValue("id")

	payment, found, err := h.payments.GetOne(paymentID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}
	if !found {
		h.errHandler.NotFound(w, r)
		return
	}

	if user.ID != payment.EmployerID && user.ID != payment.WorkerID {
		h.errHandler.Forbidden(w, r)
		return
	}

	message := "Payment fetched successfully"
	err = response.JSONOkResponse(w, newPaymentResponseData(payment), message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
