package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/opuslink/opuslink/internal/context"
	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/models"
	"github.com/opuslink/opuslink/internal/request"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/service"
	"github.com/opuslink/opuslink/internal/validator"
)

type TransactionResponseData struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Direction       string    `json:"direction"`
	Amount          float64   `json:"amount"`
	Description     string    `json:"description,omitempty"`
	ReferenceNumber string    `json:"reference_number"`
	AgreementID     string    `json:"agreement_id,omitempty"`
	BalanceAfter    float64   `json:"balance_after"`
	CreatedAt       time.Time `json:"created_at"`
}

type walletHandler struct {
	escrow     *service.EscrowService
	errHandler *errHandler.ErrorHandler
}

func NewWalletHandler(escrow *service.EscrowService, errHandler *errHandler.ErrorHandler) *walletHandler {
	return &walletHandler{
		escrow:     escrow,
		errHandler: errHandler,
	}
}

func newTransactionResponseData(transaction *models.Transaction) *TransactionResponseData {
	return &TransactionResponseData{
		ID:              transaction.ID,
		Type:            transaction.Type,
		Direction:       transaction.Direction,
		Amount:          transaction.Amount,
		Description:     transaction.Description.String,
		ReferenceNumber: transaction.ReferenceNumber,
		AgreementID:     transaction.AgreementID.String,
		BalanceAfter:    transaction.BalanceAfter,
		CreatedAt:       transaction.CreatedAt,
	}
}

func (h *walletHandler) HandleWalletSummary(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	summary, err := h.escrow.Summary(r.Context(), user.ID)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	message := "Balance fetched successfully"
	err = response.JSONOkResponse(w, summary, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *walletHandler) HandleWalletHistory(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)
	queryValues := retrieveUrlQueryValues(r)

	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("include_archived"))

	transactions, err := h.escrow.History(r.Context(), user.ID, queryValues.Page, queryValues.PageSize, includeArchived)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
		return
	}

	data := make([]*TransactionResponseData, len(transactions))
	for i := range transactions {
		data[i] = newTransactionResponseData(&transactions[i])
	}

	message := "Transactions fetched successfully"
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *walletHandler) HandleAddFunds(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Amount      float64             `json:"amount"`
		Description string              `json:"description"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	wallet, err := h.escrow.AddFunds(r.Context(), user.ID, input.Amount, input.Description)
	if err != nil {
		respondServiceError(h.errHandler, w, r, err)
		return
	}

	message := "Funds added successfully"
	data := map[string]any{
		"balance":        wallet.Balance,
		"escrow_balance": wallet.EscrowBalance,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}

func (h *walletHandler) HandleFundEscrow(w http.ResponseWriter, r *http.Request) {
	user := context.ContextGetAuthenticatedUser(r)

	var input struct {
		Amount      float64             `json:"amount"`
		AgreementID string              `json:"agreement_id"`
		Description string              `json:"description"`
		Validator   validator.Validator `json:"-"`
	}

	err := request.DecodeJSON(w, r, &input)
	if err != nil {
		h.errHandler.BadRequest(w, r, err)
		return
	}

	input.Validator.Check(input.Amount > 0, "Amount must be greater than zero")
	input.Validator.Check(validator.NotBlank(input.AgreementID), "Agreement is required")

	if input.Validator.HasErrors() {
		h.errHandler.FailedValidation(w, r, input.Validator.Errors)
		return
	}

	wallet, err := h.escrow.MoveToEscrow(r.Context(), user.ID, input.Amount, input.AgreementID, input.Description)
	if err != nil {
		respondServiceError(h.errHandler, w, r, err)
		return
	}

	message := "Funds moved to escrow"
	data := map[string]any{
		"balance":        wallet.Balance,
		"escrow_balance": wallet.EscrowBalance,
	}
	err = response.JSONOkResponse(w, data, message, nil)
	if err != nil {
		h.errHandler.ServerError(w, r, err)
	}
}
