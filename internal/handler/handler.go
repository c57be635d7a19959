package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/opuslink/opuslink/internal/errHandler"
	"github.com/opuslink/opuslink/internal/response"
	"github.com/opuslink/opuslink/internal/service"
)

const PlatformName = "OpusLink"

type queryStringValues struct {
	Search   string
	Page     int
	PageSize int
}

func retrieveUrlQueryValues(r *http.Request) *queryStringValues {
	queryValues := &queryStringValues{
		Page:     1,
		PageSize: 10,
	}

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if parsed, err := strconv.Atoi(pageStr); err == nil && parsed >= 1 {
			queryValues.Page = parsed
		}
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			queryValues.PageSize = parsed
		}
	}

	queryValues.Search = r.URL.Query().Get("search")

	return queryValues
}

// respondServiceError translates the service layer's sentinel errors into
// client-facing responses. Anything unrecognised is a server error.
func respondServiceError(eh *errHandler.ErrorHandler, w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrAgreementNotFound),
		errors.Is(err, service.ErrWorkLogNotFound):
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, service.ErrNotAgreementWorker),
		errors.Is(err, service.ErrNotAgreementEmployer):
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusForbidden, nil)
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrInsufficientEscrowBalance),
		errors.Is(err, service.ErrAgreementNotActive),
		errors.Is(err, service.ErrWorkLogNotPending),
		errors.Is(err, service.ErrWorkLogNotApproved),
		errors.Is(err, service.ErrWorkLogMismatch),
		errors.Is(err, service.ErrWorkLogAlreadyPaid),
		errors.Is(err, service.ErrPaymentRecordMissing),
		errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrPayoutAlreadySettled),
		errors.Is(err, service.ErrPayoutAlreadyDecided):
		response.JSONErrorResponse(w, nil, err.Error(), http.StatusUnprocessableEntity, nil)
	default:
		eh.ServerError(w, r, err)
	}
}
