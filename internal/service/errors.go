package service

import "errors"

// Validation failures surfaced to callers. Handlers map these onto 422
// responses; anything else is a server error.
var (
	ErrInvalidAmount             = errors.New("amount must be greater than zero")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance")

	ErrAgreementNotFound  = errors.New("agreement not found")
	ErrAgreementNotActive = errors.New("agreement is not active")
	ErrWorkLogNotFound    = errors.New("work log not found")
	ErrWorkLogNotPending  = errors.New("work log has already been decided")
	ErrWorkLogNotApproved = errors.New("work log has not been approved")
	ErrWorkLogMismatch    = errors.New("work log does not belong to this agreement")
	ErrWorkLogAlreadyPaid = errors.New("work log has already been paid")

	// ErrPaymentRecordMissing replaces the old behaviour of silently releasing
	// a zero amount when no payout was recorded against a work log.
	ErrPaymentRecordMissing = errors.New("no payout amount recorded for work log")

	ErrNotAgreementWorker   = errors.New("only the agreement's worker can log work")
	ErrNotAgreementEmployer = errors.New("only the agreement's employer can do this")

	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrPayoutAlreadySettled = errors.New("a payout for this work log has already been settled")
	ErrPayoutAlreadyDecided = errors.New("payment attempt has already been decided")
)
