package apperrors

import "errors"

var (
	// not found
	ErrShowNotFound       = errors.New("show not found")
	ErrTicketTypeNotFound = errors.New("ticket type not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrTicketNotFound     = errors.New("ticket not found")

	// validation
	ErrInvalidInput       = errors.New("invalid input")
	ErrBelowMinPurchase   = errors.New("quantity below minimum purchase")
	ErrExceedsMaxPurchase = errors.New("quantity exceeds maximum purchase")
	ErrShowStarted        = errors.New("show already started")
	ErrInvalidAmount      = errors.New("order amount must be positive")

	// capacity and contention
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("write conflict, retries exhausted")

	// settlement
	ErrInvalidSignature   = errors.New("invalid gateway signature")
	ErrAmountMismatch     = errors.New("confirmed amount does not match order")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrAlreadyRefunded    = errors.New("transaction already refunded")
	ErrNoSuccessfulTxn    = errors.New("order has no successful transaction")
	ErrTicketNotCheckable = errors.New("ticket cannot be checked in")

	ErrInternalServerError = errors.New("internal server error")
)
