package domain

import "errors"

// Purchase failure taxonomy. Each failure maps to a distinct HTTP status at
// the handler layer; ErrTransactionFailed deliberately carries no detail of
// the underlying cause (it is logged, never exposed).
var (
	// ErrInstrumentNotFound - the instrument does not exist or is inactive (404)
	ErrInstrumentNotFound = errors.New("instrument not found")

	// ErrInvalidQuantity - the requested unit quantity is not positive (400)
	ErrInvalidQuantity = errors.New("units must be greater than zero")

	// ErrInsufficientFunds - wallet balance does not cover the total amount (400)
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrAccountNotFound - no account exists for the given user id (404)
	ErrAccountNotFound = errors.New("account not found")

	// ErrHoldingNotFound - the user holds no units of the instrument (404)
	ErrHoldingNotFound = errors.New("holding not found")

	// ErrTransactionFailed - an infrastructure error aborted the atomic unit;
	// all writes were rolled back (500)
	ErrTransactionFailed = errors.New("transaction failed")
)
