package ledger

import "errors"

// Sentinel errors for the ledger core. Handlers map these onto HTTP codes;
// the store wraps driver errors so callers can still use errors.Is.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrProductNotFound     = errors.New("product not found")
	ErrExchangeNotFound    = errors.New("exchange not found")
	ErrInvalidState        = errors.New("operation not valid in current state")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientBalance = errors.New("insufficient star balance")
	ErrValidation          = errors.New("invalid input")
	ErrConflict            = errors.New("concurrent update conflict")
)

// Code returns the stable machine-readable code for a ledger error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrExchangeNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "internal_error"
	}
}
