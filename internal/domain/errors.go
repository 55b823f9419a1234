package domain

import (
	"errors"
	"fmt"
)

// Business rule failures. Handlers map these to 4xx responses; anything else
// is treated as an internal fault.
var (
	ErrOrderTooSmall        = errors.New("order amount is below the minimum of 1")
	ErrOrderTooLarge        = errors.New("order amount exceeds the maximum of 1000000")
	ErrPriceUnavailable     = errors.New("price unavailable")
	ErrInvalidStopLoss      = errors.New("invalid stop loss")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrPortfolioNotFound    = errors.New("portfolio not found")
	ErrPortfolioExists      = errors.New("portfolio already exists")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsBusinessRule reports whether err is a rejected order rather than a fault.
func IsBusinessRule(err error) bool {
	for _, target := range []error{
		ErrOrderTooSmall,
		ErrOrderTooLarge,
		ErrPriceUnavailable,
		ErrInvalidStopLoss,
		ErrInsufficientFunds,
		ErrInsufficientHoldings,
		ErrPortfolioExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
