package fill

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound is a normal polling outcome, not a failure.
	ErrElementNotFound = errors.New("country input not found")

	ErrInjectionUnsupported = errors.New("value injection unsupported")
	ErrValidationFailure    = errors.New("invalid country name")

	// ErrDropdownAmbiguous marks a fill whose value is set but whose
	// option selection could not be confirmed.
	ErrDropdownAmbiguous = errors.New("dropdown selection unconfirmed")

	ErrFeedbackBlocked  = errors.New("feedback unavailable")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// FillError provides detailed error context
type FillError struct {
	Frame     string
	Operation string
	Cause     error
	Details   string
}

func (e *FillError) Error() string {
	return fmt.Sprintf("[%s] %s failed: %v - %s", e.Frame, e.Operation, e.Cause, e.Details)
}

func (e *FillError) Unwrap() error {
	return e.Cause
}
