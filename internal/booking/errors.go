package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when an operation is not allowed at the current step.
	ErrInvalidTransition = errors.New("operation not allowed at current step")
	// ErrOperationPending is returned when the same request is already in flight.
	ErrOperationPending = errors.New("operation already pending")
	// ErrSessionNotFound is returned by session stores for unknown or expired ids.
	ErrSessionNotFound = errors.New("booking session not found")
)

// ValidationError reports a local rule violation. It never reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
