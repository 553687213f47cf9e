package shared

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every domain package. Handlers map these four
// families onto HTTP responses; anything else is treated as internal.
var (
	// ErrValidation indicates malformed or rule-violating input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or referential conflict.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState indicates a forbidden lifecycle transition.
	ErrInvalidState = errors.New("invalid state")
)

// Validationf wraps ErrValidation with caller context.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with caller context.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Conflictf wraps ErrConflict with caller context.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with caller context.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}
