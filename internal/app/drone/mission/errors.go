package mission

import (
	"errors"
	"fmt"
)

// ErrInvalidParams is wrapped by every ValidationError so callers can test
// for it with errors.Is.
var ErrInvalidParams = errors.New("mission: invalid parameters")

// ValidationError describes a mission parameter or plan that was rejected
// before any flight began.
type ValidationError struct {
	// Pattern is the planner that rejected the input, empty for plan checks.
	Pattern Pattern
	// Field names the offending parameter.
	Field string
	// Reason is a human readable explanation.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Pattern != "" {
		return fmt.Sprintf("mission [%s]: invalid %s: %s", e.Pattern, e.Field, e.Reason)
	}
	return fmt.Sprintf("mission: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidParams
}

func invalid(p Pattern, field, format string, args ...any) error {
	return &ValidationError{Pattern: p, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
