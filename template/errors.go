package template

import (
	"errors"
	"fmt"
)

// Sentinel errors for template operations.
var (
	// ErrEmpty is returned when the template string is empty.
	ErrEmpty = errors.New("template is empty")

	// ErrUnresolved is returned in strict mode when a variable path
	// cannot be resolved against the context.
	ErrUnresolved = errors.New("unresolved variable")

	// ErrLimitExceeded is returned when a render exceeds its depth,
	// iteration, or output size budget.
	ErrLimitExceeded = errors.New("render limit exceeded")

	// ErrInvalidOptions is returned when processing options fail validation.
	ErrInvalidOptions = errors.New("invalid options")

	// ErrFunction is returned by function handlers for bad arguments.
	ErrFunction = errors.New("function error")
)

// Error wraps a processing failure with the operation and template path
// that caused it.
type Error struct {
	Op   string // Operation that failed ("variables", "loops", "includes")
	Path string // Variable path or include name, if any
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnresolved reports whether err is a strict-mode resolution failure.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolved)
}

// IsLimit reports whether err was caused by a render budget.
func IsLimit(err error) bool {
	return errors.Is(err, ErrLimitExceeded)
}

// argError builds the error a function handler returns for a bad argument.
func argError(fn string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrFunction, fn, fmt.Sprintf(format, args...))
}
