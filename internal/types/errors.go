package types

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed or out-of-policy input. Nothing has been
// mutated when one is returned; the caller must fix the request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError builds a ValidationError from a format string.
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StateError marks valid input that is illegal given the current entity state
// (account not active, order no longer pending, balance too low).
type StateError struct {
	Reason string
}

func (e *StateError) Error() string {
	return e.Reason
}

// NewStateError builds a StateError from a format string.
func NewStateError(format string, args ...interface{}) *StateError {
	return &StateError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError marks a missing entity or one the caller may not see.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return e.Reason
}

// NewNotFoundError builds a NotFoundError from a format string.
func NewNotFoundError(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

// ErrInsufficientFunds is the StateError raised when a wallet cannot cover a
// debit. It surfaces as the order's failure reason during fills and as a
// direct error for EnsureBalance/Debit callers.
var ErrInsufficientFunds = &StateError{Reason: "insufficient funds"}

// IsDomainError reports whether err belongs to the expected, recoverable
// taxonomy (validation, state, not-found). Anything else is treated as a
// storage failure and aborts the enclosing transaction.
func IsDomainError(err error) bool {
	var ve *ValidationError
	var se *StateError
	var nf *NotFoundError
	return errors.As(err, &ve) || errors.As(err, &se) || errors.As(err, &nf)
}
