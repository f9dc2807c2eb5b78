package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConflict   = errors.New("time conflict")
	ErrNotFound   = errors.New("booking not found")
	ErrOutOfRange = errors.New("outside working hours")
)

type ValidationError struct {
	msg string
	err error
}

func (e *ValidationError) Error() string {
	return e.msg
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// FormatError reports a clock string that is not HH:MM.
type FormatError struct {
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid time %q: want HH:MM", e.Value)
}

// NewValidationError builds a caller-fixable input error.
func NewValidationError(msg string) error {
	return validationError(msg)
}
