// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrValidation     = errors.New("validation failed")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDivisionByZero = errors.New("division by zero")
	ErrDuplicateStock = errors.New("stock already in folder")
	ErrNotFound       = errors.New("not found")
	ErrConfigInvalid  = errors.New("invalid configuration")
)

// ValidationError reports malformed input: a non-finite number where a number
// is mandatory, or a value that fails a format check such as the ticker pattern.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// InputError reports a well-formed value that violates a precondition,
// e.g. a negative share count or a percentage outside its bounds.
type InputError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *InputError) Unwrap() error {
	return ErrInvalidInput
}

// NewInputError creates a new InputError.
func NewInputError(field string, value interface{}, message string) *InputError {
	return &InputError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DivisionByZeroError reports a mathematically undefined operation.
type DivisionByZeroError struct {
	Operation string
	Message   string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("division by zero in %s: %s", e.Operation, e.Message)
}

func (e *DivisionByZeroError) Unwrap() error {
	return ErrDivisionByZero
}

// NewDivisionByZeroError creates a new DivisionByZeroError.
func NewDivisionByZeroError(operation, message string) *DivisionByZeroError {
	return &DivisionByZeroError{
		Operation: operation,
		Message:   message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
