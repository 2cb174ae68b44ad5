package common

import (
	"net/http"

	"github.com/cockroachdb/errors"
)

// Error categories shared by the pricing domain. Domain sentinels are built with Categorize so
// callers can branch on the category without knowing every specific reason.
var (
	// ErrValidation marks malformed input rejected before any lookup.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a code, card or record that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrState marks a record that exists but cannot be used in its current state.
	ErrState = errors.New("invalid state")
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

type categorized struct {
	category error
	err      error
}

func (e *categorized) Error() string { return e.err.Error() }

func (e *categorized) Unwrap() error { return e.err }

// Is matches the category only; two sentinels sharing a category stay distinct.
func (e *categorized) Is(target error) bool { return target == e.category }

// Categorize attaches one of ErrValidation, ErrNotFound or ErrState to err.
func Categorize(category, err error) error {
	if err == nil {
		return nil
	}
	return &categorized{category: category, err: err}
}

// NewStateError returns a sentinel in the ErrState category.
func NewStateError(msg string) error {
	return Categorize(ErrState, errors.New(msg))
}

// NewNotFoundError returns a sentinel in the ErrNotFound category.
func NewNotFoundError(msg string) error {
	return Categorize(ErrNotFound, errors.New(msg))
}

// Validation returns a validation error carrying msg.
func Validation(msg string) error {
	return Categorize(ErrValidation, errors.New(msg))
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return Categorize(ErrValidation, errors.Newf(format, args...))
}

// Classify maps an error onto its AppError representation.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return app
	}
	switch {
	case errors.IsAssertionFailure(err):
		return NewAppError("INVARIANT_VIOLATION", "internal computation error", http.StatusInternalServerError, err)
	case errors.Is(err, ErrValidation):
		return NewAppError("VALIDATION_ERROR", err.Error(), http.StatusBadRequest, err)
	case errors.Is(err, ErrNotFound):
		return NewAppError("NOT_FOUND", err.Error(), http.StatusNotFound, err)
	case errors.Is(err, ErrState):
		return NewAppError("INVALID_STATE", err.Error(), http.StatusUnprocessableEntity, err)
	default:
		return NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}

// WriteError renders err using the canonical error shape.
func WriteError(w http.ResponseWriter, err error) {
	app := Classify(err)
	if app == nil {
		return
	}
	JSONError(w, app.HTTPStatus, app.Code, app.Message, app.Details)
}
