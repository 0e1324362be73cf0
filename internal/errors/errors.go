// Package errors provides the typed error surface used across the service.
// Every failure that crosses a package boundary carries a Code so transport
// layers can map it without string matching.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Code classifies an error for callers and for the HTTP layer.
type Code string

const (
	ErrCodeNotFound            Code = "NOT_FOUND"
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeNoApproversMatched  Code = "NO_APPROVERS_MATCHED"
	ErrCodeNoEligibleApprovers Code = "NO_ELIGIBLE_APPROVERS"
	ErrCodeInvalidTransition   Code = "INVALID_TRANSITION"
	ErrCodeConflict            Code = "CONFLICT"
	ErrCodeInternal            Code = "INTERNAL"
)

// Error is the concrete error type returned by all packages in this module.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates an underlying error with a code and message.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// NotFound reports a missing resource, naming it and its identifier.
func NotFound(resource, id string) *Error {
	return Newf(ErrCodeNotFound, "%s %q not found", resource, id)
}

// InvalidInput reports a malformed or missing field.
func InvalidInput(field, message string) *Error {
	return Newf(ErrCodeInvalidInput, "%s: %s", field, message)
}

// GetCode extracts the Code from an error chain. Unclassified errors are
// reported as internal.
func GetCode(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// HTTPStatus maps an error to the response status the handlers should use.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNoApproversMatched, ErrCodeNoEligibleApprovers:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidTransition, ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
