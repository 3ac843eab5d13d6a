// Package errors defines the application error type shared by services and
// handlers. Each code carries the HTTP status it is reported with.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes an AppError.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeConflict     ErrorCode = "conflict" // e.g. a summarization already in flight
	ErrCodeValidation   ErrorCode = "validation"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	ErrCodeUpstream     ErrorCode = "upstream" // Drive or the job server failed
	ErrCodeInternal     ErrorCode = "internal"
	ErrCodeTimeout      ErrorCode = "timeout"
	ErrCodeCanceled     ErrorCode = "canceled"
)

// StatusClientClosedRequest is the de facto status for abandoned requests.
const StatusClientClosedRequest = 499

var statusByCode = map[ErrorCode]int{
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeUpstream:     http.StatusBadGateway,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeTimeout:      http.StatusGatewayTimeout,
	ErrCodeCanceled:     StatusClientClosedRequest,
}

// HTTPStatus returns the response status for c; unknown codes are 500.
func (c ErrorCode) HTTPStatus() int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AppError is an error with a code, a message safe to show the user, an
// optional offending input field and an optional cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func newError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NotFound(message string) *AppError     { return newError(ErrCodeNotFound, message) }
func Conflict(message string) *AppError     { return newError(ErrCodeConflict, message) }
func Validation(message string) *AppError   { return newError(ErrCodeValidation, message) }
func Unauthorized(message string) *AppError { return newError(ErrCodeUnauthorized, message) }
func Internal(message string) *AppError     { return newError(ErrCodeInternal, message) }

// ValidationField reports invalid input in a named request field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Wrap attaches code and message to err. A nil err stays nil.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Upstream wraps a failure reported by Drive or the job server. Context
// errors keep their own codes so a slow peer is told apart from a broken one,
// and errors that already carry a code pass through.
func Upstream(err error, message string) error {
	if err == nil {
		return nil
	}
	if ctxErr := FromContext(err); ctxErr != nil {
		return ctxErr
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Wrap(err, ErrCodeUpstream, message)
}

// FromContext maps context deadline/cancel errors to Timeout/Canceled, or returns nil.
func FromContext(err error) *AppError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	}
	return nil
}

// Is reports whether err wraps an AppError with code.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

func IsNotFound(err error) bool     { return Is(err, ErrCodeNotFound) }
func IsConflict(err error) bool     { return Is(err, ErrCodeConflict) }
func IsValidation(err error) bool   { return Is(err, ErrCodeValidation) }
func IsUnauthorized(err error) bool { return Is(err, ErrCodeUnauthorized) }
func IsUpstream(err error) bool     { return Is(err, ErrCodeUpstream) }
func IsTimeout(err error) bool      { return Is(err, ErrCodeTimeout) }
func IsCanceled(err error) bool     { return Is(err, ErrCodeCanceled) }

// GetCode returns the code of the outermost AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the offending field of err, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
