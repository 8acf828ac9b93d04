// Package domain holds the error taxonomy and shared types used across modules.
package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Stable error codes surfaced in the API error envelope.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeLimitExceeded      = "LIMIT_EXCEEDED"
	CodeConflict           = "CONFLICT"
	CodeRateNotFound       = "RATE_NOT_FOUND"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a domain error with a stable code. Handlers map it to the JSON
// error envelope; the code never changes once clients depend on it.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

// NewValidation creates a 400 validation error.
func NewValidation(format string, args ...interface{}) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

// NewNotFound creates a 404 error.
func NewNotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound}
}

// NewLimitExceeded creates a 409 error for per-user resource caps.
func NewLimitExceeded(format string, args ...interface{}) *Error {
	return &Error{Code: CodeLimitExceeded, Message: fmt.Sprintf(format, args...), Status: http.StatusConflict}
}

// NewConflict creates a 409 error for state conflicts (already confirmed, etc).
func NewConflict(format string, args ...interface{}) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...), Status: http.StatusConflict}
}

// NewRateNotFound creates a 404 error for missing exchange rates.
func NewRateNotFound(from, to string) *Error {
	return &Error{
		Code:    CodeRateNotFound,
		Message: fmt.Sprintf("no exchange rate stored for %s/%s", from, to),
		Status:  http.StatusNotFound,
	}
}

// NewUnauthorized creates a 401 error.
func NewUnauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

// NewInternal wraps an unexpected failure as a 500 error. The underlying
// message is not exposed.
func NewInternal() *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Status: http.StatusInternalServerError}
}

// AsError extracts a domain error from an error chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsTimeout reports whether err stems from a timeout or cancelled context.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// IsConnectionError reports whether err looks like the database being
// unavailable rather than a bad request. SQLite surfaces contention and I/O
// problems as text, so this is a string match by necessity.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"database is locked", "database is busy", "disk i/o error", "unable to open database", "connection"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Classify maps an arbitrary error to a domain error: pass-through for domain
// errors, SERVICE_UNAVAILABLE for backend connectivity/timeouts so clients can
// retry, INTERNAL_ERROR otherwise.
func Classify(err error) *Error {
	if de, ok := AsError(err); ok {
		return de
	}
	if IsTimeout(err) || IsConnectionError(err) {
		return &Error{
			Code:    CodeServiceUnavailable,
			Message: "backend temporarily unavailable",
			Status:  http.StatusServiceUnavailable,
		}
	}
	return NewInternal()
}
