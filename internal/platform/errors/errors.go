// Package errors provides structured error handling with context propagation and HTTP status code mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error for metrics and response formatting.
type ErrorType string

const (
	// TypeValidation indicates an empty, malformed or incomplete request (HTTP 422)
	TypeValidation ErrorType = "validation"
	// TypeNotFound indicates an unknown session, number or group (HTTP 422)
	TypeNotFound ErrorType = "not_found"
	// TypeRejected indicates the messaging client refused a group operation (HTTP 422)
	TypeRejected ErrorType = "rejected"
	// TypeDelivery indicates the messaging client failed to deliver a message (HTTP 500)
	TypeDelivery ErrorType = "delivery"
	// TypeInternal indicates server-side error (HTTP 500)
	TypeInternal ErrorType = "internal"
)

// Error represents a structured error with type, message, and context.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for this error type.
// Every caller-side problem maps to 422; only delivery and internal failures are 500.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case TypeValidation, TypeNotFound, TypeRejected:
		return http.StatusUnprocessableEntity
	case TypeDelivery, TypeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError creates a new validation error (HTTP 422).
func ValidationError(message string) *Error {
	return newError(TypeValidation, message, nil)
}

// NotFoundError creates a new not-found error (HTTP 422).
func NotFoundError(message string) *Error {
	return newError(TypeNotFound, message, nil)
}

// RejectedError creates a new error for a group operation the client refused (HTTP 422).
// The cause is folded into the message so the caller sees the underlying failure.
func RejectedError(cause error) *Error {
	return newError(TypeRejected, fmt.Sprintf("Something is wrong, please see the details: %v", cause), cause)
}

// DeliveryError creates a new error for a message the client failed to send (HTTP 500).
// A non-nil cause is appended to the message so the caller sees why delivery failed.
func DeliveryError(message string, cause error) *Error {
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return newError(TypeDelivery, message, cause)
}

// InternalError creates a new internal error (HTTP 500).
func InternalError(message string, cause error) *Error {
	return newError(TypeInternal, message, cause)
}

func newError(t ErrorType, message string, cause error) *Error {
	return &Error{
		Type:    t,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// WithField adds a context field to the error (chainable).
// Fields are logged but never sent to the caller.
func (e *Error) WithField(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches a cause without changing the caller-facing message (chainable).
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// ErrorResponse represents the JSON structure sent to clients.
type ErrorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// ToResponse converts an Error to an ErrorResponse for JSON serialization.
func (e *Error) ToResponse() ErrorResponse {
	return ErrorResponse{
		Status:  false,
		Message: e.Message,
	}
}

// AsStructuredError converts any error into a structured Error.
// If err is already an *Error, returns it unchanged.
// Otherwise wraps it as an internal error.
func AsStructuredError(err error) *Error {
	if err == nil {
		return nil
	}

	var structuredErr *Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	return InternalError("internal server error", err)
}
