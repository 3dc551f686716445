package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Validation
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// Protocol
	ErrCodeInvalidMessage     ErrorCode = "INVALID_MESSAGE"
	ErrCodeInvalidJSON        ErrorCode = "INVALID_JSON"
	ErrCodeUnknownMessageType ErrorCode = "UNKNOWN_MESSAGE_TYPE"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeCache    ErrorCode = "CACHE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// InvalidMessage is returned for an envelope that parsed but carries no payload.
func InvalidMessage() *AppError {
	return New(ErrCodeInvalidMessage, "Invalid message format.")
}

// InvalidJSON is returned when the envelope or its payload is not valid JSON.
func InvalidJSON(cause error) *AppError {
	return Wrap(ErrCodeInvalidJSON, "Invalid JSON format.", cause)
}

func UnknownMessageType(messageType string) *AppError {
	return New(ErrCodeUnknownMessageType, "Unknown message type.").
		WithDetails(map[string]string{"type": messageType})
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func Cache(cause error) *AppError {
	return Wrap(ErrCodeCache, "Cache error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsClientFacing reports whether the error's message may be shown to a client as is.
// Storage and internal failures are not: their detail belongs in the log only.
func IsClientFacing(err error) bool {
	switch GetCode(err) {
	case ErrCodeInternal, ErrCodeDatabase, ErrCodeCache:
		return false
	default:
		return true
	}
}
