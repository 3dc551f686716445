package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/discountcodes/discount-server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code.
// Errors that are not client facing are reported with a generic message.
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok || !apperrors.IsClientFacing(err) {
		code := apperrors.GetCode(err)
		appErr = apperrors.New(code, "An internal server error occurred.")
	}

	WriteErrorWithStatus(w, statusFromCode(appErr.Code), appErr)
}

// WriteErrorWithStatus writes an error with a specific HTTP status code
func WriteErrorWithStatus(w http.ResponseWriter, status int, err *apperrors.AppError) {
	response := ErrorResponse{
		Error:   err.Message,
		Code:    err.Code,
		Details: err.Details,
	}
	WriteJSON(w, status, response)
}

// statusFromCode maps ErrorCode to HTTP status code
func statusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidMessage,
		apperrors.ErrCodeInvalidJSON,
		apperrors.ErrCodeUnknownMessageType:
		return http.StatusBadRequest

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 503 Service Unavailable
	case apperrors.ErrCodeDatabase,
		apperrors.ErrCodeCache:
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
