package errors

import (
	"fmt"
	"net/http"
)

// APIError is the error shape every handler responds with. Status is kept
// out of the JSON body; it travels as the HTTP status line.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
	Details string    `json:"details,omitempty"`
	Status  int       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithDetails attaches extra context for the client.
func (e *APIError) WithDetails(details string) *APIError {
	e.Details = details
	return e
}

func NotFound(resource string) *APIError {
	return &APIError{
		Code:    ErrNotFound,
		Message: resource + " not found",
		Status:  http.StatusNotFound,
	}
}

func Unauthorized(message string) *APIError {
	return &APIError{Code: ErrUnauthorized, Message: message, Status: http.StatusUnauthorized}
}

func Forbidden(message string) *APIError {
	return &APIError{Code: ErrForbidden, Message: message, Status: http.StatusForbidden}
}

func Conflict(resource string) *APIError {
	return &APIError{
		Code:    ErrConflict,
		Message: resource + " already exists or is in an invalid state",
		Status:  http.StatusConflict,
	}
}

// ValidationError names the offending field so clients can highlight it.
func ValidationError(field, message string) *APIError {
	return &APIError{
		Code:    ErrValidation,
		Message: message,
		Field:   field,
		Status:  http.StatusUnprocessableEntity,
	}
}

func BadRequest(message string) *APIError {
	return &APIError{Code: ErrBadRequest, Message: message, Status: http.StatusBadRequest}
}

func InternalError(message string) *APIError {
	return &APIError{Code: ErrInternalError, Message: message, Status: http.StatusInternalServerError}
}

func AlreadyExists(resource string) *APIError {
	return &APIError{
		Code:    ErrAlreadyExists,
		Message: resource + " already exists",
		Status:  http.StatusConflict,
	}
}

func RateLimited(message string) *APIError {
	if message == "" {
		message = "rate limit exceeded"
	}
	return &APIError{Code: ErrRateLimited, Message: message, Status: http.StatusTooManyRequests}
}
