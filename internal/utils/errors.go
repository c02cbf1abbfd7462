package utils

import (
	"fmt"
	"net/http"
)

// AppError is the error type surfaced at the HTTP boundary.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func NewAppError(status int, code, message string, cause error) *AppError {
	return &AppError{
		StatusCode: status,
		Code:       code,
		Message:    message,
		Cause:      cause,
	}
}

func NewBadRequestError(message string) *AppError {
	return NewAppError(http.StatusBadRequest, "bad_request", message, nil)
}

func NewNotFoundError(message string) *AppError {
	return NewAppError(http.StatusNotFound, "not_found", message, nil)
}

func NewInternalError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, "internal_error", message, nil)
}
