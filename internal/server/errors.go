package server

import (
	"fmt"
	"net/http"
)

// APIError is an error with an HTTP status that is safe to show to clients.
type APIError struct {
	Status  int
	Message string
}

func NewAPIError(status int, format string, args ...any) *APIError {
	return &APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Status  int    `json:"status"`
	Error   string `json:"error"`
}

func newErrorResponse(status int, message string) ErrorResponse {
	text := http.StatusText(status)
	if text == "" {
		text = "Unknown Error"
	}
	return ErrorResponse{Message: message, Status: status, Error: text}
}
