package models

import "errors"

var (
	// ErrNotFound is returned when an entity does not exist for the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalid wraps request validation failures.
	ErrInvalid = errors.New("invalid request")
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// MessageResponse acknowledges an operation with no payload.
type MessageResponse struct {
	Message string `json:"message"`
}

const (
	TodoDeletedMessage    = "Todo deleted successfully"
	ProjectDeletedMessage = "Project deleted successfully"
)
