package model

import (
	"errors"
	"fmt"
)

// Argument errors returned before any request is sent.
var (
	ErrInvalidContentType     = errors.New("axiom: invalid content type")
	ErrInvalidContentEncoding = errors.New("axiom: invalid content encoding")
	ErrInvalidDuration        = errors.New("axiom: invalid duration")
)

// APIError represents an HTTP error with optional status, message, and original error info.
type APIError struct {
	Status   int    `json:"status,omitempty"`   // HTTP status of the error (negative if communication issue)
	Message  string `json:"message,omitempty"`  // Parsed message from the server
	Original any    `json:"original,omitempty"` // Original error (can be of any type)
}

// NewAPIError creates a new instance of APIError with given message, status, and original error.
func NewAPIError(message string, status int, original any) *APIError {
	return &APIError{
		Status:   status,
		Message:  message,
		Original: original,
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("axiom: %d %s", e.Status, e.Message)
}

// Unwrap returns the original error, if it is one.
func (e *APIError) Unwrap() error {
	if err, ok := e.Original.(error); ok {
		return err
	}
	return nil
}

// EmptyResponseMessage is the message of a DecodeError.
const EmptyResponseMessage = "Response is empty."

// DecodeError is returned when a successful response carries no usable body.
// Status holds the (successful) HTTP status of that response.
type DecodeError struct {
	Status   int
	Message  string
	Original error
}

func NewDecodeError(status int, original error) *DecodeError {
	return &DecodeError{
		Status:   status,
		Message:  EmptyResponseMessage,
		Original: original,
	}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("axiom: %d %s", e.Status, e.Message)
}

func (e *DecodeError) Unwrap() error {
	return e.Original
}
