package search

import (
	"errors"
	"fmt"
)

// ErrInvalidQuery is returned when a query fails validation before any request is sent.
var ErrInvalidQuery = errors.New("invalid query")

// APIError is a non-2xx response from the locator backend.
type APIError struct {
	StatusCode int
	Source     string // Input or System
	Reason     string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: status %d: %s: %s", e.StatusCode, e.Source, e.Reason)
}

// IsInputError reports whether the backend rejected the request parameters.
func (e *APIError) IsInputError() bool {
	return e.Source == "Input"
}

type errorDocument struct {
	Error []struct {
		Source string `json:"source"`
		Reason string `json:"reason"`
	} `json:"error"`
}
