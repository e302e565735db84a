package remote

import (
	"errors"
	"fmt"
)

// Sentinel errors for terminal outcomes from the service.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrNotFound     = errors.New("not found")
	ErrNoDraft      = errors.New("no draft is present")
)

// APIError is a structured rejection from the service.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" && e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}
