package backend

import (
	"errors"
	"fmt"
)

// Failures are always joined with one of the subscription sentinels
// (ErrTransport, ErrAuthExpired, ErrNotFound). The errors below add detail.
var (
	ErrCircuitOpen        = errors.New("backend circuit breaker is open")
	ErrUnexpectedResponse = errors.New("unexpected backend response")
	ErrMissingToken       = errors.New("bearer token is required")
	ErrInvalidBaseURL     = errors.New("invalid backend base URL")
)

// expiredTokenCode is the error code the auth backend answers with when an
// access token can no longer be validated.
const expiredTokenCode = "expired_token"

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Code       string // value of the "error" field, if any
	Body       string // truncated raw body
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Code)
	}
	if e.Body != "" {
		return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("backend returned status %d", e.StatusCode)
}
