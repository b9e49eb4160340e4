package orcid

import (
	"errors"
	"fmt"
)

// Common errors returned by the ORCID client.
var (
	// ErrInvalidID indicates a malformed ORCID iD.
	ErrInvalidID = errors.New("invalid ORCID iD")

	// ErrNotFound indicates the record was not found.
	ErrNotFound = errors.New("not found in ORCID")

	// ErrAuthError indicates a missing or rejected access token.
	ErrAuthError = errors.New("ORCID authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("ORCID rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with ORCID")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from ORCID")
)

// APIError represents an error status from the ORCID API.
type APIError struct {
	StatusCode int
	Message    string
	ORCID      string
}

func (e *APIError) Error() string {
	if e.ORCID != "" {
		return fmt.Sprintf("ORCID API error (status %d): %s (orcid: %s)", e.StatusCode, e.Message, e.ORCID)
	}
	return fmt.Sprintf("ORCID API error (status %d): %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error indicates a record was not found.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && (apiErr.StatusCode == 401 || apiErr.StatusCode == 403)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 429
}
