package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/matsen/refmatch/internal/config"
	"github.com/matsen/refmatch/internal/extract"
	"github.com/matsen/refmatch/internal/match"
	"github.com/matsen/refmatch/internal/openalex"
	"github.com/matsen/refmatch/internal/orcid"
)

// Title truncation lengths by context
const (
	ListTitleMaxLen   = 60 // Used in reference and record lists
	DetailTitleMaxLen = 70 // Used in match and lookup detail views
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithErr exits with the code classifying err.
func exitWithErr(action string, err error) {
	exitWithError(exitCodeFor(err), "%s: %v", action, err)
}

// exitCodeFor maps domain errors to exit codes.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, extract.ErrNoBackend):
		return ExitBackendUnavailable
	case errors.Is(err, config.ErrInvalid), errors.Is(err, match.ErrInvalidThreshold):
		return ExitConfigError
	case errors.Is(err, orcid.ErrInvalidID):
		return ExitDataError
	case orcid.IsNotFound(err), openalex.IsNotFound(err):
		return ExitNotFound
	case orcid.IsRateLimited(err), orcid.IsAuthError(err),
		errors.Is(err, orcid.ErrNetworkError), errors.Is(err, orcid.ErrInvalidResponse),
		openalex.IsUpstream(err):
		return ExitAPIError
	case errors.Is(err, context.Canceled):
		return ExitError
	}
	var apiErr *orcid.APIError
	if errors.As(err, &apiErr) {
		return ExitAPIError
	}
	return ExitError
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// orDash returns s, or "-" when empty.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
