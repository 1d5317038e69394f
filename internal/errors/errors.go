// Package errors defines the error taxonomy shared by the dispatcher,
// the lookup modules and the webhook.
//
// Import it as domerrors to avoid shadowing the standard library package.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use errors.Is() to check these in callers.
var (
	// ErrCommandNotFound means no registered pattern matched the input.
	// It is the neutral outcome of a dispatch, not a failure.
	ErrCommandNotFound = errors.New("command not found")

	// ErrRateLimited means the per-chat lookup budget is exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
)

// UpstreamError is an HTTP-level failure of an external service, or a
// document that could not be parsed.
type UpstreamError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s error (url=%s, status=%d): %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s error (url=%s): %v", e.Source, e.URL, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a new upstream error.
func NewUpstreamError(source, url string, statusCode int, err error) *UpstreamError {
	return &UpstreamError{
		Source:     source,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ConnectivityError means the external service could not be reached at all.
type ConnectivityError struct {
	Source string
	URL    string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach %s (url=%s): %v", e.Source, e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// NewConnectivityError creates a new connectivity error.
func NewConnectivityError(source, url string, err error) *ConnectivityError {
	return &ConnectivityError{
		Source: source,
		URL:    url,
		Err:    err,
	}
}

// PatternError is returned when a command pattern fails to compile.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid command pattern %q: %v", e.Pattern, e.Err)
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// IsCommandNotFound checks if err is or wraps ErrCommandNotFound.
func IsCommandNotFound(err error) bool {
	return errors.Is(err, ErrCommandNotFound)
}

// IsRateLimited checks if err is or wraps ErrRateLimited.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsNotFound checks if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUpstream reports whether err contains an *UpstreamError.
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsConnectivity reports whether err contains a *ConnectivityError.
func IsConnectivity(err error) bool {
	var target *ConnectivityError
	return errors.As(err, &target)
}

// IsPattern reports whether err contains a *PatternError.
func IsPattern(err error) bool {
	var target *PatternError
	return errors.As(err, &target)
}
