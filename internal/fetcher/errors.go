package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"fundwatch/internal/fund"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeNotFound indicates the provider does not know the fund code
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeUnreachable indicates a network-level failure or an unusable provider
	ErrorTypeUnreachable ErrorType = "unreachable"
	// ErrorTypeTimeout indicates the per-call deadline was hit
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeParse indicates the response did not have the expected shape
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeUnsupported indicates the provider does not offer the operation
	ErrorTypeUnsupported ErrorType = "unsupported"
	// ErrorTypeTotalOutage indicates a whole batch cycle produced no successes
	ErrorTypeTotalOutage ErrorType = "total_outage"
)

// FetchError represents a structured error from a provider call
type FetchError struct {
	Type       ErrorType
	Source     fund.Source
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	prefix := string(e.Type)
	if e.Source != "" {
		prefix = fmt.Sprintf("%s %s", e.Source, e.Type)
	}
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", prefix, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", prefix, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(source fund.Source, code string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeNotFound,
		Source:  source,
		Message: fmt.Sprintf("fund %s not found", code),
	}
}

// NewUnreachableError creates an unreachable error
func NewUnreachableError(source fund.Source, message string, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeUnreachable,
		Source:  source,
		Message: message,
		Cause:   cause,
	}
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(source fund.Source, cause error) *FetchError {
	return &FetchError{
		Type:    ErrorTypeTimeout,
		Source:  source,
		Message: "request timed out",
		Cause:   cause,
	}
}

// NewParseError creates a parse error
func NewParseError(source fund.Source, message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeParse,
		Source:  source,
		Message: message,
	}
}

// NewUnsupportedError creates an unsupported-operation error
func NewUnsupportedError(source fund.Source, message string) *FetchError {
	return &FetchError{
		Type:    ErrorTypeUnsupported,
		Source:  source,
		Message: message,
	}
}

// NewTotalOutageError creates the cycle-level outage error
func NewTotalOutageError(total int) *FetchError {
	return &FetchError{
		Type:    ErrorTypeTotalOutage,
		Message: fmt.Sprintf("no fund out of %d could be fetched", total),
	}
}

// ClassifyHTTPError classifies a non-2xx HTTP status code
func ClassifyHTTPError(source fund.Source, statusCode int) *FetchError {
	if statusCode == http.StatusNotFound {
		return &FetchError{
			Type:       ErrorTypeNotFound,
			Source:     source,
			StatusCode: statusCode,
			Message:    "resource not found",
		}
	}
	return &FetchError{
		Type:       ErrorTypeUnreachable,
		Source:     source,
		StatusCode: statusCode,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
	}
}

// ClassifyTransportError maps an error returned by the HTTP client to
// Timeout or Unreachable
func ClassifyTransportError(source fund.Source, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(source, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTimeoutError(source, err)
	}
	return NewUnreachableError(source, "network request failed", err)
}

// TypeOf returns the ErrorType of err, or "" if err is not a FetchError
func TypeOf(err error) ErrorType {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ""
}

// IsType reports whether err is a FetchError of type t
func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}
