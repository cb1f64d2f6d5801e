package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("no API key found")
	ErrUnknownProvider    = errors.New("unknown provider")
	ErrBudgetExceeded     = errors.New("spend budget exceeded")
)

// TransportError wraps a connection or timeout failure. Eligible for retry.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-2xx provider response. Eligible for retry; the body
// is kept for diagnostics.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ParseError is a 2xx response whose body does not match the provider
// contract (missing text or usage fields). Never retried: the shape of a
// malformed response will not change on a second attempt.
type ParseError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: parse response: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s: response missing %s", e.Provider, e.Field)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RetryExhaustedError carries the last underlying failure after the retry
// budget is spent.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("max retries exceeded after %d attempts", e.Attempts)
	}
	return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Last }

// IsTransient reports whether err is a failure class worth retrying.
// Cancellation is never transient.
func IsTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *TransportError
	var se *StatusError
	return errors.As(err, &te) || errors.As(err, &se)
}

// IsStructural reports whether err indicates a provider contract break.
func IsStructural(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
