package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrContextCancelled is returned when the context is cancelled while
// waiting out a retry backoff.
var ErrContextCancelled = errors.New("context cancelled")

// ErrorClass represents a classification of request errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx responses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents connection failures and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// StatusError represents an HTTP error status from the upstream service.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s error (status %d): %s | %s",
		classifyStatus(e.StatusCode), e.StatusCode, e.Status, e.URL)
}

// permanentError marks a failure that must not be retried, such as a cache
// store write going down mid-fetch.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// permanent wraps err so the retry loop propagates it immediately.
func permanent(err error) error {
	return &permanentError{err: err}
}

// classifyStatus maps an HTTP status code to an error class.
func classifyStatus(statusCode int) ErrorClass {
	if statusCode >= http.StatusInternalServerError {
		return ErrorClassServer
	}
	return ErrorClassClient
}

// classifyError categorizes an error for observability.
func classifyError(err error) ErrorClass {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode)
	}
	return ErrorClassNetwork
}

// isRetryable reports whether a failed fetch attempt should be retried.
// HTTP error statuses, connection failures, and timeouts all are; context
// cancellation and explicitly permanent failures are terminal.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm *permanentError
	return !errors.As(err, &perm)
}
