package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingAPIKey marks a BYOK-gated call attempted without a credential.
var ErrMissingAPIKey = errors.New("provider api key is not configured")

// AuthError is fatal: the upstream rejected our credential (or we never had
// one). It is never retried.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider auth failed: %v", e.Err)
	}
	return fmt.Sprintf("provider auth failed with %d: %s", e.StatusCode, e.Body)
}

func (e AuthError) Unwrap() error {
	return e.Err
}

// RateLimitError is retried with backoff inside the gateway and surfaces
// only once the transport budget is exhausted.
type RateLimitError struct {
	Body string
}

func (e RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limited: %s", e.Body)
}

type ModelUnavailableError struct {
	Model      string
	StatusCode int
	Body       string
}

func (e ModelUnavailableError) Error() string {
	return fmt.Sprintf("model %s unavailable (%d): %s", e.Model, e.StatusCode, e.Body)
}

// TransportError covers network failures, deadlines, and unclassified
// upstream statuses.
type TransportError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e TransportError) Unwrap() error {
	return e.Err
}

func errorFromStatus(model string, statusCode int, body string) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return AuthError{StatusCode: statusCode, Body: body}
	case statusCode == http.StatusTooManyRequests:
		return RateLimitError{Body: body}
	case statusCode == http.StatusNotFound || statusCode == http.StatusServiceUnavailable:
		return ModelUnavailableError{Model: model, StatusCode: statusCode, Body: body}
	default:
		return TransportError{Op: "provider call", StatusCode: statusCode, Body: body}
	}
}

func isTransportRetryable(err error) bool {
	var rateLimited RateLimitError
	if errors.As(err, &rateLimited) {
		return true
	}
	var transport TransportError
	return errors.As(err, &transport)
}
