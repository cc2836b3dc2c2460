package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// FailureKind identifies the class of a provider failure. Each kind carries
// a fixed retry eligibility; retryability is never configurable.
type FailureKind string

const (
	// KindConnection indicates the provider endpoint could not be reached.
	KindConnection FailureKind = "connection_failed"
	// KindTimeout indicates a per-attempt deadline elapsed.
	KindTimeout FailureKind = "timeout"
	// KindInvalidCredentials indicates the provider rejected the API key (401/403).
	KindInvalidCredentials FailureKind = "invalid_credentials"
	// KindModelNotFound indicates the requested model does not exist (404).
	KindModelNotFound FailureKind = "model_not_found"
	// KindInvalidResponse indicates the provider returned a body that could not be decoded.
	KindInvalidResponse FailureKind = "invalid_response"
	// KindRateLimited indicates the provider throttled the request (429).
	KindRateLimited FailureKind = "rate_limited"
	// KindProvider indicates an upstream provider error (5xx).
	KindProvider FailureKind = "provider_error"
	// KindCanceled indicates the caller canceled the operation. Distinct from
	// timeout: cancellation must never be retried.
	KindCanceled FailureKind = "canceled"
	// KindConfig indicates a configuration error (unknown provider name).
	KindConfig FailureKind = "config_error"
	// KindUnknown is the conservative default for unrecognized failures.
	KindUnknown FailureKind = "unknown"
)

// Retryable reports whether failures of this kind may be retried.
// Connection problems, timeouts, malformed responses, throttling, upstream
// errors and unknown conditions are usually transient. Credential and model
// errors are configuration problems retrying cannot fix, and cancellation
// means the caller no longer wants the result.
func (k FailureKind) Retryable() bool {
	switch k {
	case KindConnection, KindTimeout, KindInvalidResponse, KindRateLimited, KindProvider, KindUnknown:
		return true
	default:
		return false
	}
}

// Failure is a classified provider failure.
type Failure struct {
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
	Provider string      `json:"provider,omitempty"`
	// Attempts is the number of invocations made before this failure was
	// surfaced. Set by the retry decorator; 1 for undecorated clients.
	Attempts int `json:"attempts,omitempty"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", f.Provider, f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Unwrap implements the error unwrapping interface.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether this failure may be retried.
func (f *Failure) Retryable() bool {
	return f.Kind.Retryable()
}

// NewFailure creates a classified failure.
func NewFailure(kind FailureKind, provider, message string, err error) *Failure {
	return &Failure{Kind: kind, Provider: provider, Message: message, Err: err}
}

// AsFailure extracts a *Failure from an error chain.
// Returns nil if the chain contains no classified failure.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// Classify reduces an arbitrary transport error to a classified failure.
// It is pure and total: it never fails, and unrecognized errors map to
// KindUnknown. Errors that already carry a classification pass through.
func Classify(provider string, err error) *Failure {
	if err == nil {
		return nil
	}
	if f := AsFailure(err); f != nil {
		return f
	}

	switch {
	case errors.Is(err, context.Canceled):
		return NewFailure(KindCanceled, provider, "operation canceled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewFailure(KindTimeout, provider, "request timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewFailure(KindTimeout, provider, "request timed out: "+err.Error(), err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewFailure(KindConnection, provider, "connection failed: "+err.Error(), err)
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, os.ErrDeadlineExceeded):
		return NewFailure(KindConnection, provider, "connection failed: "+err.Error(), err)
	}

	var jsonErr *json.SyntaxError
	if errors.As(err, &jsonErr) {
		return NewFailure(KindInvalidResponse, provider, "malformed response: "+err.Error(), err)
	}

	// url.Error and friends wrap the cause; fall back to string matching for
	// the common dial failures the wrapped chain does not expose.
	msg := err.Error()
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return NewFailure(KindConnection, provider, "connection failed: "+msg, err)
	}

	return NewFailure(KindUnknown, provider, msg, err)
}

// ClassifyStatus reduces a non-2xx provider HTTP response to a classified
// failure. The body is inspected for a provider error message but the
// classification depends only on the status code.
func ClassifyStatus(provider string, statusCode int, body []byte) *Failure {
	message := extractErrorMessage(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return NewFailure(KindInvalidCredentials, provider, message, nil)
	case statusCode == http.StatusNotFound:
		return NewFailure(KindModelNotFound, provider, message, nil)
	case statusCode == http.StatusTooManyRequests:
		return NewFailure(KindRateLimited, provider, message, nil)
	case statusCode >= 500:
		return NewFailure(KindProvider, provider, message, nil)
	default:
		return NewFailure(KindUnknown, provider, fmt.Sprintf("unexpected status %d: %s", statusCode, message), nil)
	}
}

// extractErrorMessage pulls a human-readable message out of a provider error
// body. Providers disagree on the envelope; try the common shapes.
func extractErrorMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &flat); err == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(body))
}
