package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
)

func TestFailureKindRetryable(t *testing.T) {
	tests := []struct {
		kind      FailureKind
		retryable bool
	}{
		{KindConnection, true},
		{KindTimeout, true},
		{KindInvalidResponse, true},
		{KindRateLimited, true},
		{KindProvider, true},
		{KindUnknown, true},
		{KindInvalidCredentials, false},
		{KindModelNotFound, false},
		{KindCanceled, false},
		{KindConfig, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.Retryable(); got != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"canceled context", context.Canceled, KindCanceled},
		{"deadline exceeded", context.DeadlineExceeded, KindTimeout},
		{"wrapped cancellation", fmt.Errorf("call failed: %w", context.Canceled), KindCanceled},
		{"op error", &net.OpError{Op: "dial", Err: errors.New("refused")}, KindConnection},
		{"connection refused string", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), KindConnection},
		{"no such host", errors.New(`lookup api.example.com: no such host`), KindConnection},
		{"arbitrary error", errors.New("something odd"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Classify("test", tt.err)
			if f == nil {
				t.Fatal("Classify returned nil for non-nil error")
			}
			if f.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", f.Kind, tt.want)
			}
			if !errors.Is(f, tt.err) && f.Err == nil {
				t.Error("classified failure lost its cause")
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if f := Classify("test", nil); f != nil {
		t.Errorf("Classify(nil) = %v, want nil", f)
	}
}

func TestClassifyPassesThroughExistingFailure(t *testing.T) {
	orig := NewFailure(KindRateLimited, "openai", "slow down", nil)
	wrapped := fmt.Errorf("attempt failed: %w", orig)

	f := Classify("openai", wrapped)
	if f != orig {
		t.Errorf("Classify rewrapped an already classified failure: %v", f)
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   FailureKind
	}{
		{http.StatusUnauthorized, KindInvalidCredentials},
		{http.StatusForbidden, KindInvalidCredentials},
		{http.StatusNotFound, KindModelNotFound},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusInternalServerError, KindProvider},
		{http.StatusBadGateway, KindProvider},
		{http.StatusServiceUnavailable, KindProvider},
		{http.StatusTeapot, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			f := ClassifyStatus("test", tt.status, nil)
			if f.Kind != tt.want {
				t.Errorf("status %d: Kind = %q, want %q", tt.status, f.Kind, tt.want)
			}
		})
	}
}

func TestClassifyStatusExtractsMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai envelope", `{"error": {"message": "model gone"}}`, "model gone"},
		{"flat error", `{"error": "nope"}`, "nope"},
		{"plain text", "bad gateway", "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ClassifyStatus("test", http.StatusInternalServerError, []byte(tt.body))
			if f.Message != tt.want {
				t.Errorf("Message = %q, want %q", f.Message, tt.want)
			}
		})
	}
}

func TestFailureError(t *testing.T) {
	f := NewFailure(KindTimeout, "ollama", "took too long", nil)
	want := "[ollama] timeout: took too long"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}

	f = NewFailure(KindConfig, "", "unknown provider", nil)
	want = "config_error: unknown provider"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}
}
