package llm

import (
	"context"
	"log/slog"
	"math"
	"time"

	"jobscout/internal/core"
)

// RetryPolicy bounds the retry behavior of the resilient client.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt (>= 0).
	// A client makes at most MaxRetries+1 invocations per call.
	MaxRetries int

	// BaseDelay is the sleep before the first retry.
	BaseDelay time.Duration

	// Multiplier grows the delay geometrically: BaseDelay * Multiplier^attempt.
	Multiplier float64
}

// DefaultRetryPolicy returns the retry policy used when configuration does
// not override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		Multiplier: 2.0,
	}
}

// ResilientClient decorates any Client with bounded retry and exponential
// backoff. Classification happens once per attempt: failures may differ
// between attempts and only the last one is surfaced, with Attempts set for
// diagnostics. IsAvailable and the identity accessors delegate without
// retrying.
type ResilientClient struct {
	inner  Client
	policy RetryPolicy
}

// WithRetry wraps inner in a ResilientClient with the given policy.
func WithRetry(inner Client, policy RetryPolicy) *ResilientClient {
	if policy.Multiplier <= 0 {
		policy.Multiplier = 1
	}
	return &ResilientClient{inner: inner, policy: policy}
}

// Invoke attempts the wrapped client's Invoke up to MaxRetries+1 times.
// Attempts are strictly sequential. After a retryable failure with budget
// remaining it sleeps for the backoff delay; the sleep is aborted by ctx.
// Non-retryable failures and budget exhaustion propagate the last
// classified failure immediately.
func (c *ResilientClient) Invoke(ctx context.Context, req *core.Request) (*core.Response, error) {
	maxAttempts := c.policy.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var last *core.Failure
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			slog.Debug("retrying provider call",
				"provider", c.inner.ProviderName(),
				"attempt", attempt+1,
				"delay", delay,
				"kind", last.Kind)
			if err := sleep(ctx, delay); err != nil {
				// Caller gave up mid-backoff; no further attempts.
				canceled := core.Classify(c.inner.ProviderName(), err)
				canceled.Attempts = attempt
				return nil, canceled
			}
		}

		resp, err := c.inner.Invoke(ctx, req)
		if err == nil {
			return resp, nil
		}

		// Classify passes already-classified failures through by pointer;
		// copy before stamping Attempts so a failure value the inner client
		// reuses across calls is never mutated.
		failure := *core.Classify(c.inner.ProviderName(), err)
		failure.Attempts = attempt + 1
		last = &failure
		if !last.Retryable() {
			return nil, last
		}
	}

	return nil, last
}

// IsAvailable delegates to the wrapped client without retrying.
func (c *ResilientClient) IsAvailable(ctx context.Context) bool {
	return c.inner.IsAvailable(ctx)
}

// ProviderName delegates to the wrapped client.
func (c *ResilientClient) ProviderName() string {
	return c.inner.ProviderName()
}

// ModelName delegates to the wrapped client.
func (c *ResilientClient) ModelName() string {
	return c.inner.ModelName()
}

// backoff returns the delay after the given zero-based attempt index.
func (c *ResilientClient) backoff(attemptIndex int) time.Duration {
	d := float64(c.policy.BaseDelay) * math.Pow(c.policy.Multiplier, float64(attemptIndex))
	return time.Duration(d)
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
