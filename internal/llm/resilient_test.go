package llm

import (
	"context"
	"testing"
	"time"

	"jobscout/internal/core"
)

// fakeClient scripts a sequence of failures followed by successes and
// counts invocations.
type fakeClient struct {
	failures []error
	calls    int
	resp     *core.Response
}

func newFakeClient(failures ...error) *fakeClient {
	return &fakeClient{
		failures: failures,
		resp:     &core.Response{Content: "ok", Provider: "fake", Model: "fake-model"},
	}
}

func (f *fakeClient) Invoke(ctx context.Context, req *core.Request) (*core.Response, error) {
	f.calls++
	if f.calls <= len(f.failures) {
		return nil, f.failures[f.calls-1]
	}
	return f.resp, nil
}

func (f *fakeClient) IsAvailable(ctx context.Context) bool { return true }
func (f *fakeClient) ProviderName() string                 { return "fake" }
func (f *fakeClient) ModelName() string                    { return "fake-model" }

func testPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, BaseDelay: time.Millisecond, Multiplier: 1.5}
}

func TestInvokeSucceedsFirstAttempt(t *testing.T) {
	fake := newFakeClient()
	client := WithRetry(fake, testPolicy(3))

	resp, err := client.Invoke(context.Background(), &core.Request{})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want %q", resp.Content, "ok")
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestInvokeRetriesRetryableFailures(t *testing.T) {
	retryable := []core.FailureKind{
		core.KindConnection,
		core.KindTimeout,
		core.KindInvalidResponse,
		core.KindRateLimited,
		core.KindProvider,
		core.KindUnknown,
	}

	for _, kind := range retryable {
		t.Run(string(kind), func(t *testing.T) {
			// Fails twice with the retryable kind, then succeeds: with
			// budget 2 that is exactly 3 invocations.
			fake := newFakeClient(
				core.NewFailure(kind, "fake", "boom", nil),
				core.NewFailure(kind, "fake", "boom", nil),
			)
			client := WithRetry(fake, testPolicy(2))

			resp, err := client.Invoke(context.Background(), &core.Request{})
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if resp.Content != "ok" {
				t.Errorf("Content = %q, want %q", resp.Content, "ok")
			}
			if fake.calls != 3 {
				t.Errorf("calls = %d, want 3", fake.calls)
			}
		})
	}
}

func TestInvokeDoesNotRetryNonRetryable(t *testing.T) {
	nonRetryable := []core.FailureKind{
		core.KindInvalidCredentials,
		core.KindModelNotFound,
		core.KindCanceled,
		core.KindConfig,
	}

	for _, kind := range nonRetryable {
		t.Run(string(kind), func(t *testing.T) {
			failure := core.NewFailure(kind, "fake", "broken config", nil)
			fake := newFakeClient(failure, failure, failure, failure, failure, failure)
			client := WithRetry(fake, testPolicy(5))

			_, err := client.Invoke(context.Background(), &core.Request{})
			f := core.AsFailure(err)
			if f == nil {
				t.Fatalf("Invoke() error = %v, want classified failure", err)
			}
			if f.Kind != kind {
				t.Errorf("Kind = %q, want %q", f.Kind, kind)
			}
			if fake.calls != 1 {
				t.Errorf("calls = %d, want 1 regardless of budget", fake.calls)
			}
			if f.Attempts != 1 {
				t.Errorf("Attempts = %d, want 1", f.Attempts)
			}
		})
	}
}

func TestInvokeExhaustsBudget(t *testing.T) {
	failure := core.NewFailure(core.KindTimeout, "fake", "slow", nil)
	fake := newFakeClient(failure, failure, failure, failure, failure, failure, failure)
	client := WithRetry(fake, testPolicy(3))

	_, err := client.Invoke(context.Background(), &core.Request{})
	f := core.AsFailure(err)
	if f == nil {
		t.Fatalf("Invoke() error = %v, want classified failure", err)
	}
	if f.Kind != core.KindTimeout {
		t.Errorf("Kind = %q, want %q (last failure, not a wrapper)", f.Kind, core.KindTimeout)
	}
	if fake.calls != 4 {
		t.Errorf("calls = %d, want maxRetries+1 = 4", fake.calls)
	}
	if f.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", f.Attempts)
	}
}

func TestInvokeSurfacesLastFailure(t *testing.T) {
	// Failures differ between attempts; the caller must see the last one.
	fake := newFakeClient(
		core.NewFailure(core.KindConnection, "fake", "refused", nil),
		core.NewFailure(core.KindRateLimited, "fake", "throttled", nil),
	)
	client := WithRetry(fake, testPolicy(1))

	_, err := client.Invoke(context.Background(), &core.Request{})
	f := core.AsFailure(err)
	if f == nil {
		t.Fatalf("Invoke() error = %v, want classified failure", err)
	}
	if f.Kind != core.KindRateLimited {
		t.Errorf("Kind = %q, want %q", f.Kind, core.KindRateLimited)
	}
}

func TestInvokeBackoffDelay(t *testing.T) {
	fake := newFakeClient(core.NewFailure(core.KindConnection, "fake", "refused", nil))
	client := WithRetry(fake, RetryPolicy{MaxRetries: 2, BaseDelay: 10 * time.Millisecond, Multiplier: 1.5})

	start := time.Now()
	resp, err := client.Invoke(context.Background(), &core.Request{})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if resp.Content != "ok" {
		t.Errorf("Content = %q, want %q", resp.Content, "ok")
	}
	if fake.calls != 2 {
		t.Errorf("calls = %d, want 2", fake.calls)
	}
	if elapsed < 10*time.Millisecond {
		t.Errorf("elapsed = %s, want at least the 10ms base delay", elapsed)
	}
}

func TestInvokeCanceledDuringBackoff(t *testing.T) {
	failure := core.NewFailure(core.KindConnection, "fake", "refused", nil)
	fake := newFakeClient(failure, failure, failure, failure)
	client := WithRetry(fake, RetryPolicy{MaxRetries: 3, BaseDelay: time.Hour, Multiplier: 2})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := client.Invoke(ctx, &core.Request{})
	f := core.AsFailure(err)
	if f == nil {
		t.Fatalf("Invoke() error = %v, want classified failure", err)
	}
	if f.Kind != core.KindCanceled {
		t.Errorf("Kind = %q, want %q", f.Kind, core.KindCanceled)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1 (no attempt after cancellation)", fake.calls)
	}
}

func TestInvokeDoesNotMutateSharedFailure(t *testing.T) {
	// The inner client returns the same failure value on every attempt.
	sentinel := core.NewFailure(core.KindTimeout, "fake", "slow", nil)
	fake := newFakeClient(sentinel, sentinel, sentinel)
	client := WithRetry(fake, testPolicy(2))

	_, err := client.Invoke(context.Background(), &core.Request{})
	f := core.AsFailure(err)
	if f == nil {
		t.Fatalf("Invoke() error = %v, want classified failure", err)
	}
	if f.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", f.Attempts)
	}
	if sentinel.Attempts != 0 {
		t.Errorf("shared failure Attempts = %d, want 0 (untouched)", sentinel.Attempts)
	}
}

func TestInvokeZeroRetries(t *testing.T) {
	failure := core.NewFailure(core.KindTimeout, "fake", "slow", nil)
	fake := newFakeClient(failure)
	client := WithRetry(fake, testPolicy(0))

	_, err := client.Invoke(context.Background(), &core.Request{})
	if core.AsFailure(err) == nil {
		t.Fatalf("Invoke() error = %v, want classified failure", err)
	}
	if fake.calls != 1 {
		t.Errorf("calls = %d, want 1", fake.calls)
	}
}

func TestPassThroughDelegations(t *testing.T) {
	fake := newFakeClient()
	client := WithRetry(fake, testPolicy(3))

	if !client.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false, want true")
	}
	if client.ProviderName() != "fake" {
		t.Errorf("ProviderName() = %q, want %q", client.ProviderName(), "fake")
	}
	if client.ModelName() != "fake-model" {
		t.Errorf("ModelName() = %q, want %q", client.ModelName(), "fake-model")
	}
}

func TestBackoffGrowsGeometrically(t *testing.T) {
	client := WithRetry(newFakeClient(), RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, Multiplier: 2})

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for i, w := range want {
		if got := client.backoff(i); got != w {
			t.Errorf("backoff(%d) = %s, want %s", i, got, w)
		}
	}
}
