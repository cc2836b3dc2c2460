// Package llm defines the provider capability interface, the factory that
// selects a concrete provider from configuration, and the resilient
// retrying decorator.
package llm

import (
	"context"

	"jobscout/internal/core"
)

// Client is the capability every LLM provider variant implements.
// Variants differ only in wire encoding, endpoint and authentication;
// behaviorally they are interchangeable.
type Client interface {
	// Invoke sends a chat request and returns the generated response.
	// Failures are classified *core.Failure values.
	Invoke(ctx context.Context, req *core.Request) (*core.Response, error)

	// IsAvailable is a best-effort reachability probe. It never fails;
	// any error means false.
	IsAvailable(ctx context.Context) bool

	// ProviderName identifies the provider variant (e.g. "ollama").
	ProviderName() string

	// ModelName identifies the configured model, for observability and
	// cache-key composition.
	ModelName() string
}
