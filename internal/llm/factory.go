package llm

import (
	"context"
	"net/http"
	"strings"
	"time"

	"jobscout/internal/core"
	"jobscout/internal/httpclient"
	"jobscout/internal/llm/ollama"
	"jobscout/internal/llm/openai"
)

// Provider selector values, matched case-insensitively.
const (
	ProviderLocal = "local"
	ProviderCloud = "cloud"
)

// Config holds the resolved provider configuration the factory builds from.
type Config struct {
	// Provider selects the variant: "local" (Ollama) or "cloud" (OpenAI-compatible).
	Provider string

	BaseURL string
	Model   string
	APIKey  string

	// Retry bounds the resilient decorator. MaxRetries of 0 yields the bare
	// client with no wrapping.
	Retry RetryPolicy
}

// Builder creates a provider client from configuration.
type Builder func(cfg Config) Client

// registry holds the builders for the known provider selectors.
var registry = map[string]Builder{
	ProviderLocal: func(cfg Config) Client {
		return ollama.New(cfg.BaseURL, cfg.Model, cfg.APIKey)
	},
	ProviderCloud: func(cfg Config) Client {
		return openai.New(cfg.BaseURL, cfg.Model, cfg.APIKey)
	},
}

// Register adds a builder for a provider selector. Intended for tests and
// for wiring additional variants without touching the factory.
func Register(name string, builder Builder) {
	registry[strings.ToLower(name)] = builder
}

// New constructs the provider client selected by cfg.Provider, wrapped in
// the resilient decorator when a positive retry count is configured.
// Unrecognized selectors fail with a config-kind failure.
func New(cfg Config) (Client, error) {
	builder, ok := registry[strings.ToLower(strings.TrimSpace(cfg.Provider))]
	if !ok {
		return nil, core.NewFailure(core.KindConfig, "",
			"unknown provider: "+cfg.Provider, nil)
	}

	client := builder(cfg)
	if cfg.Retry.MaxRetries > 0 {
		return WithRetry(client, cfg.Retry), nil
	}
	return client, nil
}

// LocalAvailable reports whether a local model daemon answers at baseURL.
// Best-effort probe; false on any error.
func LocalAvailable(ctx context.Context, baseURL string) bool {
	if baseURL == "" {
		baseURL = ollama.DefaultBaseURL
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := httpclient.NewDefaultHTTPClient().Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	return resp.StatusCode == http.StatusOK
}

// CloudAvailable reports whether the cloud provider is usable. A real call
// is not attempted; a non-empty credential is the requirement.
func CloudAvailable(apiKey string) bool {
	return strings.TrimSpace(apiKey) != ""
}
