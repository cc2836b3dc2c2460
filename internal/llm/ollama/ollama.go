// Package ollama implements the local-model provider over the native
// Ollama API.
package ollama

import (
	"context"
	"net/http"
	"time"

	"jobscout/internal/core"
	"jobscout/internal/llmclient"
)

const (
	// DefaultBaseURL is where a locally running Ollama daemon listens.
	DefaultBaseURL = "http://localhost:11434"

	defaultModel = "llama3.1"

	providerName = "ollama"
)

// Provider implements the llm.Client capability for Ollama.
type Provider struct {
	client *llmclient.Client
	model  string
	apiKey string // Accepted but ignored by Ollama
}

// New creates a new Ollama provider. Empty baseURL and model fall back to
// the defaults.
func New(baseURL, model, apiKey string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	p := &Provider{model: model, apiKey: apiKey}
	p.client = llmclient.New(llmclient.Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
	}, p.setHeaders)
	return p
}

// NewWithHTTPClient creates a new Ollama provider with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(baseURL, model, apiKey string, httpClient *http.Client) *Provider {
	p := New(baseURL, model, apiKey)
	p.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		ProviderName: providerName,
		BaseURL:      p.client.BaseURL(),
	}, p.setHeaders)
	return p
}

// setHeaders sets the required headers for Ollama API requests.
// Ollama doesn't require authentication, but accepts a Bearer token if provided.
func (p *Provider) setHeaders(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// chatRequest is the native Ollama /api/chat request body.
type chatRequest struct {
	Model    string         `json:"model"`
	Messages []core.Message `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format,omitempty"`
	Options  chatOptions    `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// chatResponse is the native Ollama /api/chat response body.
type chatResponse struct {
	Model           string       `json:"model"`
	Message         core.Message `json:"message"`
	Done            bool         `json:"done"`
	PromptEvalCount int          `json:"prompt_eval_count"`
	EvalCount       int          `json:"eval_count"`
}

// Invoke sends a chat request to the local Ollama daemon.
func (p *Provider) Invoke(ctx context.Context, req *core.Request) (*core.Response, error) {
	body := chatRequest{
		Model:    p.model,
		Messages: req.Messages,
		Stream:   false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	if req.JSONMode {
		body.Format = "json"
	}

	start := time.Now()
	var resp chatResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/api/chat",
		Body:     body,
	}, &resp)
	if err != nil {
		return nil, err
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return &core.Response{
		Content:  resp.Message.Content,
		Provider: providerName,
		Model:    model,
		Usage: core.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
		Latency: time.Since(start),
	}, nil
}

// IsAvailable probes the daemon's tags endpoint. Returns false on any error.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/api/tags",
	})
	return err == nil
}

// ProviderName returns "ollama".
func (p *Provider) ProviderName() string {
	return providerName
}

// ModelName returns the configured model.
func (p *Provider) ModelName() string {
	return p.model
}
