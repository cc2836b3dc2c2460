// Package openai implements the cloud-model provider over the
// OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"net/http"
	"time"

	"jobscout/internal/core"
	"jobscout/internal/llmclient"
)

const (
	// DefaultBaseURL is the OpenAI API root. Any OpenAI-compatible endpoint
	// works via config override.
	DefaultBaseURL = "https://api.openai.com/v1"

	defaultModel = "gpt-4o-mini"

	providerName = "openai"
)

// Provider implements the llm.Client capability for OpenAI-compatible APIs.
type Provider struct {
	client *llmclient.Client
	model  string
	apiKey string
}

// New creates a new OpenAI provider. Empty baseURL and model fall back to
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

// NewWithHTTPClient creates a new OpenAI provider with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(baseURL, model, apiKey string, httpClient *http.Client) *Provider {
	p := New(baseURL, model, apiKey)
	p.client = llmclient.NewWithHTTPClient(httpClient, llmclient.Config{
		ProviderName: providerName,
		BaseURL:      p.client.BaseURL(),
	}, p.setHeaders)
	return p
}

// setHeaders sets the required headers for OpenAI API requests
func (p *Provider) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
}

// chatRequest is the OpenAI /chat/completions request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []core.Message  `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the OpenAI /chat/completions response body.
type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      core.Message `json:"message"`
		FinishReason string       `json:"finish_reason"`
	} `json:"choices"`
	Usage core.Usage `json:"usage"`
}

// Invoke sends a chat completion request to the configured endpoint.
func (p *Provider) Invoke(ctx context.Context, req *core.Request) (*core.Response, error) {
	body := chatRequest{
		Model:       p.model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	var resp chatResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     body,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, core.NewFailure(core.KindInvalidResponse, providerName,
			"response contained no choices", nil)
	}

	model := resp.Model
	if model == "" {
		model = p.model
	}

	return &core.Response{
		Content:  resp.Choices[0].Message.Content,
		Provider: providerName,
		Model:    model,
		Usage:    resp.Usage,
		Latency:  time.Since(start),
	}, nil
}

// IsAvailable probes the models endpoint with the configured credential.
// Returns false on any error.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := p.client.DoRaw(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
	})
	return err == nil
}

// ProviderName returns "openai".
func (p *Provider) ProviderName() string {
	return providerName
}

// ModelName returns the configured model.
func (p *Provider) ModelName() string {
	return p.model
}
