// Package core provides the shared types and failure taxonomy for jobscout.
package core

import "time"

// Message roles. Providers reject anything outside this set.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single role-tagged message in a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a chat completion request to an LLM provider.
// Build it once and treat it as immutable; it may be inspected by several
// layers (retry decorator, cache key derivation) after construction.
type Request struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	// JSONMode requests strict JSON output from providers that support it.
	JSONMode bool `json:"json_mode,omitempty"`
}

// Usage represents token usage reported by a provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response represents a completed chat invocation.
type Response struct {
	Content  string        `json:"content"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Usage    Usage         `json:"usage"`
	Latency  time.Duration `json:"latency_ns"`
	// FromCache is true when the response was served from the parse cache
	// without invoking the provider.
	FromCache bool `json:"from_cache,omitempty"`
}
