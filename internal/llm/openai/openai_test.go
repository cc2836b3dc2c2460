package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobscout/internal/core"
)

func TestInvoke(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
		wantKind     core.FailureKind
		checkResp    func(*testing.T, *core.Response)
	}{
		{
			name:       "successful request",
			statusCode: http.StatusOK,
			responseBody: `{
				"id": "chatcmpl-123",
				"model": "gpt-4o-mini",
				"choices": [{
					"message": {"role": "assistant", "content": "{\"title\":\"engineer\"}"},
					"finish_reason": "stop"
				}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
			}`,
			checkResp: func(t *testing.T, resp *core.Response) {
				if resp.Content != `{"title":"engineer"}` {
					t.Errorf("Content = %q", resp.Content)
				}
				if resp.Provider != "openai" {
					t.Errorf("Provider = %q, want %q", resp.Provider, "openai")
				}
				if resp.Model != "gpt-4o-mini" {
					t.Errorf("Model = %q, want %q", resp.Model, "gpt-4o-mini")
				}
				if resp.Usage.TotalTokens != 30 {
					t.Errorf("TotalTokens = %d, want 30", resp.Usage.TotalTokens)
				}
			},
		},
		{
			name:         "invalid credentials",
			statusCode:   http.StatusUnauthorized,
			responseBody: `{"error": {"message": "Invalid API key"}}`,
			wantKind:     core.KindInvalidCredentials,
		},
		{
			name:         "model not found",
			statusCode:   http.StatusNotFound,
			responseBody: `{"error": {"message": "The model does not exist"}}`,
			wantKind:     core.KindModelNotFound,
		},
		{
			name:         "rate limited",
			statusCode:   http.StatusTooManyRequests,
			responseBody: `{"error": {"message": "Rate limit reached"}}`,
			wantKind:     core.KindRateLimited,
		},
		{
			name:         "upstream error",
			statusCode:   http.StatusInternalServerError,
			responseBody: `{"error": {"message": "The server had an error"}}`,
			wantKind:     core.KindProvider,
		},
		{
			name:         "malformed body",
			statusCode:   http.StatusOK,
			responseBody: `{"choices": [`,
			wantKind:     core.KindInvalidResponse,
		},
		{
			name:         "no choices",
			statusCode:   http.StatusOK,
			responseBody: `{"model": "gpt-4o-mini", "choices": []}`,
			wantKind:     core.KindInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("path = %q, want /chat/completions", r.URL.Path)
				}
				if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
					t.Errorf("Authorization = %q", auth)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			provider := New(server.URL, "gpt-4o-mini", "test-key")
			resp, err := provider.Invoke(context.Background(), &core.Request{
				Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
			})

			if tt.wantKind != "" {
				f := core.AsFailure(err)
				if f == nil {
					t.Fatalf("Invoke() error = %v, want classified failure", err)
				}
				if f.Kind != tt.wantKind {
					t.Errorf("Kind = %q, want %q", f.Kind, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			tt.checkResp(t, resp)
		})
	}
}

func TestInvokeJSONMode(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"model": "m", "choices": [{"message": {"role": "assistant", "content": "{}"}}]}`))
	}))
	defer server.Close()

	provider := New(server.URL, "m", "k")
	_, err := provider.Invoke(context.Background(), &core.Request{
		Messages: []core.Message{{Role: core.RoleUser, Content: "hi"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	rf, ok := gotBody["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("response_format = %v, want json_object", gotBody["response_format"])
	}
}

func TestIsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("path = %q, want /models", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	provider := New(server.URL, "m", "k")
	if !provider.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = false, want true")
	}

	// No credential means unavailable without a probe.
	provider = New(server.URL, "m", "")
	if provider.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = true without credential")
	}

	server.Close()
	provider = New(server.URL, "m", "k")
	if provider.IsAvailable(context.Background()) {
		t.Error("IsAvailable() = true for closed server")
	}
}

func TestIdentity(t *testing.T) {
	provider := New("", "", "k")
	if provider.ProviderName() != "openai" {
		t.Errorf("ProviderName() = %q", provider.ProviderName())
	}
	if provider.ModelName() != defaultModel {
		t.Errorf("ModelName() = %q, want default", provider.ModelName())
	}
}
