// Package analyze extracts structured data from resume and job-description
// text through an LLM client, with a content-addressed cache in front of
// every invocation. The cache key covers the normalized text, the
// extraction schema version and the serving model, so changing any of them
// invalidates prior results without a manual purge.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"jobscout/internal/cache"
	"jobscout/internal/core"
	"jobscout/internal/llm"
)

// SchemaVersion tags cache keys with the extraction schema in use.
// Bump it whenever the prompts or the result structs change shape.
const SchemaVersion = "v2"

// ResumeProfile is the structured extraction of a resume.
type ResumeProfile struct {
	Name            string   `json:"name"`
	Title           string   `json:"title"`
	Skills          []string `json:"skills"`
	ExperienceYears float64  `json:"experience_years"`
	Summary         string   `json:"summary"`
}

// JobProfile is the structured extraction of a job description.
type JobProfile struct {
	Title    string   `json:"title"`
	Skills   []string `json:"skills"`
	MinYears float64  `json:"min_years"`
	Remote   bool     `json:"remote"`
	Summary  string   `json:"summary"`
}

// Result pairs an extraction with the response metadata that produced it.
type Result struct {
	// Value is the raw extracted JSON object.
	Value json.RawMessage
	// Response describes the invocation; FromCache is set on cache hits.
	Response *core.Response
}

const (
	resumeSystemPrompt = "You extract structured data from resumes. " +
		"Respond with a single JSON object with keys: name, title, skills (array of strings), " +
		"experience_years (number), summary. No other text."

	jobSystemPrompt = "You extract structured data from job descriptions. " +
		"Respond with a single JSON object with keys: title, skills (array of strings), " +
		"min_years (number), remote (boolean), summary. No other text."
)

// Analyzer runs cache-backed extractions against an LLM client.
type Analyzer struct {
	client llm.Client
	cache  cache.Cache

	temperature float64
	maxTokens   int
}

// New creates an Analyzer. The cache may be nil, in which case every call
// invokes the provider.
func New(client llm.Client, c cache.Cache) *Analyzer {
	return &Analyzer{
		client:      client,
		cache:       c,
		temperature: 0.1,
		maxTokens:   1024,
	}
}

// ParseResume extracts a ResumeProfile from resume text.
func (a *Analyzer) ParseResume(ctx context.Context, text string) (*ResumeProfile, *Result, error) {
	result, err := a.extract(ctx, resumeSystemPrompt, "resume", text)
	if err != nil {
		return nil, nil, err
	}
	var profile ResumeProfile
	if err := json.Unmarshal(result.Value, &profile); err != nil {
		return nil, nil, core.NewFailure(core.KindInvalidResponse, a.client.ProviderName(),
			"extraction did not match resume schema: "+err.Error(), err)
	}
	return &profile, result, nil
}

// ParseJob extracts a JobProfile from job description text.
func (a *Analyzer) ParseJob(ctx context.Context, text string) (*JobProfile, *Result, error) {
	result, err := a.extract(ctx, jobSystemPrompt, "job", text)
	if err != nil {
		return nil, nil, err
	}
	var profile JobProfile
	if err := json.Unmarshal(result.Value, &profile); err != nil {
		return nil, nil, core.NewFailure(core.KindInvalidResponse, a.client.ProviderName(),
			"extraction did not match job schema: "+err.Error(), err)
	}
	return &profile, result, nil
}

// extract serves from cache when possible, otherwise invokes the client
// and stores the result. kind distinguishes resume and job extractions in
// the key so the same text parsed both ways gets separate entries.
func (a *Analyzer) extract(ctx context.Context, systemPrompt, kind, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("nothing to analyze: empty input text")
	}

	ctx, requestID := core.EnsureRequestID(ctx)
	modelVersion := a.client.ProviderName() + "/" + a.client.ModelName()
	key := cache.Key(text, SchemaVersion+":"+kind, modelVersion)

	if a.cache != nil {
		entry, err := a.cache.Get(ctx, key)
		if err != nil {
			// A broken cache read degrades to a provider call. It must not
			// masquerade as a provider failure, so log and move on.
			slog.Warn("cache read failed, invoking provider",
				"key", key, "request_id", requestID, "error", err)
		} else if entry != nil {
			slog.Debug("cache hit", "key", key, "request_id", requestID)
			return &Result{
				Value: entry.Value,
				Response: &core.Response{
					Content:   string(entry.Value),
					Provider:  entry.Provider,
					Model:     entry.Model,
					Usage:     entry.Usage,
					FromCache: true,
				},
			}, nil
		}
	}

	req := &core.Request{
		Messages: []core.Message{
			{Role: core.RoleSystem, Content: systemPrompt},
			{Role: core.RoleUser, Content: text},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
		JSONMode:    true,
	}

	resp, err := a.client.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	value, err := extractJSON(resp.Content)
	if err != nil {
		return nil, core.NewFailure(core.KindInvalidResponse, resp.Provider,
			err.Error(), err)
	}

	if a.cache != nil {
		entry := &cache.Entry{
			Key:       key,
			Value:     value,
			Provider:  resp.Provider,
			Model:     resp.Model,
			Usage:     resp.Usage,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.cache.Put(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to cache extraction: %w", err)
		}
	}

	return &Result{Value: value, Response: resp}, nil
}

// extractJSON pulls the first JSON object out of model output, tolerating
// markdown code fences and leading prose.
func extractJSON(content string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end < start {
		return nil, fmt.Errorf("model output contained no JSON object")
	}
	candidate := trimmed[start : end+1]

	if !gjson.Valid(candidate) {
		return nil, fmt.Errorf("model output was not valid JSON")
	}
	return json.RawMessage(candidate), nil
}
