// Package llm extracts reference entities with an OpenAI-compatible chat model.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/matsen/refmatch/internal/metrics"
	"github.com/matsen/refmatch/internal/reference"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no API key configured")

// ErrProvider wraps failures reported by the model provider.
var ErrProvider = errors.New("model provider error")

const systemPrompt = `You label the parts of one bibliographic reference.
Reply with a single JSON object. Use only these keys, each mapping to an array of strings copied verbatim from the reference:
TITLE, AUTHORS, VOLUME, ISSUE, PUBLICATION_YEAR, DOI, ISSN, ISBN, PAGE_FIRST, PAGE_LAST, JOURNAL, EDITOR.
One AUTHORS entry per person. Omit keys that do not occur.`

// Config holds the provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Extractor asks a chat model to label reference fields.
type Extractor struct {
	client *openai.Client
	model  string
}

// New creates an extractor. An empty BaseURL uses the OpenAI API.
func New(cfg Config) (*Extractor, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Name returns the backend name.
func (e *Extractor) Name() string { return "openai" }

// ConcurrencySafe reports that the HTTP client may be shared.
func (e *Extractor) ConcurrencySafe() bool { return true }

// HealthCheck verifies API availability via ListModels.
func (e *Extractor) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return parseAPIError(fmt.Errorf("list models: %w", err))
	}
	return nil
}

// Extract labels one reference.
func (e *Extractor) Extract(ctx context.Context, text string) (reference.EntityBag, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues("openai", "error").Inc()
		return reference.EntityBag{}, parseAPIError(err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues("openai", "ok").Inc()

	if len(resp.Choices) == 0 {
		return reference.EntityBag{}, fmt.Errorf("empty completion: %w", ErrProvider)
	}
	return ParseEntities(resp.Choices[0].Message.Content)
}

// ParseEntities decodes a model reply into a bag. Values may be strings,
// numbers or arrays of them; unknown keys are ignored.
func ParseEntities(content string) (reference.EntityBag, error) {
	var bag reference.EntityBag

	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return bag, fmt.Errorf("parsing model reply: %w", err)
	}

	for key, val := range raw {
		f, err := reference.ParseField(key)
		if err != nil {
			continue
		}
		for _, v := range decodeValues(val) {
			if v = strings.TrimSpace(v); v != "" {
				bag.Add(f, v)
			}
		}
	}
	return bag, nil
}

func decodeValues(raw json.RawMessage) []string {
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		var out []string
		for _, item := range list {
			out = append(out, decodeValues(item)...)
		}
		return out
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return []string{n.String()}
	}
	return nil
}

// parseAPIError wraps provider failures with ErrProvider.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("model API error %d: %w", reqErr.HTTPStatusCode, ErrProvider)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("model API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, ErrProvider)
	}

	return fmt.Errorf("model request failed: %v: %w", err, ErrProvider)
}
