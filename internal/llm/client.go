// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTemperature is used for every model that accepts a temperature.
const DefaultTemperature = 0.3

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrMissingAPIKey is returned when a provider has no credentials.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnsupportedProvider is returned for unknown provider names.
	ErrUnsupportedProvider = errors.New("unsupported provider")
)

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
	// Temperature is omitted from the call when nil.
	Temperature *float64
	// VectorStoreID enables file search over the given store, when the
	// provider supports it.
	VectorStoreID string
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content   string
	Model     string
	Usage     *Usage
	LatencyMs int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Moderator flags unsafe user input.
type Moderator interface {
	Moderate(ctx context.Context, text string) (*ModerationResult, error)
}

// Validator checks that configured resources are reachable.
type Validator interface {
	CheckModel(ctx context.Context, model string) error
	CheckVectorStore(ctx context.Context, id string) error
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Config carries provider credentials.
type Config struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
}

// NewClient creates a new LLM client based on provider.
func NewClient(provider Provider, cfg Config) (Client, error) {
	switch provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg.AnthropicAPIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// TemperatureFor returns the sampling temperature for model, or nil for
// model families that reject the parameter.
func TemperatureFor(model string) *float64 {
	if strings.HasPrefix(strings.ToLower(model), "gpt-5") {
		return nil
	}
	t := DefaultTemperature
	return &t
}
