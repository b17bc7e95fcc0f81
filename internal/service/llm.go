package service

import (
	"errors"
	"fmt"

	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

// ErrUpstreamLLM wraps failed LLM calls.
var ErrUpstreamLLM = errors.New("llm request failed")

// LLMClients builds LLM clients from the environment keys.
type LLMClients struct {
	cfg llm.Config
}

// NewLLMClients creates the factory.
func NewLLMClients(cfg llm.Config) *LLMClients {
	return &LLMClients{cfg: cfg}
}

// ForSettings builds the client for the provider selected in s.
func (c *LLMClients) ForSettings(s *model.Settings) (llm.Client, error) {
	client, err := llm.NewClient(llm.Provider(s.Provider), c.cfg)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			return nil, fmt.Errorf("%w: %w", ErrNotConfigured, err)
		}
		return nil, err
	}
	return client, nil
}

// OpenAI builds the OpenAI client used for validation.
func (c *LLMClients) OpenAI() (*llm.OpenAIClient, error) {
	client, err := llm.NewOpenAIClient(c.cfg.OpenAIAPIKey, c.cfg.OpenAIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotConfigured, err)
	}
	return client, nil
}
