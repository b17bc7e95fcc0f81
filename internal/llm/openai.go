package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4.1-mini"
	moderationModel    = "omni-moderation-latest"
)

// OpenAIClient is the OpenAI LLM client. Chat completions and model lookups
// go through go-openai; the Responses, moderation and vector store endpoints
// go through resty.
type OpenAIClient struct {
	client *openai.Client
	rest   *resty.Client
}

// NewOpenAIClient creates a new OpenAI client. An empty baseURL uses the
// public API.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: %w", ErrMissingAPIKey)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}

	rest := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(120 * time.Second)

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		rest:   rest,
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return string(ProviderOpenAI)
}

// Complete sends a completion request. Requests with a vector store use the
// Responses API with a file_search tool.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req.VectorStoreID != "" {
		return c.respond(ctx, req)
	}

	start := time.Now()

	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	chatReq := openai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	var content string
	if len(resp.Choices) > 0 {
		content = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if content == "" {
		return nil, ErrEmptyResponse
	}

	return &CompletionResponse{
		Content: content,
		Model:   resp.Model,
		Usage: &Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// Moderate runs the vendor moderation model over text. go-openai restricts
// the model names it accepts, so the call goes through resty.
func (c *OpenAIClient) Moderate(ctx context.Context, text string) (*ModerationResult, error) {
	var out struct {
		Results []struct {
			Flagged    bool            `json:"flagged"`
			Categories map[string]bool `json:"categories"`
		} `json:"results"`
	}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(map[string]string{"model": moderationModel, "input": text}).
		SetResult(&out).
		Post("/moderations")
	if err != nil {
		return nil, fmt.Errorf("openai moderation: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("openai moderation: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(out.Results) == 0 {
		return &ModerationResult{Source: SourceVendor}, nil
	}
	res := out.Results[0]
	var categories []string
	for name, hit := range res.Categories {
		if hit {
			categories = append(categories, name)
		}
	}
	sort.Strings(categories)
	return &ModerationResult{
		Flagged:    res.Flagged,
		Source:     SourceVendor,
		Categories: categories,
	}, nil
}

// CheckModel verifies the model exists and is accessible with the key.
func (c *OpenAIClient) CheckModel(ctx context.Context, model string) error {
	if _, err := c.client.GetModel(ctx, model); err != nil {
		return fmt.Errorf("openai model %q: %w", model, err)
	}
	return nil
}

// CheckVectorStore verifies the vector store is accessible with the key.
func (c *OpenAIClient) CheckVectorStore(ctx context.Context, id string) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("OpenAI-Beta", "assistants=v2").
		SetPathParam("id", id).
		Get("/vector_stores/{id}")
	if err != nil {
		return fmt.Errorf("openai vector store %q: %w", id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("openai vector store %q: status %d: %s", id, resp.StatusCode(), truncate(resp.String(), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
