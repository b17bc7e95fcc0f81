package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type responsesTool struct {
	Type           string   `json:"type"`
	VectorStoreIDs []string `json:"vector_store_ids,omitempty"`
}

type responsesRequest struct {
	Model       string          `json:"model"`
	Input       []ChatMessage   `json:"input"`
	Tools       []responsesTool `json:"tools,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_output_tokens,omitempty"`
}

type responsesContent struct {
	Type string `json:"type"`
	Text any    `json:"text"`
}

type responsesOutput struct {
	Type    string             `json:"type"`
	Content []responsesContent `json:"content"`
}

type responsesResponse struct {
	Model      string            `json:"model"`
	OutputText string            `json:"output_text"`
	Output     []responsesOutput `json:"output"`
	Usage      *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// text returns output_text when present, otherwise the first non-empty text
// part of the output items. Text parts may be a plain string or an object
// with a "value" field.
func (r *responsesResponse) text() string {
	if t := strings.TrimSpace(r.OutputText); t != "" {
		return t
	}
	for _, item := range r.Output {
		for _, part := range item.Content {
			var s string
			switch v := part.Text.(type) {
			case string:
				s = v
			case map[string]any:
				s, _ = v["value"].(string)
			}
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func (c *OpenAIClient) respond(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	body := responsesRequest{
		Model:       model,
		Input:       req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.VectorStoreID != "" {
		body.Tools = []responsesTool{{Type: "file_search", VectorStoreIDs: []string{req.VectorStoreID}}}
	}

	var out responsesResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/responses")
	if err != nil {
		return nil, fmt.Errorf("openai responses: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("openai responses: status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	content := out.text()
	if content == "" {
		return nil, ErrEmptyResponse
	}

	result := &CompletionResponse{
		Content:   content,
		Model:     out.Model,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if out.Usage != nil {
		result.Usage = &Usage{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
			TotalTokens:  out.Usage.TotalTokens,
		}
	}
	return result, nil
}
