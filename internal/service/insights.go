package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
)

// InsightPromptSource resolves stored insight prompts.
type InsightPromptSource interface {
	Get(ctx context.Context, id int64) (*model.InsightPrompt, error)
}

// LLMFactory builds the LLM client for the configured provider.
type LLMFactory func(s *model.Settings) (llm.Client, error)

// InsightRequest runs one prompt against the analytics of a filter. A stored
// prompt is used when PromptID is set; otherwise PromptText.
type InsightRequest struct {
	Filter     analytics.Filter        `json:"filter"`
	PromptID   int64                   `json:"prompt_id,omitempty"`
	PromptText string                  `json:"prompt_text,omitempty"`
	Limits     analytics.ContextLimits `json:"limits"`
}

// InsightResult is the model answer with the context it was given.
type InsightResult struct {
	PromptName       string                     `json:"prompt_name,omitempty"`
	Model            string                     `json:"model"`
	Markdown         string                     `json:"markdown"`
	HTML             string                     `json:"html"`
	Context          *analytics.InsightsContext `json:"context"`
	Usage            *llm.Usage                 `json:"usage,omitempty"`
	CostEstimatedUSD *float64                   `json:"cost_estimated_usd,omitempty"`
}

// InsightsService asks the LLM for insights about aggregated conversations.
type InsightsService struct {
	analytics *AnalyticsService
	prompts   InsightPromptSource
	settings  SettingsLoader
	llms      LLMFactory
	markdown  goldmark.Markdown
	logger    *logger.Logger
}

// NewInsightsService creates a new insights service.
func NewInsightsService(analytics *AnalyticsService, prompts InsightPromptSource, settings SettingsLoader, llms LLMFactory, log *logger.Logger) *InsightsService {
	return &InsightsService{
		analytics: analytics,
		prompts:   prompts,
		settings:  settings,
		llms:      llms,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		logger:    log.Named("insights"),
	}
}

// Run builds the context for req.Filter and sends it with the prompt as the
// system message.
func (s *InsightsService) Run(ctx context.Context, req InsightRequest) (*InsightResult, error) {
	promptText := strings.TrimSpace(req.PromptText)
	var promptName string
	if req.PromptID != 0 {
		p, err := s.prompts.Get(ctx, req.PromptID)
		if err != nil {
			return nil, err
		}
		promptName, promptText = p.Name, strings.TrimSpace(p.PromptText)
	}
	if promptText == "" {
		return nil, fmt.Errorf("%w: prompt vazio", ErrInvalidRequest)
	}
	if err := req.Filter.Validate(); err != nil {
		return nil, err
	}

	cfg, err := s.settings.LoadOrDefault(ctx)
	if err != nil {
		return nil, err
	}
	client, err := s.llms(cfg)
	if err != nil {
		return nil, err
	}

	built, err := s.analytics.InsightsContext(ctx, req.Filter, req.Limits)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Model: cfg.Model,
		Messages: []llm.ChatMessage{
			{Role: llm.RoleSystem, Content: promptText},
			{Role: llm.RoleUser, Content: built.Text},
		},
		Temperature: llm.TemperatureFor(cfg.Model),
	})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordLLMCall(cfg.Model, "error", elapsed, 0, 0)
		return nil, fmt.Errorf("%w: %w", ErrUpstreamLLM, err)
	}

	out := &InsightResult{
		PromptName: promptName,
		Model:      cfg.Model,
		Markdown:   resp.Content,
		Context:    built,
		Usage:      resp.Usage,
	}
	var usage llm.Usage
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	metrics.RecordLLMCall(cfg.Model, "ok", elapsed, usage.InputTokens, usage.OutputTokens)
	if cost, ok := llm.EstimateCost(cfg.Model, resp.Usage); ok {
		out.CostEstimatedUSD = &cost
	}

	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(resp.Content), &buf); err != nil {
		s.logger.Warn("failed to render insight markdown", zap.Error(err))
	} else {
		out.HTML = buf.String()
	}
	return out, nil
}
