package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
	"github.com/capitalize-ai/supportbot-workspace/pkg/tracing"
)

// SettingsSource loads the stored bot settings. It returns store.ErrNotFound
// when nothing was saved yet.
type SettingsSource interface {
	Load(ctx context.Context) (*model.Settings, error)
}

// ProfileSource resolves prompt profiles.
type ProfileSource interface {
	Get(ctx context.Context, id int64) (*model.PromptProfile, error)
	Fallback(ctx context.Context) (*model.PromptProfile, error)
}

// LogSink records bot turns for auditing.
type LogSink interface {
	Append(ctx context.Context, entry *model.ConversationLog) error
}

// Helpdesk is the part of the helpdesk API the bot talks to.
type Helpdesk interface {
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
	SendMessage(ctx context.Context, conversationID, content string) error
}

// HelpdeskFactory builds a helpdesk client from the stored settings.
type HelpdeskFactory func(s *model.Settings) (Helpdesk, error)

// LLMFactory builds the LLM client for the configured provider.
type LLMFactory func(s *model.Settings) (llm.Client, error)

// Responder generates and posts replies for queued jobs.
type Responder struct {
	settings  SettingsSource
	profiles  ProfileSource
	logs      LogSink
	helpdesks HelpdeskFactory
	llms      LLMFactory
	history   *History
	logger    *logger.Logger
}

// NewResponder creates a Responder.
func NewResponder(settings SettingsSource, profiles ProfileSource, logs LogSink, helpdesks HelpdeskFactory, llms LLMFactory, history *History, log *logger.Logger) *Responder {
	if history == nil {
		history = NewHistory(DefaultHistoryTurns)
	}
	return &Responder{
		settings:  settings,
		profiles:  profiles,
		logs:      logs,
		helpdesks: helpdesks,
		llms:      llms,
		history:   history,
		logger:    log.Named("responder"),
	}
}

// Handle answers one reply job. Jobs that cannot be served with the current
// configuration are dropped with a log line and a nil error.
func (r *Responder) Handle(ctx context.Context, job model.ReplyJob) error {
	ctx, span := tracing.Tracer("bot").Start(ctx, "bot.reply")
	defer span.End()
	span.SetAttributes(
		attribute.String("conversation.id", job.ConversationID),
		attribute.String("inbox.id", job.InboxID),
	)

	log := r.logger.WithConversation(job.ConversationID, job.InboxID).With(zap.String("job_id", job.ID))

	cfg, err := r.settings.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("settings not found; reply skipped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if !cfg.BotEnabled {
		log.Info("bot disabled; reply skipped")
		return nil
	}

	client, err := r.llms(cfg)
	if err != nil {
		log.Warn("llm provider unavailable; reply skipped", zap.String("provider", cfg.Provider), zap.Error(err))
		return nil
	}
	desk, err := r.helpdesks(cfg)
	if err != nil {
		log.Warn("helpdesk credentials missing; reply skipped", zap.Error(err))
		return nil
	}

	profileName, systemPrompt := r.resolvePrompt(ctx, cfg, log)

	conv, err := desk.GetConversation(ctx, job.ConversationID)
	if err != nil {
		log.Warn("handoff check failed", zap.Error(err))
	} else if conv.Status != model.StatusOpen && conv.Status != model.StatusPending {
		log.Info("conversation handed off; reply skipped", zap.String("status", conv.Status))
		return nil
	}

	turn := customerTurn(job.FirstName, job.Message)
	entry := r.newEntry(job, model.DirectionUser, turn, profileName)

	var moderation *llm.ModerationResult
	if cfg.ModerationEnabled {
		moderation = r.moderate(ctx, client, job.Message, cfg.ModerationTerms(), log)
		details := moderation.Details()
		entry.ModerationApplied = true
		entry.ModerationDetails = &details
		r.appendLog(ctx, entry, log)

		if moderation.Flagged {
			notice := ModerationNotice(job.FirstName)
			reply := r.newEntry(job, model.DirectionAssistant, notice, profileName)
			reply.ModerationApplied = true
			reply.ModerationDetails = &details
			r.appendLog(ctx, reply, log)
			if err := desk.SendMessage(ctx, job.ConversationID, notice); err != nil {
				return fmt.Errorf("send moderation notice: %w", err)
			}
			log.Info("moderation notice sent", zap.String("source", moderation.Source))
			return nil
		}
	} else {
		r.appendLog(ctx, entry, log)
	}

	messages := r.history.Begin(job.ConversationID, systemPrompt, turn)

	req := &llm.CompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: llm.TemperatureFor(cfg.Model),
	}
	if cfg.Provider == "" || cfg.Provider == model.ProviderOpenAI {
		req.VectorStoreID = cfg.VectorStoreID
	}

	start := time.Now()
	resp, err := client.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordLLMCall(cfg.Model, "error", elapsed, 0, 0)
		return fmt.Errorf("generate reply: %w", err)
	}
	var usage llm.Usage
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	metrics.RecordLLMCall(cfg.Model, "ok", elapsed, usage.InputTokens, usage.OutputTokens)

	r.history.Reply(job.ConversationID, resp.Content)

	reply := r.newEntry(job, model.DirectionAssistant, resp.Content, profileName)
	if resp.Usage != nil {
		in, out, total := int64(usage.InputTokens), int64(usage.OutputTokens), int64(usage.TotalTokens)
		reply.PromptTokens, reply.CompletionTokens, reply.TotalTokens = &in, &out, &total
	}
	if cost, ok := llm.EstimateCost(cfg.Model, resp.Usage); ok {
		reply.CostEstimatedUSD = &cost
	}
	if moderation != nil {
		details := moderation.Details()
		reply.ModerationApplied = true
		reply.ModerationDetails = &details
	}
	r.appendLog(ctx, reply, log)

	if err := desk.SendMessage(ctx, job.ConversationID, resp.Content); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	log.Info("reply sent",
		zap.String("model", cfg.Model),
		zap.Int("total_tokens", usage.TotalTokens),
	)
	return nil
}

// resolvePrompt picks the selected profile, then the most recent profile,
// then the stored system prompt, then the prompt blocks and finally the
// built-in default.
func (r *Responder) resolvePrompt(ctx context.Context, cfg *model.Settings, log *logger.Logger) (string, string) {
	var profile *model.PromptProfile
	if cfg.PromptProfileID != nil {
		p, err := r.profiles.Get(ctx, *cfg.PromptProfileID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to load prompt profile", zap.Int64("profile_id", *cfg.PromptProfileID), zap.Error(err))
		}
		profile = p
	}
	if profile == nil {
		p, err := r.profiles.Fallback(ctx)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to load fallback prompt profile", zap.Error(err))
		}
		profile = p
	}

	var name string
	if profile != nil {
		name = profile.Name
		if strings.TrimSpace(profile.PromptText) != "" {
			return name, profile.PromptText
		}
	}
	if strings.TrimSpace(cfg.SystemPrompt) != "" {
		return name, cfg.SystemPrompt
	}
	if !blocksEmpty(cfg.PromptBlocks) {
		return name, BuildPromptFromBlocks(cfg.PromptBlocks)
	}
	return name, DefaultSystemPrompt
}

// moderate checks custom terms first and then the vendor endpoint when the
// client offers one. Vendor failures do not block the reply.
func (r *Responder) moderate(ctx context.Context, client llm.Client, text string, terms []string, log *logger.Logger) *llm.ModerationResult {
	if term, ok := llm.CustomTermHit(text, terms); ok {
		return &llm.ModerationResult{Flagged: true, Source: llm.SourceCustomTerms, CustomTerm: term}
	}
	mod, ok := client.(llm.Moderator)
	if !ok {
		return &llm.ModerationResult{Source: llm.SourceCustomTerms}
	}
	res, err := mod.Moderate(ctx, text)
	if err != nil {
		log.Warn("vendor moderation failed", zap.Error(err))
		return &llm.ModerationResult{Source: llm.SourceVendor, Error: err.Error()}
	}
	return res
}

func (r *Responder) newEntry(job model.ReplyJob, direction, message, profileName string) *model.ConversationLog {
	entry := &model.ConversationLog{
		ConversationID: job.ConversationID,
		ClientName:     job.FirstName,
		Direction:      direction,
		Message:        message,
	}
	if job.InboxID != "" {
		inbox := job.InboxID
		entry.InboxID = &inbox
	}
	if profileName != "" {
		name := profileName
		entry.ProfileName = &name
	}
	return entry
}

func (r *Responder) appendLog(ctx context.Context, entry *model.ConversationLog, log *logger.Logger) {
	if err := r.logs.Append(ctx, entry); err != nil {
		log.Error("failed to log conversation turn", zap.String("direction", entry.Direction), zap.Error(err))
	}
}
