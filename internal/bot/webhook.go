package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/metrics"
)

// Webhook outcomes, also used as metric labels.
const (
	OutcomeIgnoredEvent       = "ignored_event"
	OutcomeBotDisabled        = "bot_disabled"
	OutcomeMissingCredentials = "missing_credentials"
	OutcomeInboxNotAllowed    = "inbox_not_allowed"
	OutcomeDuplicate          = "duplicate"
	OutcomeNotCustomer        = "not_customer"
	OutcomeAudioNotice        = "audio_notice"
	OutcomeEmpty              = "empty"
	OutcomeBusinessHours      = "business_hours"
	OutcomeQueued             = "queued"
	OutcomeError              = "error"
)

// ProcessorConfig tunes webhook screening.
type ProcessorConfig struct {
	// AllowedInboxIDs restricts replies to these inboxes. Events without an
	// inbox id are not filtered. Empty allows every inbox.
	AllowedInboxIDs []string
	// Holidays closes Brazilian national holidays.
	Holidays bool
}

// Processor screens webhook deliveries and queues reply jobs.
type Processor struct {
	settings  SettingsSource
	helpdesks HelpdeskFactory
	dedup     Deduper
	queue     Queue
	allowed   map[string]struct{}
	holidays  bool
	now       func() time.Time
	logger    *logger.Logger
}

// NewProcessor creates a webhook processor.
func NewProcessor(settings SettingsSource, helpdesks HelpdeskFactory, dedup Deduper, queue Queue, cfg ProcessorConfig, log *logger.Logger) *Processor {
	allowed := make(map[string]struct{}, len(cfg.AllowedInboxIDs))
	for _, id := range cfg.AllowedInboxIDs {
		if id = strings.TrimSpace(id); id != "" {
			allowed[id] = struct{}{}
		}
	}
	return &Processor{
		settings:  settings,
		helpdesks: helpdesks,
		dedup:     dedup,
		queue:     queue,
		allowed:   allowed,
		holidays:  cfg.Holidays,
		now:       time.Now,
		logger:    log.Named("webhook"),
	}
}

// Process handles one webhook payload and returns its outcome. Failures are
// logged; the caller always acknowledges the delivery.
func (p *Processor) Process(ctx context.Context, raw model.Record) string {
	ev := model.ParseWebhookEvent(raw)
	outcome := p.process(ctx, &ev)
	metrics.RecordWebhook(ev.Event, outcome)
	return outcome
}

func (p *Processor) process(ctx context.Context, ev *model.WebhookEvent) string {
	if ev.Event != model.EventMessageCreated {
		return OutcomeIgnoredEvent
	}
	log := p.logger.WithConversation(ev.ConversationID, ev.InboxID).With(zap.String("message_id", ev.MessageID))

	cfg, err := p.settings.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("no settings saved; message ignored")
		return OutcomeBotDisabled
	}
	if err != nil {
		log.Error("failed to load settings", zap.Error(err))
		return OutcomeError
	}
	if !cfg.BotEnabled {
		log.Debug("bot disabled; message ignored")
		return OutcomeBotDisabled
	}
	desk, err := p.helpdesks(cfg)
	if err != nil {
		log.Warn("helpdesk credentials missing; message ignored", zap.Error(err))
		return OutcomeMissingCredentials
	}

	if !p.inboxAllowed(ev.InboxID) {
		log.Info("inbox not allowed; message ignored")
		return OutcomeInboxNotAllowed
	}

	if ev.MessageID != "" {
		seen, err := p.dedup.Seen(ctx, ev.MessageID)
		if err != nil {
			log.Warn("dedup check failed", zap.Error(err))
		} else if seen {
			log.Debug("duplicate delivery ignored")
			return OutcomeDuplicate
		}
	}

	if !ev.IsCustomerMessage() {
		return OutcomeNotCustomer
	}

	firstName := ev.FirstName()
	if ev.HasAudio() && ev.Content == "" {
		if err := desk.SendMessage(ctx, ev.ConversationID, AudioNotice(firstName)); err != nil {
			log.Error("failed to send audio notice", zap.Error(err))
			return OutcomeError
		}
		log.Info("audio notice sent")
		return OutcomeAudioNotice
	}
	if ev.Content == "" {
		return OutcomeEmpty
	}

	hours := NewBusinessHours(cfg.Schedule, p.holidays)
	if hours.IsOpen(p.now()) {
		log.Debug("inside business hours; bot stays quiet")
		return OutcomeBusinessHours
	}

	job := model.ReplyJob{
		ID:             uuid.NewString(),
		ConversationID: ev.ConversationID,
		InboxID:        ev.InboxID,
		FirstName:      firstName,
		Message:        ev.Content,
		EnqueuedAt:     p.now(),
	}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		log.Error("failed to enqueue reply job", zap.Error(err))
		return OutcomeError
	}
	log.Info("reply job queued", zap.String("job_id", job.ID), zap.String("first_name", firstName))
	return OutcomeQueued
}

func (p *Processor) inboxAllowed(inboxID string) bool {
	if inboxID == "" || len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[inboxID]
	return ok
}
