package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// WebhookProcessor screens one helpdesk event and returns its outcome.
type WebhookProcessor interface {
	Process(ctx context.Context, raw model.Record) string
}

// WebhookHandler receives helpdesk webhooks.
type WebhookHandler struct {
	processor WebhookProcessor
	logger    *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(p WebhookProcessor, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor: p,
		logger:    log.Named("webhook"),
	}
}

// Receive handles POST /webhook. The helpdesk always gets 200 so it never
// retries; outcomes are only logged.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var raw model.Record
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		h.logger.Warn("ignoring undecodable webhook", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	outcome := h.processor.Process(context.WithoutCancel(r.Context()), raw)
	h.logger.Debug("webhook processed", zap.String("outcome", outcome))

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
