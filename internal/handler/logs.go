package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// maxLogLimit caps ?limit on the logs endpoint.
const maxLogLimit = 1000

// LogLister reads the most recent conversation log entries.
type LogLister interface {
	List(ctx context.Context, limit int) ([]model.ConversationLog, error)
}

// LogHandler handles the conversation log endpoint.
type LogHandler struct {
	logs   LogLister
	logger *logger.Logger
}

// NewLogHandler creates a new log handler.
func NewLogHandler(logs LogLister, log *logger.Logger) *LogHandler {
	return &LogHandler{logs: logs, logger: log}
}

// List handles GET /api/v1/logs
func (h *LogHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultLogLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxLogLimit {
			limit = parsed
		}
	}

	entries, err := h.logs.List(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, "list logs", err)
		return
	}
	if entries == nil {
		entries = []model.ConversationLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"logs":  entries,
		"limit": limit,
	})
}
