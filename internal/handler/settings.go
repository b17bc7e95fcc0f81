package handler

import (
	"net/http"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/service"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// SettingsHandler handles the bot settings endpoints.
type SettingsHandler struct {
	service *service.SettingsService
	logger  *logger.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(svc *service.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: svc,
		logger:  log,
	}
}

// Get handles GET /api/v1/settings
// The helpdesk token is masked.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Get(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Redacted())
}

// current loads the stored settings and overlays the request body, so
// omitted fields keep their stored values. A token sent back in its masked
// form keeps the stored token.
func (h *SettingsHandler) current(w http.ResponseWriter, r *http.Request) (*model.Settings, bool) {
	s, err := h.service.Get(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "load settings", err)
		return nil, false
	}
	if r.ContentLength == 0 {
		return s, true
	}
	stored := s.ChatwootToken
	if !decodeJSON(w, r, s) {
		return nil, false
	}
	if stored != "" && s.ChatwootToken == model.MaskSecret(stored) {
		s.ChatwootToken = stored
	}
	return s, true
}

// Update handles PUT /api/v1/settings
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	if err := h.service.Save(r.Context(), s); err != nil {
		writeServiceError(w, h.logger, "save settings", err)
		return
	}
	writeJSON(w, http.StatusOK, s.Redacted())
}

// SetBot handles POST /api/v1/settings/bot
func (h *SettingsHandler) SetBot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.service.SetBotEnabled(r.Context(), *req.Enabled); err != nil {
		writeServiceError(w, h.logger, "toggle bot", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"bot_enabled": *req.Enabled})
}

// Validate handles POST /api/v1/settings/validate
// The body is optional and overlays the stored settings.
func (h *SettingsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	s, ok := h.current(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": h.service.Validate(r.Context(), s),
	})
}
