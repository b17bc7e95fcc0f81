package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/capitalize-ai/supportbot-workspace/internal/middleware"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// ProfileStore persists bot prompt profiles.
type ProfileStore interface {
	List(ctx context.Context) ([]model.PromptProfile, error)
	Get(ctx context.Context, id int64) (*model.PromptProfile, error)
	Save(ctx context.Context, p *model.PromptProfile) error
	Delete(ctx context.Context, id int64) error
}

// InsightPromptStore persists insight prompts.
type InsightPromptStore interface {
	List(ctx context.Context) ([]model.InsightPrompt, error)
	Get(ctx context.Context, id int64) (*model.InsightPrompt, error)
	Save(ctx context.Context, p *model.InsightPrompt) error
	Delete(ctx context.Context, id int64) error
}

// PromptHandler handles the prompt profile and insight prompt endpoints.
type PromptHandler struct {
	profiles ProfileStore
	insights InsightPromptStore
	logger   *logger.Logger
}

// NewPromptHandler creates a new prompt handler.
func NewPromptHandler(profiles ProfileStore, insights InsightPromptStore, log *logger.Logger) *PromptHandler {
	return &PromptHandler{
		profiles: profiles,
		insights: insights,
		logger:   log,
	}
}

// ListProfiles handles GET /api/v1/prompt-profiles
func (h *PromptHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profiles.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list prompt profiles", err)
		return
	}
	if profiles == nil {
		profiles = []model.PromptProfile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

// GetProfile handles GET /api/v1/prompt-profiles/:id
func (h *PromptHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get prompt profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProfile handles POST /api/v1/prompt-profiles
func (h *PromptHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, 0)
}

// UpdateProfile handles PUT /api/v1/prompt-profiles/:id
func (h *PromptHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	h.saveProfile(w, r, id)
}

func (h *PromptHandler) saveProfile(w http.ResponseWriter, r *http.Request, id int64) {
	var p model.PromptProfile
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = id
	p.Name = strings.TrimSpace(p.Name)
	if err := validatePrompt(p.Name, p.PromptText); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.profiles.Save(r.Context(), &p); err != nil {
		writeServiceError(w, h.logger, "save prompt profile", err)
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// DeleteProfile handles DELETE /api/v1/prompt-profiles/:id
func (h *PromptHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.profiles.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete prompt profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListInsightPrompts handles GET /api/v1/insight-prompts
func (h *PromptHandler) ListInsightPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.insights.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, "list insight prompts", err)
		return
	}
	if prompts == nil {
		prompts = []model.InsightPrompt{}
	}
	writeJSON(w, http.StatusOK, prompts)
}

// GetInsightPrompt handles GET /api/v1/insight-prompts/:id
func (h *PromptHandler) GetInsightPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.insights.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, "get insight prompt", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateInsightPrompt handles POST /api/v1/insight-prompts
func (h *PromptHandler) CreateInsightPrompt(w http.ResponseWriter, r *http.Request) {
	h.saveInsightPrompt(w, r, 0)
}

// UpdateInsightPrompt handles PUT /api/v1/insight-prompts/:id
func (h *PromptHandler) UpdateInsightPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	h.saveInsightPrompt(w, r, id)
}

func (h *PromptHandler) saveInsightPrompt(w http.ResponseWriter, r *http.Request, id int64) {
	var p model.InsightPrompt
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = id
	p.Name = strings.TrimSpace(p.Name)
	if err := validatePrompt(p.Name, p.PromptText); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.insights.Save(r.Context(), &p); err != nil {
		writeServiceError(w, h.logger, "save insight prompt", err)
		return
	}
	status := http.StatusOK
	if id == 0 {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// DeleteInsightPrompt handles DELETE /api/v1/insight-prompts/:id
func (h *PromptHandler) DeleteInsightPrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.insights.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, "delete insight prompt", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validatePrompt(name, text string) error {
	if err := middleware.ValidateName(name); err != nil {
		return err
	}
	return middleware.ValidatePromptText(text)
}
