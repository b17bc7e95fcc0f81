package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

// settingsRow mirrors the settings table. JSON-encoded columns are decoded
// into model.Settings by toModel.
type settingsRow struct {
	SystemPrompt          string `db:"system_prompt"`
	Provider              string `db:"provider"`
	Model                 string `db:"model"`
	VectorStoreID         string `db:"vector_store_id"`
	ChatwootURL           string `db:"chatwoot_url"`
	ChatwootToken         string `db:"chatwoot_api_token"`
	ChatwootAccountID     string `db:"chatwoot_account_id"`
	OpeningHour           int    `db:"horario_inicio"`
	ClosingHour           int    `db:"horario_fim"`
	WorkingDays           string `db:"dias_funcionamento"`
	BotEnabled            bool   `db:"bot_enabled"`
	Schedule              string `db:"schedule_json"`
	Providers             string `db:"providers_json"`
	PromptBlocks          string `db:"prompt_blocks_json"`
	PromptProfileID       *int64 `db:"prompt_profile_id"`
	ModerationEnabled     bool   `db:"moderation_enabled"`
	CustomModerationTerms string `db:"custom_moderation_terms"`
}

func (r settingsRow) toModel() (*model.Settings, error) {
	s := model.DefaultSettings()
	s.SystemPrompt = r.SystemPrompt
	s.Provider = r.Provider
	s.Model = r.Model
	s.VectorStoreID = r.VectorStoreID
	s.ChatwootURL = r.ChatwootURL
	s.ChatwootToken = r.ChatwootToken
	s.ChatwootAccountID = r.ChatwootAccountID
	s.OpeningHour = r.OpeningHour
	s.ClosingHour = r.ClosingHour
	s.BotEnabled = r.BotEnabled
	s.PromptProfileID = r.PromptProfileID
	s.ModerationEnabled = r.ModerationEnabled
	s.CustomModerationTerms = r.CustomModerationTerms

	if err := decodeJSON(r.WorkingDays, &s.WorkingDays); err != nil {
		return nil, fmt.Errorf("failed to decode working days: %w", err)
	}
	var schedule model.Schedule
	if err := decodeJSON(r.Schedule, &schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}
	if len(schedule) > 0 {
		s.Schedule = schedule
	}
	if err := decodeJSON(r.Providers, &s.Providers); err != nil {
		return nil, fmt.Errorf("failed to decode providers: %w", err)
	}
	if s.Providers == nil {
		s.Providers = map[string]any{}
	}
	if err := decodeJSON(r.PromptBlocks, &s.PromptBlocks); err != nil {
		return nil, fmt.Errorf("failed to decode prompt blocks: %w", err)
	}
	return &s, nil
}

func decodeJSON(raw string, dest any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// SettingsRepo reads and writes the single settings row.
type SettingsRepo struct {
	db *sqlx.DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sqlx.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Load returns the stored settings, or ErrNotFound before the first save.
func (r *SettingsRepo) Load(ctx context.Context) (*model.Settings, error) {
	query := `
		SELECT COALESCE(system_prompt, '') AS system_prompt,
		       COALESCE(provider, '') AS provider,
		       COALESCE(model, '') AS model,
		       COALESCE(vector_store_id, '') AS vector_store_id,
		       COALESCE(chatwoot_url, '') AS chatwoot_url,
		       COALESCE(chatwoot_api_token, '') AS chatwoot_api_token,
		       COALESCE(chatwoot_account_id, '') AS chatwoot_account_id,
		       COALESCE(horario_inicio, 8) AS horario_inicio,
		       COALESCE(horario_fim, 18) AS horario_fim,
		       COALESCE(dias_funcionamento, '') AS dias_funcionamento,
		       COALESCE(bot_enabled, 0) AS bot_enabled,
		       COALESCE(schedule_json, '') AS schedule_json,
		       COALESCE(providers_json, '') AS providers_json,
		       COALESCE(prompt_blocks_json, '') AS prompt_blocks_json,
		       prompt_profile_id,
		       COALESCE(moderation_enabled, 0) AS moderation_enabled,
		       COALESCE(custom_moderation_terms, '') AS custom_moderation_terms
		FROM settings
		WHERE id = 1
	`
	var row settingsRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return row.toModel()
}

// LoadOrDefault returns the stored settings or the defaults when none exist.
func (r *SettingsRepo) LoadOrDefault(ctx context.Context) (*model.Settings, error) {
	s, err := r.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		d := model.DefaultSettings()
		return &d, nil
	}
	return s, err
}

// Save upserts the settings row.
func (r *SettingsRepo) Save(ctx context.Context, s *model.Settings) error {
	row := settingsRow{
		SystemPrompt:          s.SystemPrompt,
		Provider:              s.Provider,
		Model:                 s.Model,
		VectorStoreID:         s.VectorStoreID,
		ChatwootURL:           s.ChatwootURL,
		ChatwootToken:         s.ChatwootToken,
		ChatwootAccountID:     s.ChatwootAccountID,
		OpeningHour:           s.OpeningHour,
		ClosingHour:           s.ClosingHour,
		BotEnabled:            s.BotEnabled,
		PromptProfileID:       s.PromptProfileID,
		ModerationEnabled:     s.ModerationEnabled,
		CustomModerationTerms: s.CustomModerationTerms,
	}

	var err error
	if row.WorkingDays, err = encodeJSON(s.WorkingDays); err != nil {
		return fmt.Errorf("failed to encode working days: %w", err)
	}
	if row.Schedule, err = encodeJSON(s.Schedule); err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	if row.Providers, err = encodeJSON(s.Providers); err != nil {
		return fmt.Errorf("failed to encode providers: %w", err)
	}
	if row.PromptBlocks, err = encodeJSON(s.PromptBlocks); err != nil {
		return fmt.Errorf("failed to encode prompt blocks: %w", err)
	}

	query := `
		INSERT INTO settings (
			id, system_prompt, provider, model, vector_store_id, chatwoot_url,
			chatwoot_api_token, chatwoot_account_id, horario_inicio, horario_fim,
			dias_funcionamento, bot_enabled, schedule_json, providers_json,
			prompt_blocks_json, prompt_profile_id, moderation_enabled,
			custom_moderation_terms
		)
		VALUES (
			1, :system_prompt, :provider, :model, :vector_store_id, :chatwoot_url,
			:chatwoot_api_token, :chatwoot_account_id, :horario_inicio, :horario_fim,
			:dias_funcionamento, :bot_enabled, :schedule_json, :providers_json,
			:prompt_blocks_json, :prompt_profile_id, :moderation_enabled,
			:custom_moderation_terms
		)
		ON CONFLICT(id) DO UPDATE SET
			system_prompt = excluded.system_prompt,
			provider = excluded.provider,
			model = excluded.model,
			vector_store_id = excluded.vector_store_id,
			chatwoot_url = excluded.chatwoot_url,
			chatwoot_api_token = excluded.chatwoot_api_token,
			chatwoot_account_id = excluded.chatwoot_account_id,
			horario_inicio = excluded.horario_inicio,
			horario_fim = excluded.horario_fim,
			dias_funcionamento = excluded.dias_funcionamento,
			bot_enabled = excluded.bot_enabled,
			schedule_json = excluded.schedule_json,
			providers_json = excluded.providers_json,
			prompt_blocks_json = excluded.prompt_blocks_json,
			prompt_profile_id = excluded.prompt_profile_id,
			moderation_enabled = excluded.moderation_enabled,
			custom_moderation_terms = excluded.custom_moderation_terms
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// SetBotEnabled flips only the enabled flag, creating a default row first
// when none exists.
func (r *SettingsRepo) SetBotEnabled(ctx context.Context, enabled bool) error {
	s, err := r.LoadOrDefault(ctx)
	if err != nil {
		return err
	}
	s.BotEnabled = enabled
	return r.Save(ctx, s)
}
