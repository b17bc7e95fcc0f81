package model

import (
	"strconv"
	"strings"
)

// Provider names accepted in settings.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DaySchedule is the open window for one weekday, in whole hours [Start, End).
type DaySchedule struct {
	Enabled bool `json:"enabled"`
	Start   int  `json:"start"`
	End     int  `json:"end"`
}

// Schedule maps weekday keys "0" (Monday) through "6" (Sunday) to windows.
type Schedule map[string]DaySchedule

// DefaultSchedule opens Monday to Friday from 8 to 18.
func DefaultSchedule() Schedule {
	s := make(Schedule, 7)
	for i := 0; i < 7; i++ {
		s[strconv.Itoa(i)] = DaySchedule{Enabled: i < 5, Start: 8, End: 18}
	}
	return s
}

// PromptBlocks are the guided sections a system prompt can be built from.
type PromptBlocks struct {
	Identity      string `json:"identity,omitempty"`
	Style         string `json:"style,omitempty"`
	Scope         string `json:"scope,omitempty"`
	Greeting      string `json:"greeting,omitempty"`
	Rules         string `json:"rules,omitempty"`
	HandoffPhrase string `json:"handoff_phrase,omitempty"`
	Goodbye       string `json:"goodbye,omitempty"`
}

// Settings is the single-row bot and integration configuration.
type Settings struct {
	SystemPrompt          string         `json:"system_prompt"`
	Provider              string         `json:"provider"`
	Model                 string         `json:"model"`
	VectorStoreID         string         `json:"vector_store_id"`
	ChatwootURL           string         `json:"chatwoot_url"`
	ChatwootToken         string         `json:"chatwoot_api_token"`
	ChatwootAccountID     string         `json:"chatwoot_account_id"`
	OpeningHour           int            `json:"horario_inicio"`
	ClosingHour           int            `json:"horario_fim"`
	WorkingDays           []int          `json:"dias_funcionamento"`
	BotEnabled            bool           `json:"bot_enabled"`
	Schedule              Schedule       `json:"schedule"`
	Providers             map[string]any `json:"providers"`
	PromptBlocks          PromptBlocks   `json:"prompt_blocks"`
	PromptProfileID       *int64         `json:"prompt_profile_id"`
	ModerationEnabled     bool           `json:"moderation_enabled"`
	CustomModerationTerms string         `json:"custom_moderation_terms"`
}

// DefaultSettings are applied when no row exists yet.
func DefaultSettings() Settings {
	return Settings{
		Provider:    ProviderOpenAI,
		Model:       "gpt-4.1-mini",
		OpeningHour: 8,
		ClosingHour: 18,
		WorkingDays: []int{0, 1, 2, 3, 4},
		Schedule:    DefaultSchedule(),
		Providers:   map[string]any{},
	}
}

// HasChatwoot reports whether all helpdesk credentials are present.
func (s *Settings) HasChatwoot() bool {
	return s.ChatwootURL != "" && s.ChatwootToken != "" && s.ChatwootAccountID != ""
}

// MaskSecret hides all but the last four characters of a credential.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// Redacted returns a copy safe to show to dashboard readers.
func (s *Settings) Redacted() *Settings {
	out := *s
	out.ChatwootToken = MaskSecret(s.ChatwootToken)
	return &out
}

// ModerationTerms splits the ";"-separated custom terms.
func (s *Settings) ModerationTerms() []string {
	var out []string
	for _, t := range strings.Split(s.CustomModerationTerms, ";") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// PromptProfile is a named, reusable system prompt.
type PromptProfile struct {
	ID         int64  `json:"id" db:"id"`
	Name       string `json:"name" db:"name"`
	Details    string `json:"details" db:"details"`
	PromptText string `json:"prompt_text" db:"prompt_text"`
}

// InsightPrompt is a stored instruction run against the analytics context.
type InsightPrompt struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	CreatedAt   string `json:"created_at" db:"created_at"`
	PromptText  string `json:"prompt_text" db:"prompt_text"`
}

// Log directions.
const (
	DirectionUser      = "user"
	DirectionAssistant = "assistant"
)

// ConversationLog is one audited bot turn.
type ConversationLog struct {
	ID                int64    `json:"id" db:"id"`
	ConversationID    string   `json:"conversation_id" db:"conversation_id"`
	ClientName        string   `json:"client_name" db:"client_name"`
	Direction         string   `json:"direction" db:"direction"`
	Message           string   `json:"message" db:"message"`
	CreatedAt         string   `json:"created_at" db:"created_at"`
	InboxID           *string  `json:"inbox_id" db:"inbox_id"`
	PromptTokens      *int64   `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens  *int64   `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens       *int64   `json:"total_tokens" db:"total_tokens"`
	CostEstimatedUSD  *float64 `json:"cost_estimated_usd" db:"cost_estimated_usd"`
	ProfileName       *string  `json:"profile_name" db:"profile_name"`
	ModerationApplied bool     `json:"moderation_applied" db:"moderation_applied"`
	ModerationDetails *string  `json:"moderation_details" db:"moderation_details"`
}
