// Package service holds the use cases behind the dashboard API and the CLI:
// analytics over the helpdesk, insights through the LLM and settings
// management.
package service

import (
	"context"
	"errors"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
)

var (
	// ErrNotConfigured is returned before any network call when helpdesk
	// credentials or the LLM key are missing.
	ErrNotConfigured = errors.New("integration not configured")

	// ErrInvalidPeriod is returned when the start day is after the end day.
	ErrInvalidPeriod = analytics.ErrInvalidPeriod

	// ErrInvalidRequest marks input the caller must fix.
	ErrInvalidRequest = errors.New("invalid request")
)

// SettingsLoader reads the stored settings, falling back to defaults.
type SettingsLoader interface {
	LoadOrDefault(ctx context.Context) (*model.Settings, error)
}

// HelpdeskClients builds helpdesk clients from the stored settings. Empty
// settings fields fall back to the environment credentials.
type HelpdeskClients struct {
	settings SettingsLoader
	fallback chatwoot.Credentials
	opts     []chatwoot.Option
}

// NewHelpdeskClients creates the factory. opts are applied to every client,
// typically a shared directory cache and logger.
func NewHelpdeskClients(settings SettingsLoader, fallback chatwoot.Credentials, opts ...chatwoot.Option) *HelpdeskClients {
	return &HelpdeskClients{settings: settings, fallback: fallback, opts: opts}
}

// Credentials merges s with the environment fallbacks.
func (h *HelpdeskClients) Credentials(s *model.Settings) chatwoot.Credentials {
	creds := h.fallback
	if s != nil {
		if s.ChatwootURL != "" {
			creds.BaseURL = s.ChatwootURL
		}
		if s.ChatwootAccountID != "" {
			creds.AccountID = s.ChatwootAccountID
		}
		if s.ChatwootToken != "" {
			creds.Token = s.ChatwootToken
		}
	}
	return creds
}

// ForSettings builds a client for s. It returns ErrNotConfigured when the
// merged credentials are incomplete.
func (h *HelpdeskClients) ForSettings(s *model.Settings) (*chatwoot.Client, error) {
	client, err := chatwoot.New(h.Credentials(s), h.opts...)
	if errors.Is(err, chatwoot.ErrMissingCredentials) {
		return nil, ErrNotConfigured
	}
	return client, err
}

// Current builds a client from the settings stored right now.
func (h *HelpdeskClients) Current(ctx context.Context) (*chatwoot.Client, error) {
	s, err := h.settings.LoadOrDefault(ctx)
	if err != nil {
		return nil, err
	}
	return h.ForSettings(s)
}

// Helpdesk is the read side of the helpdesk API used by the analytics and
// report use cases.
type Helpdesk interface {
	analytics.MessageFetcher
	ListConversations(ctx context.Context, q chatwoot.ConversationQuery) ([]model.Conversation, error)
	Inboxes(ctx context.Context) ([]chatwoot.Entry, error)
	Agents(ctx context.Context) ([]chatwoot.Entry, error)
	Teams(ctx context.Context) ([]chatwoot.Entry, error)
	LiveConversationMetrics(ctx context.Context) (map[string]any, error)
	GroupedConversationMetrics(ctx context.Context, groupBy string) ([]model.Record, error)
	ConversationReports(ctx context.Context, q chatwoot.ReportQuery) ([]chatwoot.ReportPoint, error)
}

// HelpdeskOpener yields a helpdesk client for the current settings.
type HelpdeskOpener interface {
	Open(ctx context.Context) (Helpdesk, error)
}

// Open implements HelpdeskOpener.
func (h *HelpdeskClients) Open(ctx context.Context) (Helpdesk, error) {
	client, err := h.Current(ctx)
	if err != nil {
		return nil, err
	}
	return client, nil
}
