// Package app wires the stores, clients and services shared by the API server
// and the command line tool.
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/bot"
	"github.com/capitalize-ai/supportbot-workspace/internal/chatwoot"
	"github.com/capitalize-ai/supportbot-workspace/internal/config"
	"github.com/capitalize-ai/supportbot-workspace/internal/llm"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/service"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
	"github.com/capitalize-ai/supportbot-workspace/internal/timestamp"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// App holds the shared dependencies.
type App struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *store.DB

	SettingsRepo *store.SettingsRepo
	Profiles     *store.ProfileRepo
	Prompts      *store.InsightRepo
	Logs         *store.LogRepo

	DirectoryCache *chatwoot.DirectoryCache
	Helpdesks      *service.HelpdeskClients
	LLMs           *service.LLMClients

	Analytics *service.AnalyticsService
	Insights  *service.InsightsService
	Settings  *service.SettingsService
}

// New opens the database and builds the services.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	timestamp.SetZone(cfg.Timezone)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{
		Config:       cfg,
		Logger:       log,
		DB:           db,
		SettingsRepo: store.NewSettingsRepo(db.DB),
		Profiles:     store.NewProfileRepo(db.DB),
		Prompts:      store.NewInsightRepo(db.DB),
		Logs:         store.NewLogRepo(db.DB),
	}

	a.DirectoryCache = chatwoot.NewDirectoryCache(cfg.DirectoryCacheTTL)
	a.Helpdesks = service.NewHelpdeskClients(a.SettingsRepo, chatwoot.Credentials{
		BaseURL:   cfg.ChatwootURL,
		AccountID: cfg.ChatwootAccountID,
		Token:     cfg.ChatwootToken,
	}, chatwoot.WithCache(a.DirectoryCache), chatwoot.WithLogger(log))
	a.LLMs = service.NewLLMClients(llm.Config{
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIBaseURL:   cfg.OpenAIBaseURL,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
	})

	classifier := analytics.NewClassifier(cfg.BotSenderNames, cfg.BotSenderIDs)
	a.Analytics = service.NewAnalyticsService(a.Helpdesks, classifier, log)
	a.Insights = service.NewInsightsService(a.Analytics, a.Prompts, a.SettingsRepo, a.LLMs.ForSettings, log)
	a.Settings = service.NewSettingsService(a.SettingsRepo, a.openAIValidator, a.pinger, a.DirectoryCache.Invalidate, log)

	log.Info("workspace ready",
		zap.String("database", db.Path()),
		zap.String("timezone", cfg.Timezone),
	)
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

func (a *App) openAIValidator() (llm.Validator, error) {
	client, err := a.LLMs.OpenAI()
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *App) pinger(s *model.Settings) (service.Pinger, error) {
	client, err := a.Helpdesks.ForSettings(s)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// BotHelpdesk adapts the helpdesk factory to the bot runtime.
func (a *App) BotHelpdesk(s *model.Settings) (bot.Helpdesk, error) {
	client, err := a.Helpdesks.ForSettings(s)
	if err != nil {
		return nil, err
	}
	return client, nil
}
