package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/supportbot-workspace/internal/middleware"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	CORSOrigins       []string
}

// Handlers groups every handler mounted by NewRouter.
type Handlers struct {
	Health    *HealthHandler
	Webhook   *WebhookHandler
	Analytics *AnalyticsHandler
	Settings  *SettingsHandler
	Prompts   *PromptHandler
	Logs      *LogHandler
}

// NewRouter mounts the webhook, health, metrics and dashboard routes.
func NewRouter(cfg RouterConfig, h Handlers, log *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)

	// Health endpoints (no auth required)
	r.Get("/health", h.Health.Health)
	r.Get("/ready", h.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.With(middleware.WebhookRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)).
		Post("/webhook", h.Webhook.Receive)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CORS(cfg.CORSOrigins))
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeRead))

			r.Get("/lookups", h.Analytics.Lookups)
			r.Route("/analytics", func(r chi.Router) {
				r.Post("/conversations", h.Analytics.Conversations)
				r.Post("/analysis", h.Analytics.Analysis)
				r.Post("/messages", h.Analytics.Messages)
				r.Post("/insights/context", h.Analytics.InsightsContext)
				r.Post("/insights", h.Analytics.Insights)
			})
			r.Route("/reports", func(r chi.Router) {
				r.Get("/live", h.Analytics.LiveReport)
				r.Get("/conversations", h.Analytics.ConversationsPerDay)
				r.Get("/hourly", h.Analytics.Hourly)
			})

			r.Get("/settings", h.Settings.Get)
			r.Get("/logs", h.Logs.List)
			r.Get("/prompt-profiles", h.Prompts.ListProfiles)
			r.Get("/prompt-profiles/{id}", h.Prompts.GetProfile)
			r.Get("/insight-prompts", h.Prompts.ListInsightPrompts)
			r.Get("/insight-prompts/{id}", h.Prompts.GetInsightPrompt)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireScope(middleware.ScopeAdmin))

			r.Put("/settings", h.Settings.Update)
			r.Post("/settings/bot", h.Settings.SetBot)
			r.Post("/settings/validate", h.Settings.Validate)

			r.Post("/prompt-profiles", h.Prompts.CreateProfile)
			r.Put("/prompt-profiles/{id}", h.Prompts.UpdateProfile)
			r.Delete("/prompt-profiles/{id}", h.Prompts.DeleteProfile)

			r.Post("/insight-prompts", h.Prompts.CreateInsightPrompt)
			r.Put("/insight-prompts/{id}", h.Prompts.UpdateInsightPrompt)
			r.Delete("/insight-prompts/{id}", h.Prompts.DeleteInsightPrompt)
		})
	})

	return r
}
