// Package main is the entry point for the API server: the helpdesk webhook
// bot plus the dashboard API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/supportbot-workspace/internal/app"
	"github.com/capitalize-ai/supportbot-workspace/internal/bot"
	"github.com/capitalize-ai/supportbot-workspace/internal/config"
	"github.com/capitalize-ai/supportbot-workspace/internal/handler"
	natsclient "github.com/capitalize-ai/supportbot-workspace/internal/nats"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
	"github.com/capitalize-ai/supportbot-workspace/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.Error("server failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	log.Info("starting API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "supportbot", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	responder := bot.NewResponder(a.SettingsRepo, a.Profiles, a.Logs, a.BotHelpdesk, a.LLMs.ForSettings,
		bot.NewHistory(bot.DefaultHistoryTurns), log)

	pruners := map[string]bot.Pruner{"directory_cache": a.DirectoryCache}
	health := handler.NewHealthHandler(a.DB)

	var dedup bot.Deduper
	if cfg.RedisURL != "" {
		client, err := bot.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		health.WithCheck("redis", handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		dedup = bot.NewRedisDeduper(client, cfg.DedupTTL)
		log.Info("webhook dedup backed by redis")
	} else {
		mem := bot.NewMemoryDeduper(cfg.DedupTTL)
		pruners["webhook_dedup"] = mem
		dedup = mem
	}

	var queue bot.Queue
	if cfg.NATSURL != "" {
		nc, err := natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		health.WithCheck("nats", nc)

		replies := natsclient.NewReplyQueue(nc)
		if err := replies.EnsureStream(ctx); err != nil {
			return err
		}
		if err := replies.Consume(ctx, responder.Handle); err != nil {
			return err
		}
		defer replies.Stop()
		queue = replies
	} else {
		mem := bot.NewMemoryQueue(cfg.ReplyWorkers, 100, log)
		mem.Start(ctx, responder.Handle)
		defer mem.Stop()
		queue = mem
	}

	processor := bot.NewProcessor(a.SettingsRepo, a.BotHelpdesk, dedup, queue, bot.ProcessorConfig{
		AllowedInboxIDs: cfg.AllowedInboxIDs,
		Holidays:        cfg.BrazilHolidays,
	}, log)

	janitor := bot.NewJanitor(pruners, log)
	if err := janitor.Start(bot.DefaultJanitorSchedule); err != nil {
		return err
	}
	defer janitor.Stop(context.Background())

	router := handler.NewRouter(handler.RouterConfig{
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		CORSOrigins:       cfg.CORSOrigins,
	}, handler.Handlers{
		Health:    health,
		Webhook:   handler.NewWebhookHandler(processor, log),
		Analytics: handler.NewAnalyticsHandler(a.Analytics, a.Insights, log),
		Settings:  handler.NewSettingsHandler(a.Settings, log),
		Prompts:   handler.NewPromptHandler(a.Profiles, a.Prompts, log),
		Logs:      handler.NewLogHandler(a.Logs, log),
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
