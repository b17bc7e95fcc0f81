// Package cli implements cwctl: migrations, dashboard tokens, report exports,
// insights and bot administration from the terminal.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/app"
	"github.com/capitalize-ai/supportbot-workspace/internal/config"
	"github.com/capitalize-ai/supportbot-workspace/pkg/logger"
)

var (
	dbPath  string
	verbose bool
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cwctl",
		Short: "Support bot workspace administration",
		Long: `cwctl manages the support bot workspace: database migrations, dashboard
tokens, conversation reports, LLM insights and the webhook bot switch.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default: DATABASE_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	rootCmd.AddCommand(
		NewMigrateCommand(),
		NewTokenCommand(),
		NewReportCommand(),
		NewInsightsCommand(),
		NewBotCommand(),
		NewLogsCommand(),
	)

	return rootCmd
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	return cfg, nil
}

func newLogger() (*logger.Logger, error) {
	if !verbose {
		return logger.NewNop(), nil
	}
	return logger.NewDevelopment()
}

// withApp builds the workspace for one command run.
func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
