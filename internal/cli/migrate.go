package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/app"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Manage database migrations",
		Long: `Apply, roll back or inspect the database schema. Pending migrations are
always applied when the database is opened, so "up" only reports the result.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return runMigrate(cmd, a, action)
			})
		},
	}
	return cmd
}

func runMigrate(cmd *cobra.Command, a *app.App, action string) error {
	switch action {
	case "up", "status":
	case "down":
		if err := store.MigrateDown(a.DB.DB.DB); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown migrate action %q", action)
	}

	version, err := store.MigrationStatus(a.DB.DB.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: schema version %d\n", a.DB.Path(), version)
	return nil
}
