package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/app"
)

func NewBotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Switch the webhook bot on or off",
	}
	cmd.AddCommand(
		newBotToggleCommand("enable", true),
		newBotToggleCommand("disable", false),
		newBotStatusCommand(),
	)
	return cmd
}

func newBotToggleCommand(use string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("%s automatic replies", use),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Settings.SetBotEnabled(ctx, enabled); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), botState(enabled))
				return nil
			})
		},
	}
}

func newBotStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the bot switch, provider and model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				s, err := a.Settings.Get(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s %s / %s\n",
					botState(s.BotEnabled), labelStyle.Render("model:"), s.Provider, s.Model)
				return nil
			})
		},
	}
}

func botState(enabled bool) string {
	if enabled {
		return onStyle.Render("bot enabled")
	}
	return offStyle.Render("bot disabled")
}
