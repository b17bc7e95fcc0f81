package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/app"
	"github.com/capitalize-ai/supportbot-workspace/internal/model"
	"github.com/capitalize-ai/supportbot-workspace/internal/store"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	onStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	offStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	flaggedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00"))
)

func NewLogsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent bot conversation turns",
		Example: `  # Last 20 turns
  cwctl logs --limit 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				entries, err := a.Logs.List(ctx, limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No conversation logs found.")
					return nil
				}
				// Oldest first, like a transcript.
				for i := len(entries) - 1; i >= 0; i-- {
					printLog(cmd.OutOrStdout(), &entries[i])
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", store.DefaultLogLimit, "Maximum number of entries")

	return cmd
}

func printLog(w io.Writer, e *model.ConversationLog) {
	roleStyle := lipgloss.NewStyle().Bold(true)
	switch e.Direction {
	case model.DirectionUser:
		roleStyle = roleStyle.Foreground(lipgloss.Color("#00FF00"))
	case model.DirectionAssistant:
		roleStyle = roleStyle.Foreground(lipgloss.Color("#00BFFF"))
	}

	who := e.Direction
	if e.Direction == model.DirectionUser && e.ClientName != "" {
		who = e.ClientName
	}
	header := fmt.Sprintf("%s %s %s",
		labelStyle.Render(e.CreatedAt),
		labelStyle.Render("#"+e.ConversationID),
		roleStyle.Render(who))
	if e.TotalTokens != nil {
		header += labelStyle.Render(fmt.Sprintf(" (%d tokens)", *e.TotalTokens))
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "  "+strings.ReplaceAll(strings.TrimSpace(e.Message), "\n", "\n  "))
	if e.ModerationApplied && e.ModerationDetails != nil {
		fmt.Fprintln(w, "  "+flaggedStyle.Render("moderation: "+*e.ModerationDetails))
	}
}
