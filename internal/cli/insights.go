package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/analytics"
	"github.com/capitalize-ai/supportbot-workspace/internal/app"
	"github.com/capitalize-ai/supportbot-workspace/internal/service"
)

func NewInsightsCommand() *cobra.Command {
	var flags reportFlags
	var promptID int64
	var prompt string
	var showContext bool
	var limits analytics.ContextLimits

	cmd := &cobra.Command{
		Use:   "insights",
		Short: "Ask the LLM for insights about the period",
		Example: `  # Run a stored insight prompt over yesterday's bot conversations
  cwctl insights --prompt-id 3 --from 2024-03-07 --type Bot

  # Show the context that would be sent, without calling the model
  cwctl insights --from 2024-03-01 --to 2024-03-07 --context`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if showContext {
					built, err := a.Analytics.InsightsContext(ctx, filter, limits)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, built.Text)
					return nil
				}

				res, err := a.Insights.Run(ctx, service.InsightRequest{
					Filter:     filter,
					PromptID:   promptID,
					PromptText: prompt,
					Limits:     limits,
				})
				if err != nil {
					return err
				}
				fmt.Fprintln(out, res.Markdown)
				if res.Usage != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "\n%s · %d tokens", res.Model, res.Usage.TotalTokens)
					if res.CostEstimatedUSD != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), " · US$ %.4f", *res.CostEstimatedUSD)
					}
					fmt.Fprintln(cmd.ErrOrStderr())
				}
				return nil
			})
		},
	}

	flags.register(cmd, false)
	cmd.Flags().Int64Var(&promptID, "prompt-id", 0, "Stored insight prompt id")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Prompt text, used when --prompt-id is not set")
	cmd.Flags().BoolVar(&showContext, "context", false, "Print the context instead of calling the model")
	cmd.Flags().IntVar(&limits.MaxMessages, "max-messages", 0, "Maximum sampled messages")
	cmd.Flags().IntVar(&limits.MaxChars, "max-chars", 0, "Maximum context characters")
	cmd.Flags().IntVar(&limits.MaxContentChars, "max-content-chars", 0, "Maximum characters per message")

	return cmd
}
