package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/supportbot-workspace/internal/middleware"
)

func NewTokenCommand() *cobra.Command {
	var subject string
	var admin bool
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a dashboard API token",
		Example: `  # Read-only token for the dashboard
  cwctl token --subject dashboard

  # Token that can change settings and prompts, valid for a week
  cwctl token --subject ops --admin --ttl 168h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWTExpiration
			}
			scopes := []string{middleware.ScopeRead}
			if admin {
				scopes = append(scopes, middleware.ScopeAdmin)
			}
			token, err := middleware.IssueToken(cfg.JWTSecret, subject, scopes, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "cwctl", "Token subject")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin scope")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (default: JWT_EXPIRATION)")

	return cmd
}
