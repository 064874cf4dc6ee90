package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saltinventory/minion-inventory/pkg/config"
	"github.com/saltinventory/minion-inventory/pkg/server/middleware"
)

// tokenCmd represents the token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <subject>",
	Short: "Issue a bearer token for the ingestion API",
	Long: `Issue a bearer token for the ingestion API.

Tokens are signed with api_token_secret. Give them to the returner and
reactor that post to /audit and /present.

Example:
  inventoryctl token issue salt-master --ttl 8760h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if cfg.APITokenSecret == "" {
			return fmt.Errorf("%w: api_token_secret is not set", config.ErrInvalidConfig)
		}

		token, err := middleware.IssueToken([]byte(cfg.APITokenSecret), args[0], ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenIssueCmd)
	tokenIssueCmd.Flags().Duration("ttl", 0, "token lifetime (0 never expires)")
}
