package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saltinventory/minion-inventory/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

The values displayed by this command reflect the current state of the
configuration sources, the environment variables and the config file. They
may not match the values used by a running server. Secrets are masked.

Config file location: /etc/salt-inventory/inventory.yml (or INVENTORY_CONFIG_PATH)

Example:
  inventoryctl configuration show
  inventoryctl configuration show --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return showConfiguration(cmd, output)
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(cmd *cobra.Command, output string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	switch output {
	case "json":
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), jsonOutput)
	case "text":
		fmt.Fprint(cmd.OutOrStdout(), cfg.FormatText())
	default:
		return fmt.Errorf("unknown output format %q", output)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	return nil
}
