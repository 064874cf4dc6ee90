package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "inventoryctl",
	Short: "Salt minion inventory",
	Long: `Reconcile Salt minion audits and presence signals into the inventory database.

Configuration is read from inventory.yml in INVENTORY_CONFIG_PATH and from
INVENTORY_* environment variables. Run "inventoryctl configuration show" to
see the effective values.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
