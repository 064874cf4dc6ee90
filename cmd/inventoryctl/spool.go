package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saltinventory/minion-inventory/pkg/spool"
)

// spoolCmd represents the spool command
var spoolCmd = &cobra.Command{
	Use:   "spool",
	Short: "Apply reports dropped into a spool directory",
}

var spoolWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a spool directory and apply reports as they appear",
	Long: `Watch a spool directory and apply reports as they appear.

Each report is a JSON file with a "type" of "audit" or "present". Applied
files are deleted, rejected files are moved to the "failed" subdirectory and
files that failed for a retryable reason are retried with back-off.

The directory defaults to the spool_dir configuration attribute.

Example:
  inventoryctl spool watch /var/spool/salt-inventory`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		dir := a.cfg.SpoolDir
		if len(args) > 0 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("no spool directory given and spool_dir is not configured")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := a.ping(ctx); err != nil {
			return err
		}
		return spool.New(dir, a.auditor, a.presence, a.logger).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(spoolCmd)
	spoolCmd.AddCommand(spoolWatchCmd)
}
