package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	"github.com/spf13/cobra"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the database to be reachable",
	Long: `Wait for the database to be reachable.

The database is pinged with exponential back-off until it answers or the
timeout expires. Useful in container entrypoints before "server".

Example:
  inventoryctl wait
  inventoryctl wait --timeout 5m`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeout, _ := cmd.Flags().GetDuration("timeout")

		a, err := newApp(false)
		if err != nil {
			return err
		}
		defer a.close()

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		if err := waitForDatabase(ctx, a.ping, &backoff.Backoff{Min: 500 * time.Millisecond, Max: 10 * time.Second, Factor: 2}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database is ready")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().Duration("timeout", 90*time.Second, "how long to wait")
}

func waitForDatabase(ctx context.Context, ping func(context.Context) error, b *backoff.Backoff) error {
	for {
		err := ping(ctx)
		if err == nil {
			return nil
		}

		d := b.Duration()
		select {
		case <-ctx.Done():
			return fmt.Errorf("database is not ready: %w", err)
		case <-time.After(d):
		}
	}
}
