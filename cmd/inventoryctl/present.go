package main

import (
	"time"

	"github.com/spf13/cobra"
)

// presentCmd represents the present command
var presentCmd = &cobra.Command{
	Use:   "present <minion>...",
	Short: "Record minions as alive",
	Long: `Record minions as alive, as the presence reactor does.

Known minions get their last_seen timestamp updated. An audit is triggered
for minions that have never been audited and the command waits for the
triggers to finish.

Example:
  inventoryctl present web01 db01
  inventoryctl present --timestamp 2024-05-02T10:00:00Z web01`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, _ := cmd.Flags().GetString("timestamp")
		if ts == "" {
			ts = time.Now().UTC().Format(time.RFC3339Nano)
		}

		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.close()

		report := a.presence.Present(cmd.Context(), ts, args)
		a.tracker.Wait()
		return printReport(cmd, report, report.Outcome)
	},
}

func init() {
	rootCmd.AddCommand(presentCmd)
	presentCmd.Flags().String("timestamp", "", "time the minions were seen (default now)")
}
