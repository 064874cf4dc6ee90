package main

import (
	"github.com/spf13/cobra"
)

// configurationCmd represents the configuration command
var configurationCmd = &cobra.Command{
	Use:   "configuration",
	Short: "Inspect inventory configuration",
	Long:  `Inspect inventory configuration settings.`,
}

func init() {
	rootCmd.AddCommand(configurationCmd)
}
