package cmd

import (
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Show service status, pool size and last activity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return getAndPrint(cmd, "/api/ping")
	},
}

var wakeupCmd = &cobra.Command{
	Use:   "wakeup",
	Short: "Force an immediate warm-up of every pooled recognizer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return getAndPrint(cmd, "/api/wakeup")
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(wakeupCmd)
}
