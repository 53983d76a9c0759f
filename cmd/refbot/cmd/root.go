package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "refbot",
	Short: "osu! tournament referee bot",
	Long: `refbot referees osu! tournament matches over Bancho IRC.

It creates and closes private multiplayer matches on command, classifies
BanchoBot's announcements into typed events, and bridges everything it
observes onto NATS JetStream.`,
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
