// Package cli implements duelctl, a small operator CLI for the server's
// REST surface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	client    *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "duelctl",
		Short: "CLI tool for the duel server",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			client = NewClient(serverURL)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")

	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newLeaderboardCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
