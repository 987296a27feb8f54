package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Status  string `json:"status"`
				Clients int    `json:"clients"`
			}
			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s, %d connected clients\n", result.Status, result.Clients)
			return nil
		},
	}
}
