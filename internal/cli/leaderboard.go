package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/duelpit/duelserver/internal/model"
)

func newLeaderboardCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top players by win count",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
			}
			if err := client.Get(fmt.Sprintf("/api/v1/leaderboard?n=%d", n), &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.Leaderboard) == 0 {
				fmt.Fprintln(out, "no ranked players yet")
				return nil
			}
			for i, entry := range result.Leaderboard {
				fmt.Fprintf(out, "%d. %s\t%d wins\n", i+1, entry.Username, entry.Wins)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "count", "n", 5, "Number of entries to show")
	return cmd
}
