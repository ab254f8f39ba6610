package command

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Leaderboards, the activity feed and reading streaks",
}

var statsLeaderboardCmd = &cobra.Command{
	Use:   "leaderboard [circle_id]",
	Short: "Show the circle ranking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, err := parseID(args[0], "circle id")
		if err != nil {
			return err
		}
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		entries, err := httpClient.Leaderboard(cmd.Context(), circleID)
		if err != nil {
			return fmt.Errorf("failed to fetch leaderboard: %w", err)
		}

		fmt.Printf("%-5s %-20s %8s %10s\n", "Rank", "Reader", "Points", "Completed")
		fmt.Println("─────────────────────────────────────────────")
		for _, e := range entries {
			line := fmt.Sprintf("%-5d %-20s %8d %10d", e.Rank, e.Username, e.CirclePoints, e.ChallengesCompleted)
			if e.IsCurrentUser {
				line = bold(line)
			}
			fmt.Println(line)
		}
		return nil
	},
}

var statsExportCmd = &cobra.Command{
	Use:   "export [circle_id]",
	Short: "Download the leaderboard as an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, err := parseID(args[0], "circle id")
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = fmt.Sprintf("circle-%d-leaderboard.xlsx", circleID)
		}

		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		n, err := httpClient.ExportLeaderboard(cmd.Context(), circleID, f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(out)
			return fmt.Errorf("failed to export leaderboard: %w", err)
		}
		fmt.Println(success(fmt.Sprintf("✓ Wrote %s (%d bytes)", out, n)))
		return nil
	},
}

var statsActivityCmd = &cobra.Command{
	Use:   "activity [circle_id]",
	Short: "Show the latest circle activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, err := parseID(args[0], "circle id")
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		items, err := httpClient.Activity(cmd.Context(), circleID, limit)
		if err != nil {
			return fmt.Errorf("failed to fetch activity: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("Nothing has happened here yet.")
			return nil
		}
		for _, a := range items {
			fmt.Printf("%s %s %s\n", faint(a.CreatedAt.Local().Format("Jan 02 15:04")), bold(a.Username), a.Content)
		}
		return nil
	},
}

var statsStreakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show your monthly reading streak",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		s, err := httpClient.ReadingStreak(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch streak: %w", err)
		}

		fmt.Printf("🔥 Current streak: %s months\n", bold(s.CurrentStreakMonths))
		fmt.Printf("   Longest streak: %d months\n", s.LongestStreakMonths)
		fmt.Printf("   Books this month: %d\n", s.BooksThisMonth)
		fmt.Printf("   Books this year: %d\n", s.BooksThisYear)
		if m := s.MostProductiveMonth; m != nil {
			fmt.Printf("   Best month: %s %d (%d books)\n", m.Month, m.Year, m.Count)
		}
		if r := s.ReadingSince; r != nil {
			fmt.Printf("   Reading since: %04d-%02d\n", r.Year, r.Month)
		}
		return nil
	},
}

func init() {
	statsExportCmd.Flags().StringP("out", "o", "", "output file (default circle-<id>-leaderboard.xlsx)")
	statsActivityCmd.Flags().Int("limit", 20, "number of entries")

	statsCmd.AddCommand(statsLeaderboardCmd, statsExportCmd, statsActivityCmd, statsStreakCmd)
}
