package command

import (
	"fmt"
	"strconv"

	"circlehub/internal/microservices/http-api/dto"

	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record your progress on a challenge",
}

func challengeArgs(args []string) (int64, int64, error) {
	circleID, err := parseID(args[0], "circle id")
	if err != nil {
		return 0, 0, err
	}
	challengeID, err := parseID(args[1], "challenge id")
	if err != nil {
		return 0, 0, err
	}
	return circleID, challengeID, nil
}

var progressSetCmd = &cobra.Command{
	Use:   "set [circle_id] [challenge_id] [value]",
	Short: "Set your current value (pages or books)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, challengeID, err := challengeArgs(args)
		if err != nil {
			return err
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid value: %q", args[2])
		}

		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		res, err := httpClient.SetProgress(cmd.Context(), circleID, challengeID, value)
		if err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		printProgress(res)
		return nil
	},
}

var progressSyncCmd = &cobra.Command{
	Use:   "sync [circle_id] [challenge_id]",
	Short: "Pull progress from your library for a book race",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, challengeID, err := challengeArgs(args)
		if err != nil {
			return err
		}
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		res, err := httpClient.SyncProgress(cmd.Context(), circleID, challengeID)
		if err != nil {
			return fmt.Errorf("failed to sync progress: %w", err)
		}
		if !res.Applied {
			fmt.Printf("Library is at page %d, nothing to sync.\n", res.LibraryPage)
			return nil
		}
		printProgress(&res.ProgressResponse)
		return nil
	},
}

func printProgress(res *dto.ProgressResponse) {
	fmt.Println(success("✓ " + res.Message))
	fmt.Printf("   Current value: %d\n", res.CurrentValue)
	if res.CompletedNow {
		fmt.Println(bold(fmt.Sprintf("🎉 Challenge completed! +%d points", res.PointsAwarded)))
	} else if res.Completed {
		fmt.Println(faint("   already completed"))
	}
}

func init() {
	progressCmd.AddCommand(progressSetCmd, progressSyncCmd)
}
