package command

import (
	"errors"
	"fmt"
	"time"

	"circlehub/cmd/cli/command/client"
	"circlehub/internal/microservices/http-api/dto"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Manage the group challenges of a circle",
}

var challengeListCmd = &cobra.Command{
	Use:   "list [circle_id]",
	Short: "List challenges with everyone's progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, err := parseID(args[0], "circle id")
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")

		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		challenges, err := httpClient.ListChallenges(cmd.Context(), circleID, all)
		if err != nil {
			return fmt.Errorf("failed to fetch challenges: %w", err)
		}
		if len(challenges) == 0 {
			fmt.Println("No challenges yet.")
			return nil
		}
		for _, ch := range challenges {
			printChallenge(ch)
		}
		return nil
	},
}

func printChallenge(ch client.Challenge) {
	state := success("open")
	if !ch.IsActive {
		state = faint("closed")
	}
	fmt.Printf("%s %s [%s] %s\n", bold(fmt.Sprintf("#%d", ch.ID)), ch.Name, ch.ChallengeType, state)
	fmt.Printf("   %s → %s   target: %d\n", ch.StartDate.Format(dateLayout), ch.EndDate.Format(dateLayout), ch.EffectiveTarget)
	if title, ok := ch.Target["title"].(string); ok {
		fmt.Printf("   Book: %s\n", title)
	}
	if genre, ok := ch.Target["genre"].(string); ok {
		fmt.Printf("   Genre: %s\n", genre)
	}
	for _, p := range ch.Progress {
		mark := " "
		if p.Completed {
			mark = "✓"
		}
		name := p.Username
		if p.IsCurrentUser {
			name = bold(name)
		}
		fmt.Printf("   %s %-20s %5d  %5.1f%%\n", mark, name, p.CurrentValue, p.Percentage)
	}
	if ch.Library != nil && ch.Library.InLibrary {
		fmt.Printf("   %s\n", faint(fmt.Sprintf("library: page %d", ch.Library.CurrentPage)))
	}
	fmt.Println()
}

var challengeCreateCmd = &cobra.Command{
	Use:   "create [circle_id] [name]",
	Short: "Create a challenge (circle admins only)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, err := parseID(args[0], "circle id")
		if err != nil {
			return err
		}
		req, err := challengeRequestFromFlags(cmd, args[1])
		if err != nil {
			return err
		}

		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		ch, err := httpClient.CreateChallenge(cmd.Context(), circleID, req)
		if err != nil {
			return fmt.Errorf("failed to create challenge: %w", err)
		}
		fmt.Println(success(fmt.Sprintf("✓ Challenge #%d created", ch.ID)))
		return nil
	},
}

func challengeRequestFromFlags(cmd *cobra.Command, name string) (dto.CreateChallengeRequest, error) {
	flags := cmd.Flags()
	kind, _ := flags.GetString("type")
	description, _ := flags.GetString("description")
	endRaw, _ := flags.GetString("end")
	startRaw, _ := flags.GetString("start")

	req := dto.CreateChallengeRequest{
		Name:          name,
		Description:   description,
		ChallengeType: kind,
	}

	if endRaw == "" {
		return req, errors.New("--end is required")
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return req, fmt.Errorf("invalid --end date %q (want YYYY-MM-DD)", endRaw)
	}
	req.EndDate = end
	if startRaw != "" {
		start, err := time.Parse(dateLayout, startRaw)
		if err != nil {
			return req, fmt.Errorf("invalid --start date %q (want YYYY-MM-DD)", startRaw)
		}
		req.StartDate = &start
	}

	if flags.Changed("book") {
		book, _ := flags.GetInt64("book")
		req.TargetBookID = &book
	}
	if flags.Changed("count") {
		count, _ := flags.GetInt("count")
		req.TargetCount = &count
	}
	if flags.Changed("genre") {
		genre, _ := flags.GetString("genre")
		req.TargetGenre = &genre
	}
	return req, nil
}

func setActiveCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [circle_id] [challenge_id]",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			circleID, err := parseID(args[0], "circle id")
			if err != nil {
				return err
			}
			challengeID, err := parseID(args[1], "challenge id")
			if err != nil {
				return err
			}
			httpClient, err := GetAuthenticatedClient()
			if err != nil {
				return err
			}
			ch, err := httpClient.SetChallengeActive(cmd.Context(), circleID, challengeID, active)
			if err != nil {
				return fmt.Errorf("failed to update challenge: %w", err)
			}
			fmt.Println(success(fmt.Sprintf("✓ %s is now %s", ch.Name, map[bool]string{true: "open", false: "closed"}[ch.IsActive])))
			return nil
		},
	}
}

func init() {
	challengeListCmd.Flags().Bool("all", false, "include closed challenges")

	f := challengeCreateCmd.Flags()
	f.String("type", "", "book_race, books_count, pages_count or genre_challenge")
	f.String("description", "", "challenge description")
	f.Int64("book", 0, "target book id (book_race)")
	f.Int("count", 0, "target count (books_count, pages_count, genre_challenge)")
	f.String("genre", "", "target genre (genre_challenge)")
	f.String("start", "", "start date, YYYY-MM-DD (defaults to today)")
	f.String("end", "", "end date, YYYY-MM-DD")
	_ = challengeCreateCmd.MarkFlagRequired("type")

	challengeCmd.AddCommand(
		challengeListCmd,
		challengeCreateCmd,
		setActiveCmd("open", "Reopen a challenge", true),
		setActiveCmd("close", "Close a challenge", false),
	)
}
