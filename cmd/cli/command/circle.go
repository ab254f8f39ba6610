package command

import (
	"fmt"

	"circlehub/internal/microservices/http-api/dto"

	"github.com/spf13/cobra"
)

var circleCmd = &cobra.Command{
	Use:   "circle",
	Short: "Create, find and join reading circles",
}

var circleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the circles you belong to",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		circles, err := httpClient.ListCircles(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch circles: %w", err)
		}
		if len(circles) == 0 {
			fmt.Println("📚 You are not in any circle yet. Try `circlehub circle discover`.")
			return nil
		}
		printCircles(circles)
		return nil
	},
}

var circleDiscoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Browse public circles you have not joined",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		circles, err := httpClient.DiscoverCircles(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to discover circles: %w", err)
		}
		if len(circles) == 0 {
			fmt.Println("No public circles to join right now.")
			return nil
		}
		printCircles(circles)
		return nil
	},
}

func printCircles(circles []dto.CircleSummaryResponse) {
	fmt.Println("─────────────────────────────────────────────────────────")
	for _, c := range circles {
		visibility := "public"
		if c.IsPrivate {
			visibility = "private"
		}
		fmt.Printf("%s %s %s\n", bold(fmt.Sprintf("#%d", c.ID)), c.Name, faint("("+visibility+")"))
		fmt.Printf("   Members: %d\n", c.MemberCount)
		if c.MyRole != "" {
			fmt.Printf("   Role: %s", c.MyRole)
			if c.MyPoints != nil {
				fmt.Printf("   Points: %d", *c.MyPoints)
			}
			fmt.Println()
		}
		if c.InviteCode != "" {
			fmt.Printf("   Invite code: %s\n", c.InviteCode)
		}
	}
}

var circleCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Start a new circle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")
		private, _ := cmd.Flags().GetBool("private")

		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		circle, err := httpClient.CreateCircle(cmd.Context(), dto.CreateCircleRequest{
			Name:        args[0],
			Description: description,
			IsPrivate:   private,
		})
		if err != nil {
			return fmt.Errorf("failed to create circle: %w", err)
		}
		fmt.Println(success("✓ Circle created"))
		fmt.Printf("   ID: %d\n   Invite code: %s\n", circle.ID, bold(circle.InviteCode))
		return nil
	},
}

var circleShowCmd = &cobra.Command{
	Use:   "show [circle_id]",
	Short: "Show a circle and its members",
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
		detail, err := httpClient.GetCircle(cmd.Context(), circleID)
		if err != nil {
			return fmt.Errorf("failed to fetch circle: %w", err)
		}

		fmt.Printf("%s\n", bold(detail.Name))
		if detail.Description != "" {
			fmt.Println(detail.Description)
		}
		if detail.InviteCode != "" {
			fmt.Printf("Invite code: %s\n", detail.InviteCode)
		}
		fmt.Printf("\nMembers (%d)\n", len(detail.Members))
		for i, m := range detail.Members {
			fmt.Printf("%2d. %-20s %6d pts  %s\n", i+1, m.Username, m.CirclePoints, faint(m.Role))
		}
		return nil
	},
}

var circleJoinCmd = &cobra.Command{
	Use:   "join [invite_code | circle_id]",
	Short: "Join a circle by invite code, or a public circle by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}

		byID, _ := cmd.Flags().GetBool("public")
		var name string
		if byID {
			circleID, err := parseID(args[0], "circle id")
			if err != nil {
				return err
			}
			res, err := httpClient.JoinCircle(cmd.Context(), circleID)
			if err != nil {
				return fmt.Errorf("failed to join circle: %w", err)
			}
			name = res.CircleName
		} else {
			res, err := httpClient.JoinByCode(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to join circle: %w", err)
			}
			name = res.CircleName
		}
		fmt.Println(success("✓ Joined " + name))
		return nil
	},
}

var circleLeaveCmd = &cobra.Command{
	Use:   "leave [circle_id]",
	Short: "Leave a circle",
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
		if err := httpClient.LeaveCircle(cmd.Context(), circleID); err != nil {
			return fmt.Errorf("failed to leave circle: %w", err)
		}
		fmt.Println(success("✓ Left the circle"))
		return nil
	},
}

var circleDeleteCmd = &cobra.Command{
	Use:   "delete [circle_id]",
	Short: "Delete a circle you administer",
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
		if err := httpClient.DeleteCircle(cmd.Context(), circleID); err != nil {
			return fmt.Errorf("failed to delete circle: %w", err)
		}
		fmt.Println(success("✓ Circle deleted"))
		return nil
	},
}

var circleRoleCmd = &cobra.Command{
	Use:   "role [circle_id] [user_id] [admin|member]",
	Short: "Promote or demote a member",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		circleID, err := parseID(args[0], "circle id")
		if err != nil {
			return err
		}
		httpClient, err := GetAuthenticatedClient()
		if err != nil {
			return err
		}
		if err := httpClient.SetMemberRole(cmd.Context(), circleID, args[1], args[2]); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		fmt.Println(success("✓ Role updated"))
		return nil
	},
}

func init() {
	circleDiscoverCmd.Flags().Int("limit", 20, "maximum number of circles")
	circleCreateCmd.Flags().String("description", "", "circle description")
	circleCreateCmd.Flags().Bool("private", false, "only joinable with the invite code")
	circleJoinCmd.Flags().Bool("public", false, "treat the argument as a public circle id")

	circleCmd.AddCommand(circleListCmd, circleDiscoverCmd, circleCreateCmd, circleShowCmd,
		circleJoinCmd, circleLeaveCmd, circleDeleteCmd, circleRoleCmd)
}
