package command

import (
	"fmt"
	"strings"
	"time"

	"circlehub/cmd/cli/authentication"

	"github.com/spf13/cobra"
)

// Accounts live with the identity provider; the CLI only keeps its token.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored access token",
}

var authTokenCmd = &cobra.Command{
	Use:   "token [jwt]",
	Short: "Store an access token issued by the identity provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		creds := &authentication.StoredCredentials{
			AccessToken: strings.TrimSpace(args[0]),
			Username:    username,
			SavedAt:     time.Now().UTC(),
		}
		if err := authentication.StoreTokens(creds); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
		fmt.Println(success("✓ Token saved"))
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether a token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := authentication.GetTokens()
		if err != nil {
			fmt.Println("Not logged in")
			return nil
		}
		who := creds.Username
		if who == "" {
			who = "unknown user"
		}
		fmt.Printf("Logged in as %s %s\n", bold(who), faint("(saved "+creds.SavedAt.Format("2006-01-02 15:04")+")"))
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authentication.DeleteTokens(); err != nil {
			return err
		}
		fmt.Println(success("✓ Successfully logged out."))
		return nil
	},
}

func init() {
	authTokenCmd.Flags().String("username", "", "name to show in `auth status`")
	authCmd.AddCommand(authTokenCmd, authStatusCmd, authLogoutCmd)
}
