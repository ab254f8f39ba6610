package command

// root.go defines the root command and the global flags.

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"circlehub/cmd/cli/authentication"
	"circlehub/cmd/cli/command/client"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	apiURL string // API server URL
	token  string // overrides the stored token when set
)

var rootCmd = &cobra.Command{
	Use:   "circlehub",
	Short: "circlehub - reading circles from the terminal",
	Long: `circlehub talks to the reading circle API. With it you can:
- create, discover and join reading circles
- run group challenges and record your progress
- check leaderboards, the activity feed and your reading streak

Sign in with your identity provider and store the access token with
"circlehub auth token <jwt>" before using the other commands.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "✗", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("CIRCLEHUB_API", "http://localhost:8080"), "API server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token (defaults to the one stored by `auth token`)")

	rootCmd.AddCommand(authCmd, circleCmd, challengeCmd, progressCmd, statsCmd)
}

// GetAuthenticatedClient returns a client carrying the flag token or the
// stored one.
func GetAuthenticatedClient() (*client.HTTPClient, error) {
	httpClient := client.NewHTTPClient(apiURL)
	if token != "" {
		httpClient.SetToken(token)
		return httpClient, nil
	}

	creds, err := authentication.GetTokens()
	if errors.Is(err, authentication.ErrNoCredentials) {
		return nil, client.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("read stored token: %w", err)
	}
	httpClient.SetToken(creds.AccessToken)
	return httpClient, nil
}

func parseID(raw, label string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", label, raw)
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var (
	success = color.New(color.FgGreen).SprintFunc()
	bold    = color.New(color.Bold).SprintFunc()
	faint   = color.New(color.FgHiBlack).SprintFunc()
)
