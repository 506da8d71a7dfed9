package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pusharc/pkg/auth"
	"pusharc/pkg/ui"
)

var loginToken string

// authCmd groups API token management commands
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Pushshift API token",
	Long: `Manage the API token used for Pushshift requests.

The token is stored in the system keychain when one is available. On
headless machines, export ` + auth.TokenEnvVar + ` instead. Without a token,
requests are made anonymously.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		runAuthLogin()
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		runAuthLogout()
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API token is stored",
	RunE: func(cmd *cobra.Command, args []string) error {
		runAuthStatus()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)

	authLoginCmd.Flags().StringVar(&loginToken, "token", "", "API token (prompted for when omitted)")
}

func runAuthLogin() {
	token := strings.TrimSpace(loginToken)

	if token == "" {
		var err error
		token, err = promptForToken()
		if err != nil {
			ui.PrintError("Failed to read token", err.Error())
			os.Exit(1)
		}
	}

	if token == "" {
		ui.PrintError("No token provided")
		os.Exit(1)
	}

	storeName, err := auth.NewManager().Store(token)
	if err != nil {
		if errors.Is(err, auth.ErrReadOnlyStore) {
			ui.PrintError("No writable token store available")
			fmt.Printf("\nOn this system, export the token instead:\n  export %s=your_token\n", auth.TokenEnvVar)
			os.Exit(1)
		}
		ui.PrintError("Failed to store token", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("API token stored in " + storeName)
}

func runAuthLogout() {
	if err := auth.NewManager().Delete(); err != nil {
		if errors.Is(err, auth.ErrTokenNotFound) {
			ui.PrintWarning("No API token was stored")
			return
		}
		ui.PrintError("Failed to remove token", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("API token removed")
}

func runAuthStatus() {
	token, err := auth.NewManager().Retrieve()
	if err != nil {
		ui.PrintInfo("API token", "not stored (requests are anonymous)")
		return
	}

	ui.PrintInfo("API token", maskToken(token))
}

// promptForToken reads the token without echoing when stdin is a terminal
func promptForToken() (string, error) {
	fmt.Print("API token: ")

	if term.IsTerminal(int(syscall.Stdin)) {
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(tokenBytes)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// maskToken shows only the edges of a token
func maskToken(token string) string {
	if len(token) <= 8 {
		return "stored (****)"
	}
	return fmt.Sprintf("stored (%s...%s)", token[:4], token[len(token)-4:])
}
