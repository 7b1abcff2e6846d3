package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
)

var rootCmd = &cobra.Command{
	Use:   "chatctl",
	Short: "chatctl is a command-line client for the club chat server",
	Long: `chatctl talks to a running club chat server.

Available commands:
  history    Fetch a club's message history
  token      Mint a bearer token for local development

Use "chatctl [command] --help" for more information about a specific command.`,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the chat server")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for authentication")
}
