package cmd

import (
	"fmt"
	"os"

	"github.com/pageturn/chat/internal/directory"
	"github.com/spf13/cobra"
)

var tokenAdmin bool

var tokenCmd = &cobra.Command{
	Use:   "token <userId>",
	Short: "Mint a bearer token for local development",
	Long: `Mints a signed bearer token for the given user id using the
JWT_SECRET environment variable. Intended for local development against a
server running with the same secret; production tokens come from the
platform's auth service.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" {
			return fmt.Errorf("JWT_SECRET is not set")
		}

		token, err := directory.SignToken([]byte(secret), directory.Identity{
			UserID:  args[0],
			IsAdmin: tokenAdmin,
		})
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenAdmin, "admin", false, "mark the identity as a platform admin")
	rootCmd.AddCommand(tokenCmd)
}
