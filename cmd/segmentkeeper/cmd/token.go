package cmd

import (
	"fmt"
	"time"

	"github.com/solatis/segmentkeeper/internal/core/auth"
	"github.com/solatis/segmentkeeper/internal/core/config"
	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a development bearer token signed with SK_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		email, _ := cmd.Flags().GetString("email")
		admin, _ := cmd.Flags().GetBool("admin")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		secrets, err := config.LoadSecrets(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
		key, err := secrets.JWTKey()
		if err != nil {
			return err
		}

		role := 0
		if admin {
			role = auth.RoleAdmin
		}

		token, err := auth.IssueToken(key, auth.Principal{ID: id, Role: role, Email: email}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("id", "dev-user", "principal id claim")
	tokenCmd.Flags().String("email", "", "principal email claim")
	tokenCmd.Flags().Bool("admin", false, "grant the admin role")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
}
