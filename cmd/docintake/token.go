package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintake/internal/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token [subject]",
	Short: "Mint a bearer token signed with AUTH_JWT_SECRET",
	Long: `Issue an HS256 token the API accepts. Intended for operators and local
testing; production tokens normally come from the identity service that shares
the secret.`,
	Example: `  docintake token admin-1 --role admin --email ops@example.org
  docintake token viewer-7 --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		email, _ := cmd.Flags().GetString("email")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		disabled, _ := cmd.Flags().GetBool("disabled")
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		issuer, err := auth.NewIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer, ttl)
		if err != nil {
			return err
		}
		tok, err := issuer.Issue(args[0], email, role, !disabled)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("role", auth.RoleUser, "admin or user")
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (default: AUTH_TOKEN_TTL)")
	tokenCmd.Flags().Bool("disabled", false, "mark the account as disabled")
}
