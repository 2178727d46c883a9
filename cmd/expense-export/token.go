package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"expensetracker/internal/middleware/auth"
)

func newTokenCmd(a *app) *cobra.Command {
	var (
		owner int64
		email string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the HTTP API (development only)",
		Long: `Token signs a short-lived HS256 token carrying the owner id, using the
JWT secret from --config or EXPENSES_JWT_SECRET. The server must run with the
same secret in JWT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.config.JWTSecret == "" {
				return errors.New("no JWT secret configured: set EXPENSES_JWT_SECRET or jwt_secret in the config file")
			}
			if owner <= 0 {
				return errors.New("--owner must be a positive id")
			}
			tok, err := auth.IssueToken(a.config.JWTSecret, owner, email, ttl, timeNow())
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().Int64Var(&owner, "owner", 0, "owner (user) id to embed")
	cmd.Flags().StringVar(&email, "email", "", "optional email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
