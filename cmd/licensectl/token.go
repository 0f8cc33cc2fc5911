package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/templatestore/license-service/internal/service"
)

func newTokenCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Bearer token helpers for local development",
	}

	var (
		userID string
		email  string
	)
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Sign a bearer token for a user id with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user %q: %w", userID, err)
			}

			auth, err := service.NewAuthService(&a.cfg.Auth, a.logger)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(id, email, time.Now())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	mint.Flags().StringVar(&userID, "user", "", "User id placed in the subject claim")
	mint.Flags().StringVar(&email, "email", "", "Optional email claim")
	_ = mint.MarkFlagRequired("user")

	cmd.AddCommand(mint)
	return cmd
}
