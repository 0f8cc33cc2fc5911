package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/templatestore/license-service/internal/service"
	"github.com/templatestore/license-service/internal/storage/postgres"
)

func newAPIKeyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys for administrative endpoints",
	}

	var description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key and print it once",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			keys := service.NewAPIKeyService(postgres.NewAPIKeyRepository(pool, a.logger), a.logger)
			created, err := keys.CreateAPIKey(cmd.Context(), description)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Generated API Key (SAVE THIS securely!):\n%s\n\n", created.Key)
			fmt.Fprintf(out, "ID:     %s\n", created.ID)
			fmt.Fprintf(out, "Prefix: %s\n", created.Prefix)
			return nil
		},
	}
	create.Flags().StringVar(&description, "description", "admin key", "Human readable key description")

	cmd.AddCommand(create)
	return cmd
}
