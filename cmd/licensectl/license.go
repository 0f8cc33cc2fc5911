package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/metrics"
	"github.com/templatestore/license-service/internal/service"
	"github.com/templatestore/license-service/internal/storage/postgres"
)

func newLicenseCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Inspect and administer licenses",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set-status <license-id> <ACTIVE|EXPIRED|SUSPENDED|REVOKED>",
		Short: "Change the status of a license",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid license id %q: %w", args[0], err)
			}
			status := license.LicenseStatus(strings.ToUpper(args[1]))

			pool, err := a.pool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			licenses := service.NewLicenseService(
				postgres.NewLicenseRepository(pool, a.logger),
				postgres.NewOrderRepository(pool, a.logger),
				postgres.NewTemplateRepository(pool, a.logger),
				a.cfg.Licenses.PurchaseMethod,
				metrics.NewNop(),
				a.logger,
			)
			lic, err := licenses.UpdateLicenseStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "License %s is now %s\n", lic.ID, lic.Status)
			return nil
		},
	})

	return cmd
}
