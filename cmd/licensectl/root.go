package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/templatestore/license-service/internal/config"
	"github.com/templatestore/license-service/internal/storage/postgres"
	"github.com/templatestore/license-service/pkg/logger"
	"go.uber.org/zap"
)

// app holds state shared by subcommands. Config is loaded once, before any
// subcommand runs.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "licensectl",
		Short:         "Administrative tooling for the license service",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to configuration file")

	rootCmd.AddCommand(newAPIKeyCommand(a))
	rootCmd.AddCommand(newLicenseCommand(a))
	rootCmd.AddCommand(newTokenCommand(a))

	return rootCmd
}

func (a *app) load() error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.NewZapLogger("licensectl", cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = log
	return nil
}

func (a *app) pool(ctx context.Context) (*pgxpool.Pool, error) {
	if a.cfg.Database.URL == "" {
		return nil, fmt.Errorf("database.url is required (DATABASE_URL)")
	}
	return postgres.NewPgxPool(ctx, &a.cfg.Database, a.logger)
}
