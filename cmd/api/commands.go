package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"safetyagent/internal/config"
	"safetyagent/internal/database"
	"safetyagent/internal/database/migration"
	"safetyagent/internal/logger"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "safetyagent",
		Short:        "Safety back-office proposal and approval service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrateUpCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(cmd.Context(), func(db *sql.DB, log *zap.Logger) error {
				return migration.Up(db, log)
			})
		},
	}
	migrateDownCmd := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withDatabase(cmd.Context(), func(db *sql.DB, log *zap.Logger) error {
				return migration.Down(db, steps, log)
			})
		},
	}

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	root.AddCommand(serveCmd, migrateCmd)
	return root
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.AppConfig, *zap.Logger, error) {
	cfg := config.Load()
	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// withDatabase runs fn against a fresh connection pool and closes it afterwards.
func withDatabase(ctx context.Context, fn func(db *sql.DB, log *zap.Logger) error) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Error("database_connect_failed", zap.Error(err))
		return err
	}
	defer db.Close()

	return fn(db, log)
}
