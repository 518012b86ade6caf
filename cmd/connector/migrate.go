package main

import (
	"fmt"

	"github.com/DanielPopoola/pay-connector/db"
	"github.com/DanielPopoola/pay-connector/internal/infrastructure/persistence"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL schema migrations",
		Long: `Apply every migration under db/migrations that has not been recorded in
schema_migrations yet. The bolt storage driver needs no migrations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}

			database, err := persistence.Connect(cmd.Context(), &cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer database.Close()

			if err := database.Migrate(cmd.Context(), db.Migrations); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
