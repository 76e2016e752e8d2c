package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

func newMigrateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := persistence.RunMigrations(a.cfg.Postgres.URL, a.cfg.Postgres.MigrationsPath); err != nil {
				return err
			}
			return printVersion(cmd, a)
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1")
			}
			if err := persistence.RollbackMigrations(a.cfg.Postgres.URL, a.cfg.Postgres.MigrationsPath, steps); err != nil {
				return err
			}
			return printVersion(cmd, a)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd, a)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, a *app) error {
	version, dirty, err := persistence.MigrationVersion(a.cfg.Postgres.URL, a.cfg.Postgres.MigrationsPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
	return nil
}
