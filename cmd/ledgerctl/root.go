package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vtu-wallet-ledger/internal/config"
	"github.com/vtu-wallet-ledger/internal/logger"
	"github.com/vtu-wallet-ledger/internal/platform/persistence"
)

const (
	flagConfig         = "config"
	flagPostgresURL    = "postgres-url"
	flagMigrationsPath = "migrations-path"
	flagLogLevel       = "log-level"
)

// app is filled in by the root command before any subcommand runs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operate the VTU wallet ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagConfig, "", "path to a .env or yaml config file")
	flags.String(flagPostgresURL, "", "PostgreSQL connection string (overrides POSTGRES_URL)")
	flags.String(flagMigrationsPath, "", "migrations directory (overrides POSTGRES_MIGRATIONS_PATH)")
	flags.String(flagLogLevel, "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newMigrateCommand(a),
		newPlatformCommand(a),
		newAuditCommand(a),
		newFlowsCommand(a),
		newPurchasesCommand(a),
	)
	return cmd
}

// load layers defaults, the optional config file, the environment and finally flags.
func (a *app) load(cmd *cobra.Command) error {
	v := config.NewViper()

	path, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}
	v.AutomaticEnv()

	if err := bindFlags(v, cmd, map[string]string{
		"POSTGRES_URL":             flagPostgresURL,
		"POSTGRES_MIGRATIONS_PATH": flagMigrationsPath,
		"LOG_LEVEL":                flagLogLevel,
	}); err != nil {
		return err
	}

	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger.NewLogger(cfg)
	return nil
}

// bindFlags lets a flag override its key only when the flag was actually set.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q", name)
		}
		if flag.Changed {
			v.Set(key, flag.Value.String())
		}
	}
	return nil
}

func (a *app) openPostgres(ctx context.Context) (*persistence.PostgresDB, error) {
	db, err := persistence.NewPostgresDB(ctx, a.logger, &a.cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return db, nil
}
