package persistence

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every pending up migration from migrationsPath.
func RunMigrations(databaseURL string, migrationsPath string) error {
	return withMigrator(databaseURL, migrationsPath, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		return nil
	})
}

// RollbackMigrations reverts the last steps migrations.
func RollbackMigrations(databaseURL string, migrationsPath string, steps int) error {
	if steps <= 0 {
		return errors.New("rollback steps must be greater than 0")
	}
	return withMigrator(databaseURL, migrationsPath, func(m *migrate.Migrate) error {
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to roll back migrations: %w", err)
		}
		return nil
	})
}

// MigrationVersion returns the applied schema version and whether it is dirty.
func MigrationVersion(databaseURL string, migrationsPath string) (version uint, dirty bool, err error) {
	err = withMigrator(databaseURL, migrationsPath, func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}

func withMigrator(databaseURL, migrationsPath string, fn func(m *migrate.Migrate) error) error {
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	runErr := fn(m)

	sourceErr, dbErr := m.Close()
	if runErr != nil {
		return runErr
	}
	if sourceErr != nil {
		return fmt.Errorf("migration source error: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database error: %w", dbErr)
	}
	return nil
}
