// AngelaMos | 2026
// migrate.go

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/iam-service/internal/core"
)

var databaseURL string

// NewMigrateCmd manages the Postgres schema. It only needs a database URL,
// so it does not require the rest of the service configuration.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres account schema",
	}

	cmd.PersistentFlags().StringVar(
		&databaseURL,
		"database-url",
		"",
		"postgres connection URL (defaults to DATABASE_URL)",
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := resolveDatabaseURL()
			if err != nil {
				return err
			}
			if err := migrateUp(url); err != nil {
				return err
			}
			cmd.Println("Migrations completed successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := resolveDatabaseURL()
			if err != nil {
				return err
			}
			return withMigrator(url, func(m *core.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			url, err := resolveDatabaseURL()
			if err != nil {
				return err
			}
			return withMigrator(url, func(m *core.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func resolveDatabaseURL() (string, error) {
	url := strings.TrimSpace(databaseURL)
	if url == "" {
		url = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	}
	if url == "" {
		return "", errors.New("DATABASE_URL or --database-url is required")
	}
	return url, nil
}

func migrateUp(url string) error {
	return withMigrator(url, func(m *core.Migrator) error {
		return m.Up()
	})
}

func withMigrator(url string, fn func(m *core.Migrator) error) (err error) {
	m, err := core.NewMigrator(url)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer func() {
		err = errors.Join(err, m.Close())
	}()

	return fn(m)
}
