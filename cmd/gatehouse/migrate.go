// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/gatehouse/internal/store"
)

// schemaMigrator is the subset of store.Migrator used by the migrate
// commands.
type schemaMigrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

// openMigrator is replaced in tests.
var openMigrator = func(databaseURL string) (schemaMigrator, error) {
	return store.NewMigrator(databaseURL) //nolint:wrapcheck // already coded
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
		Long: `Apply, roll back and inspect the schema migrations embedded in the
binary against the PostgreSQL database named by database.url.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL URL (overrides config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateUp,
		},
		newMigrateDownCmd(),
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigrateStatus,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE:  runMigrateVersion,
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied and clear the dirty flag",
			Long: `Record VERSION as the current schema version without running any
migration. Use it to recover from a failed migration after fixing the schema
by hand.`,
			Args: cobra.ExactArgs(1),
			RunE: runMigrateForce,
		},
	)
	return cmd
}

func newMigrateDownCmd() *cobra.Command {
	var confirmed bool
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return oops.Code("CONFIRMATION_REQUIRED").
					Errorf("migrate down drops every table; re-run with --yes to confirm")
			}
			return withMigrator(cmd, func(m schemaMigrator) error {
				cmd.Println("Rolling back migrations...")
				if err := m.Down(); err != nil {
					return err //nolint:wrapcheck // already coded
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm dropping all tables")
	return cmd
}

// getDatabaseURL resolves database.url from config, env and flags.
func getDatabaseURL(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", oops.Code("CONFIG_INVALID").
			Errorf("database.url is required (set DATABASE_URL, GATEHOUSE_DATABASE__URL or --database-url)")
	}
	return cfg.Database.URL, nil
}

func withMigrator(cmd *cobra.Command, fn func(m schemaMigrator) error) error {
	databaseURL, err := getDatabaseURL(cmd)
	if err != nil {
		return err
	}
	m, err := openMigrator(databaseURL)
	if err != nil {
		return err
	}

	runErr := fn(m)
	if closeErr := m.Close(); closeErr != nil && runErr == nil {
		return closeErr //nolint:wrapcheck // already coded
	}
	return runErr
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m schemaMigrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err //nolint:wrapcheck // already coded
		}
		version, _, err := m.Version()
		if err != nil {
			return err //nolint:wrapcheck // already coded
		}
		cmd.Printf("Migrations completed successfully (version %d)\n", version)
		return nil
	})
}

func runMigrateStatus(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m schemaMigrator) error {
		status, err := m.Status()
		if err != nil {
			return err //nolint:wrapcheck // already coded
		}

		cmd.Printf("Current version: %d", status.Current)
		if status.Dirty {
			cmd.Print(" (dirty)")
		}
		cmd.Println()
		for _, mig := range status.Applied {
			cmd.Printf("  [applied] %s\n", mig.Name)
		}
		for _, mig := range status.Pending {
			cmd.Printf("  [pending] %s\n", mig.Name)
		}
		if len(status.Pending) == 0 {
			cmd.Println("Schema is up to date")
		}
		return nil
	})
}

func runMigrateVersion(cmd *cobra.Command, _ []string) error {
	return withMigrator(cmd, func(m schemaMigrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err //nolint:wrapcheck // already coded
		}
		if dirty {
			cmd.Printf("%d (dirty)\n", version)
			return nil
		}
		cmd.Printf("%d\n", version)
		return nil
	})
}

func runMigrateForce(cmd *cobra.Command, args []string) error {
	version, err := parseForceVersion(args[0])
	if err != nil {
		return err
	}
	return withMigrator(cmd, func(m schemaMigrator) error {
		if err := m.Force(version); err != nil {
			return err //nolint:wrapcheck // already coded
		}
		cmd.Printf("Forced schema version to %d\n", version)
		return nil
	})
}

// parseForceVersion parses a non-negative schema version.
func parseForceVersion(s string) (int, error) {
	version, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrapf(err, "version must be an integer")
	}
	if version < 0 {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be non-negative, got %d", version)
	}
	return version, nil
}
