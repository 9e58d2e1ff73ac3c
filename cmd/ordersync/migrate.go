package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/infrastructure/migration"
)

func newMigrateCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the attempt log schema",
	}

	withMigrator := func(fn func(cmd *cobra.Command, m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root)
			if err != nil {
				return err
			}
			defer a.Close(context.WithoutCancel(ctx))

			db, err := sql.Open("postgres", a.cfg.Database.DSN())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}

			m, err := migration.New(db, a.logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := m.Close(); err != nil {
					a.logger.Warn("Error closing migrator", zap.Error(err))
				}
			}()
			return fn(cmd, m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				return m.Down()
			}),
		},
		&cobra.Command{
			Use:   "steps N",
			Short: "Apply N migrations (negative N rolls back)",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q: %w", args[0], err)
				}
				return m.Steps(n)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return err
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.Force(v)
			}),
		},
	)
	return cmd
}
