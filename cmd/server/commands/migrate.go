package commands

import (
	"database/sql"
	"fmt"
	"strconv"

	"retroboard/internal/config"
	"retroboard/internal/migrations"
	"retroboard/internal/server"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB) error {
			if err := migrations.Up(db); err != nil {
				return fail("Migration failed", err)
			}
			success(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [STEPS]",
	Short: "Roll back migrations (one step by default)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fail("STEPS must be a positive number", err)
			}
			steps = n
		}
		return withDB(func(db *sql.DB) error {
			if err := migrations.Down(db, steps); err != nil {
				return fail("Rollback failed", err)
			}
			success(cmd.OutOrStdout(), "Rolled back %d migration(s)", steps)
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *sql.DB) error {
			version, dirty, err := migrations.Version(db)
			if err != nil {
				return fail("Failed to read schema version", err)
			}
			out := cmd.OutOrStdout()
			if version == 0 {
				warning(out, "No migrations applied")
				return nil
			}
			if dirty {
				warning(out, "Schema version %d (dirty)", version)
				return nil
			}
			success(out, "Schema version %d", version)
			return nil
		})
	},
}

var migrateFilesCmd = &cobra.Command{
	Use:   "files",
	Short: "List the bundled migration files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := migrations.Files()
		if err != nil {
			return fail("Failed to list migrations", err)
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func withDB(fn func(db *sql.DB) error) error {
	cfg := config.Load()
	gdb, err := server.OpenDB(cfg)
	if err != nil {
		return fail("Failed to connect to database", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return fail("Failed to get database handle", err)
	}
	defer sqlDB.Close()
	return fn(sqlDB)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd, migrateFilesCmd)
	rootCmd.AddCommand(migrateCmd)
}
