package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"phaengine/adapters/db/postgres/migrations"
	"phaengine/adapters/sqlite"
	"phaengine/internal"
	"phaengine/internal/config"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "phaengine-migrate",
		Short: "Manage the workspace store schema",
		Long: `Run database schema migrations against the configured store.

DATABASE_URL selects PostgreSQL; otherwise SQLITE_PATH selects SQLite.`,
	}

	rootCmd.AddCommand(
		newActionCmd("up", "Apply all pending migrations"),
		newActionCmd("down", "Rollback the last migration"),
		newActionCmd("status", "Show migration status"),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), action)
		},
	}
}

func runMigrations(ctx context.Context, action string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	var (
		driver, dsn string
		dialect     migrations.Dialect
		files       fs.FS
	)
	switch {
	case cfg.Storage.DatabaseURL != "":
		driver, dsn, dialect, files = "postgres", cfg.Storage.DatabaseURL, migrations.Postgres, migrations.PostgresFiles()
	case cfg.Storage.SQLitePath != "":
		driver, dsn, dialect, files = "sqlite", cfg.Storage.SQLitePath, migrations.SQLite, sqlite.Files()
	default:
		return fmt.Errorf("DATABASE_URL or SQLITE_PATH is required")
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, dialect, files, logger)
	out := os.Stdout

	switch action {
	case "up":
		applied, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(out, "Database is up to date")
		}
		for _, v := range applied {
			fmt.Fprintf(out, "applied %s\n", v)
		}
	case "down":
		version, err := migrator.Down(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "rolled back %s\n", version)
	case "status":
		status, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		for _, s := range status {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			if s.Drifted {
				state += " (checksum drift)"
			}
			fmt.Fprintf(out, "%s  %-24s %s\n", s.Version, s.Name, state)
		}
	default:
		return fmt.Errorf("unknown migration action: %s", action)
	}
	return nil
}
