package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/db"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

// MigrateCommand creates the migrate command
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run schema migrations of a sqlite:// store",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "status",
				Usage: "Show migration status without applying migrations",
				Value: false,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return RunMigrations(ctx, os.Stdout, cfg.Store.URI, c.Bool("status"))
		},
	}
}

// RunMigrations applies pending migrations to the SQLite store at uri, or only
// reports them when statusOnly is set. Other stores have no schema to migrate.
func RunMigrations(ctx context.Context, w io.Writer, uri string, statusOnly bool) error {
	if scheme := storage.Scheme(uri); scheme != "sqlite" {
		fmt.Fprintf(w, "Store scheme %q has no schema migrations\n", scheme)
		return nil
	}
	dbPath := storage.Location(uri)
	if dbPath == "" {
		return errors.New("sqlite store URI has no path")
	}
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(w, "Database does not exist, will be created on first use: %s\n", dbPath)
		return nil
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer conn.Close()

	manager := db.NewMigrationManager(conn)
	if statusOnly {
		return showMigrationStatus(ctx, w, manager)
	}

	applied, err := manager.ApplyPendingMigrations(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	fmt.Fprintf(w, "Applied %d migrations to %s\n", applied, dbPath)
	return nil
}

// showMigrationStatus displays the current migration status
func showMigrationStatus(ctx context.Context, w io.Writer, manager *db.MigrationManager) error {
	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Applied migrations: %d\n", len(status.Applied))
	for _, migration := range status.Applied {
		appliedTime := "unknown"
		if migration.AppliedAt != nil {
			appliedTime = migration.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "  ✓ %03d: %s (applied: %s)\n", migration.Version, migration.Name, appliedTime)
	}

	fmt.Fprintf(w, "Pending migrations: %d\n", len(status.Pending))
	for _, migration := range status.Pending {
		fmt.Fprintf(w, "  • %03d: %s\n", migration.Version, migration.Name)
	}
	if len(status.Pending) == 0 {
		fmt.Fprintln(w, "  (none - database is up to date)")
	}
	return nil
}
