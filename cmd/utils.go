package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/config"
	"github.com/nyc-design/neil-logger/pkg/logger"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

// loggerFlags are shared by the commands that log.
func loggerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "name",
			Usage: "Logical name of the logger (defaults to the configured name)",
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run identifier (defaults to the configured or generated one)",
		},
	}
}

// loadConfig reads the configuration file and applies command-line overrides.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if name := c.String("name"); name != "" {
		cfg.Name = name
	}
	if runID := c.String("run-id"); runID != "" {
		cfg.RunID = runID
	}
	return cfg, nil
}

// openLogger builds the logger for a command and installs it as the handler
// for failures that escape the command.
func openLogger(ctx context.Context, c *cli.Command, opts ...func(*logger.Options)) (*logger.Logger, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	l, err := logger.Open(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening logger: %w", err)
	}
	l.EnableGlobalExceptionHook()

	if c.Bool("debug") {
		fmt.Fprintf(os.Stderr, "logger=%s run_id=%s store=%s database=%s\n",
			l.Name(), l.RunID(), storage.Scheme(cfg.Store.URI), cfg.Store.Database)
	}
	return l, nil
}

// openReader opens the configured store for listing documents.
func openReader(ctx context.Context, cfg *config.Config) (storage.Reader, func(), error) {
	store, err := storage.Open(ctx, storage.Config{
		URI:      cfg.Store.URI,
		Database: cfg.Store.Database,
		Timeout:  cfg.Store.Timeout.Duration,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	closeStore := func() {
		if err := store.Close(context.Background()); err != nil {
			fmt.Printf("Warning: failed to close store: %v\n", err)
		}
	}

	reader, ok := store.(storage.Reader)
	if !ok {
		closeStore()
		return nil, nil, fmt.Errorf("store %s cannot list documents", storage.Scheme(cfg.Store.URI))
	}
	return reader, closeStore, nil
}
