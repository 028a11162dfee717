package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/nyc-design/neil-logger/pkg/config"
	"github.com/nyc-design/neil-logger/pkg/console"
	"github.com/nyc-design/neil-logger/pkg/process"
	"github.com/nyc-design/neil-logger/pkg/runid"
	"github.com/nyc-design/neil-logger/pkg/storage"
	"github.com/nyc-design/neil-logger/pkg/tracker"
	"github.com/nyc-design/neil-logger/pkg/version"
)

var (
	stores          = storage.NewManager()
	closeStoresOnce sync.Once
)

// Open builds a logger from configuration: the store is opened through a shared
// storage.Manager (closed at process exit, after the loggers have flushed) and a
// Sentry tracker is created when a DSN is configured. Each option is applied to
// the derived Options before the logger is created.
func Open(ctx context.Context, cfg *config.Config, opts ...func(*Options)) (*Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	console.SetColor(cfg.ColorMode())

	name := cfg.Name
	if name == "" {
		name = runid.DefaultName()
	}
	if l, ok := Get(name); ok {
		return l, nil
	}

	store, err := stores.GetStore(ctx, storage.Config{
		URI:      cfg.Store.URI,
		Database: cfg.Store.Database,
		Timeout:  cfg.Store.Timeout.Duration,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	if err != nil {
		return nil, err
	}
	closeStoresOnce.Do(func() {
		process.OnExit("close stores", stores.Close)
	})

	o := Options{
		Name:            name,
		RunID:           cfg.RunID,
		LogCollection:   cfg.Store.LogCollection,
		ErrorCollection: cfg.Store.ErrorCollection,
		Store:           store,
		FlushTimeout:    cfg.Store.Timeout.Duration,
	}
	if cfg.SentryDSN != "" {
		t, err := tracker.NewSentry(tracker.SentryOptions{
			DSN:     cfg.SentryDSN,
			Release: "neil-logger@" + version.Version,
		})
		if err != nil {
			return nil, err
		}
		o.Tracker = t
	}
	for _, opt := range opts {
		opt(&o)
	}

	return New(o)
}
