// Package storage writes logger documents to durable collections.
//
// A store is selected by the scheme of its connection URI:
//
//	mongodb://host:27017       MongoDB (also mongodb+srv://)
//	sqlite:///var/lib/logs.db  SQLite file
//	badger:///var/lib/logs     BadgerDB directory, or badger://memory
//	memory://                  in-process, for tests and dry runs
//
// Documents are schemaless batches. Every backend can also list recent documents
// of a collection through the Reader interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nyc-design/neil-logger/pkg/record"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported store scheme")
	ErrClosed            = errors.New("store is closed")
)

// DefaultTimeout bounds connection attempts when Config.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// DefaultLimit is used by Recent when Query.Limit is not positive.
const DefaultLimit = 20

// Store writes one document at a time to a named collection. There is no
// transactional guarantee across collections.
type Store interface {
	Insert(ctx context.Context, collection string, doc record.Document) error
	Close(ctx context.Context) error
}

// Reader lists the newest documents of a collection.
type Reader interface {
	Recent(ctx context.Context, collection string, q Query) ([]Entry, error)
}

// Query narrows Recent. An empty RunID matches every run.
type Query struct {
	RunID string
	Limit int
}

func (q Query) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// Entry is a stored document as returned by Recent. Body is the JSON form of the
// document (MongoDB returns relaxed extended JSON).
type Entry struct {
	ID         string
	Collection string
	RunID      string
	Timestamp  time.Time
	Body       []byte
}

// Config describes how to reach a store.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
	// Logger receives diagnostics from backends that have their own logging.
	Logger *slog.Logger
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

// Scheme returns the lower-cased scheme of uri, or "" when it has none.
func Scheme(uri string) string {
	scheme, _, ok := strings.Cut(uri, "://")
	if !ok {
		return ""
	}
	return strings.ToLower(scheme)
}

// Location returns what follows the scheme separator of uri: a path for sqlite
// and badger, the host list for mongodb.
func Location(uri string) string {
	_, rest, _ := strings.Cut(uri, "://")
	return rest
}

// Open connects to the store described by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Scheme(cfg.URI) {
	case "mongodb", "mongodb+srv":
		return OpenMongo(ctx, cfg)
	case "sqlite":
		path := Location(cfg.URI)
		if path == "" {
			return nil, fmt.Errorf("sqlite uri %q has no path", cfg.URI)
		}
		return OpenSQLite(ctx, path)
	case "badger":
		bcfg := DefaultBadgerConfig()
		bcfg.Database = cfg.Database
		bcfg.Logger = cfg.Logger
		if loc := Location(cfg.URI); loc == "memory" || loc == "" {
			bcfg.InMemory = true
			bcfg.SyncWrites = false
		} else {
			bcfg.Path = loc
		}
		return OpenBadger(bcfg)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, cfg.URI)
	}
}
