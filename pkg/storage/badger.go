package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// BadgerConfig holds configuration for a BadgerDB document store.
type BadgerConfig struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Database namespaces keys so several logical databases can share a directory.
	Database string

	// Logger receives BadgerDB's own logging. If nil, it is discarded.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns durable defaults.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{SyncWrites: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Badger stores each document under "<database>/<collection>/<unix-nanos>/<uuid>"
// with a zstd-compressed JSON value, so a reverse prefix scan yields the newest
// documents first.
type Badger struct {
	db       *badger.DB
	database string
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

// OpenBadger opens the database described by cfg.
func OpenBadger(cfg BadgerConfig) (*Badger, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		bdb.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = "default"
	}
	return &Badger{db: bdb, database: database, enc: enc, dec: dec}, nil
}

func (b *Badger) prefix(collection string) []byte {
	return []byte(b.database + "/" + collection + "/")
}

func (b *Badger) key(collection string, ts time.Time) []byte {
	return append(b.prefix(collection), fmt.Sprintf("%020d/%s", ts.UTC().UnixNano(), uuid.NewString())...)
}

func (b *Badger) Insert(ctx context.Context, collection string, doc record.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	value := b.enc.EncodeAll(body, nil)
	key := b.key(collection, doc.DocumentTime())

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("writing to %s: %w", collection, err)
	}
	return nil
}

// documentHeader is the part of a stored document Recent needs for filtering.
type documentHeader struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (b *Badger) Recent(ctx context.Context, collection string, q Query) ([]Entry, error) {
	prefix := b.prefix(collection)
	var entries []Entry

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, prefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(entries) < q.limit(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			compressed, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("reading %s: %w", item.Key(), err)
			}
			body, err := b.dec.DecodeAll(compressed, nil)
			if err != nil {
				return fmt.Errorf("decompressing %s: %w", item.Key(), err)
			}
			var header documentHeader
			if err := json.Unmarshal(body, &header); err != nil {
				return fmt.Errorf("decoding %s: %w", item.Key(), err)
			}
			if q.RunID != "" && header.RunID != q.RunID {
				continue
			}
			entries = append(entries, Entry{
				ID:         string(item.KeyCopy(nil)[len(prefix):]),
				Collection: collection,
				RunID:      header.RunID,
				Timestamp:  header.Timestamp,
				Body:       body,
			})
		}
		return nil
	})
	if errors.Is(err, badger.ErrDBClosed) {
		return nil, ErrClosed
	}
	return entries, err
}

func (b *Badger) Close(ctx context.Context) error {
	b.enc.Close()
	b.dec.Close()
	return b.db.Close()
}
