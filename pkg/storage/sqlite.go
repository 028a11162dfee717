package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/nyc-design/neil-logger/pkg/db"
	"github.com/nyc-design/neil-logger/pkg/record"
)

// SQLite stores documents as JSON rows of a single documents table.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending schema migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA temp_store = memory",
	}
	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", pragma, err)
		}
	}

	if err := db.InitializeDatabase(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &SQLite{db: conn, path: path}, nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) Insert(ctx context.Context, collection string, doc record.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, collection, run_id, created_at, body)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), collection, doc.DocumentRunID(), doc.DocumentTime().UTC().UnixNano(), string(body))
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, collection string, q Query) ([]Entry, error) {
	var (
		where strings.Builder
		args  = []any{collection}
	)
	where.WriteString("collection = ?")
	if q.RunID != "" {
		where.WriteString(" AND run_id = ?")
		args = append(args, q.RunID)
	}
	args = append(args, q.limit())

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, run_id, created_at, body
		FROM documents
		WHERE `+where.String()+`
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e     Entry
			nanos int64
			body  string
		)
		if err := rows.Scan(&e.ID, &e.Collection, &e.RunID, &nanos, &body); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		e.Timestamp = time.Unix(0, nanos).UTC()
		e.Body = []byte(body)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLite) Close(ctx context.Context) error {
	return s.db.Close()
}
