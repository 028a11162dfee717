package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nyc-design/neil-logger/pkg/storage"
)

func TestRunMigrationsSkipsOtherStores(t *testing.T) {
	var out bytes.Buffer
	if err := RunMigrations(context.Background(), &out, "mongodb://localhost:27017", false); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if !strings.Contains(out.String(), `"mongodb" has no schema migrations`) {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunMigrationsMissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs.db")
	var out bytes.Buffer
	if err := RunMigrations(context.Background(), &out, "sqlite://"+path, false); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if !strings.Contains(out.String(), "will be created on first use") {
		t.Errorf("unexpected output: %s", out.String())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("database should not have been created")
	}
}

func TestRunMigrationsApplyThenStatus(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "logs.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	uri := "sqlite://" + path

	var out bytes.Buffer
	if err := RunMigrations(ctx, &out, uri, true); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "Applied migrations: 0") {
		t.Errorf("unexpected status before applying:\n%s", out.String())
	}

	out.Reset()
	if err := RunMigrations(ctx, &out, uri, false); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out.String(), "Applied 2 migrations") {
		t.Errorf("unexpected apply output: %s", out.String())
	}

	out.Reset()
	if err := RunMigrations(ctx, &out, uri, true); err != nil {
		t.Fatalf("status: %v", err)
	}
	for _, want := range []string{"Applied migrations: 2", "001: create_documents", "Pending migrations: 0", "up to date"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("status missing %q:\n%s", want, out.String())
		}
	}

	// The migrated file is usable as a store.
	s, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s.Close(ctx)
}
