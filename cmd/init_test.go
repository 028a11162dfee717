package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nyc-design/neil-logger/pkg/config"
)

func TestInitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neil-logger", "config.toml")

	if err := initConfig(path, false); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("loading written config: %v", err)
	}
	if cfg.Store.URI != config.DefaultStoreURI {
		t.Errorf("store uri = %q, want %q", cfg.Store.URI, config.DefaultStoreURI)
	}

	if err := os.WriteFile(path, []byte("name = \"mine\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err = initConfig(path, false)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "name = \"mine\"\n" {
		t.Fatal("existing config was overwritten")
	}

	if err := initConfig(path, true); err != nil {
		t.Fatalf("initConfig with force: %v", err)
	}
	data, _ = os.ReadFile(path)
	if !strings.Contains(string(data), "[store]") {
		t.Fatal("forced init did not write the template")
	}
}
