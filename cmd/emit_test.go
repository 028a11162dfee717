package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/nyc-design/neil-logger/pkg/logger"
	"github.com/nyc-design/neil-logger/pkg/process"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

// testApp mirrors the root command of the binary.
func testApp(configPath string, commands ...*cli.Command) *cli.Command {
	return &cli.Command{
		Name: "neil-logger",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug"},
			&cli.StringFlag{Name: "config", Value: configPath},
		},
		Commands:       commands,
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func writeSQLiteConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "logs.db")
	configPath = filepath.Join(dir, "config.toml")
	content := fmt.Sprintf("[store]\nuri = %q\ndatabase = \"logs\"\n\n[console]\ncolor = \"never\"\n", "sqlite://"+dbPath)
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return configPath, dbPath
}

func closeLogger(t *testing.T, name string) {
	t.Cleanup(func() {
		process.ResetPanicHook()
		if l, ok := logger.Get(name); ok {
			l.Close(context.Background())
		}
	})
}

func TestEmitCommandFlushesToStore(t *testing.T) {
	ctx := context.Background()
	configPath, dbPath := writeSQLiteConfig(t)
	closeLogger(t, "cmd-emit-test")

	app := testApp(configPath, EmitCommand())
	err := app.Run(ctx, []string{"neil-logger", "emit",
		"--name", "cmd-emit-test", "--run-id", "emit-run", "--level", "error",
		"disk full", "retrying"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	s, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close(ctx)

	runs, err := s.Recent(ctx, "run_logs", storage.Query{RunID: "emit-run"})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run batch, got %d", len(runs))
	}
	errs, err := s.Recent(ctx, "error_logs", storage.Query{RunID: "emit-run"})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 error batch, got %d", len(errs))
	}
}

func TestEmitCommandRejectsBadInput(t *testing.T) {
	configPath, _ := writeSQLiteConfig(t)
	app := testApp(configPath, EmitCommand())

	if err := app.Run(context.Background(), []string{"neil-logger", "emit", "--level", "loud", "x"}); err == nil {
		t.Error("expected an invalid level error")
	}
	if err := app.Run(context.Background(), []string{"neil-logger", "emit"}); err == nil {
		t.Error("expected a missing message error")
	}
}

func TestExecCommandRecordsChildOutput(t *testing.T) {
	ctx := context.Background()
	configPath, dbPath := writeSQLiteConfig(t)
	closeLogger(t, "cmd-exec-test")

	app := testApp(configPath, ExecCommand())
	err := app.Run(ctx, []string{"neil-logger", "exec",
		"--name", "cmd-exec-test", "--run-id", "exec-run",
		"--", "sh", "-c", "echo out; echo err >&2; exit 3"})
	var exitCoder cli.ExitCoder
	if !errors.As(err, &exitCoder) {
		t.Fatalf("expected an exit coder, got %v", err)
	}
	if exitCoder.ExitCode() != 3 {
		t.Errorf("exit code = %d, want 3", exitCoder.ExitCode())
	}

	s, err := storage.OpenSQLite(ctx, dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close(ctx)

	runs, err := s.Recent(ctx, "run_logs", storage.Query{RunID: "exec-run"})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run batch, got %d", len(runs))
	}
	errs, err := s.Recent(ctx, "error_logs", storage.Query{RunID: "exec-run"})
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(errs) != 1 {
		t.Fatalf("expected the failed run to be captured, got %d error batches", len(errs))
	}
}
