package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nyc-design/neil-logger/pkg/logger"
)

// ExecCommand creates the exec command
func ExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Run a command, logging its stdout as INFO and its stderr as WARNING",
		ArgsUsage: "-- COMMAND [ARGS...]",
		Flags:     loggerFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			return execCommand(ctx, c)
		},
	}
}

// execCommand runs the child under the error capturer so a failed run is
// recorded with its cause. A non-zero child status becomes this process's
// status.
func execCommand(ctx context.Context, c *cli.Command) error {
	args := c.Args().Slice()
	if len(args) == 0 {
		return errors.New("a command is required")
	}

	l, err := openLogger(ctx, c)
	if err != nil {
		return err
	}

	_, runErr := logger.Call(l.CaptureErrors(false), filepath.Base(args[0]), func() (struct{}, error) {
		return struct{}{}, runChild(ctx, l, args)
	})
	flushErr := l.Flush(ctx)

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return cli.Exit("", exitErr.ExitCode())
	}
	if runErr != nil {
		return runErr
	}
	if flushErr != nil {
		return fmt.Errorf("flushing: %w", flushErr)
	}
	return nil
}

const maxLineSize = 1024 * 1024

// lineSink receives one line of child output.
type lineSink func(line string)

func runChild(ctx context.Context, l *logger.Logger, args []string) error {
	child := exec.CommandContext(ctx, args[0], args[1:]...)
	stdout, err := child.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := child.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}
	if err := child.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", args[0], err)
	}

	var g errgroup.Group
	g.Go(func() error { return pipeLines(stdout, l.Info) })
	g.Go(func() error { return pipeLines(stderr, l.Warning) })
	pipeErr := g.Wait()

	// Wait only after the pipes are drained.
	if err := child.Wait(); err != nil {
		return err
	}
	if pipeErr != nil {
		return fmt.Errorf("reading output of %s: %w", args[0], pipeErr)
	}
	return nil
}

// pipeLines feeds each line of r to sink. When a line exceeds maxLineSize the
// rest of r is discarded so the writer never blocks on a full pipe.
func pipeLines(r io.Reader, sink lineSink) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		sink(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
