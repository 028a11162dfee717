package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/nyc-design/neil-logger/pkg/logger"
	"github.com/nyc-design/neil-logger/pkg/metrics"
	"github.com/nyc-design/neil-logger/pkg/record"
	"github.com/nyc-design/neil-logger/pkg/scheduler"
)

// FollowCommand creates the follow command
func FollowCommand() *cli.Command {
	return &cli.Command{
		Name:      "follow",
		Usage:     "Log lines appended to a file, flushing periodically",
		ArgsUsage: "FILE",
		Flags: append(loggerFlags(),
			&cli.StringFlag{
				Name:  "level",
				Usage: "Level for lines without a recognizable level token",
				Value: "info",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "How often buffered lines are flushed",
				Value: 10 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "from-start",
				Usage: "Log the existing content of the file before following it",
			},
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Serve Prometheus metrics on this address (e.g. :9464)",
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			return followFile(ctx, c)
		},
	}
}

func followFile(ctx context.Context, c *cli.Command) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("a file to follow is required")
	}
	fallback, err := record.ParseLevel(c.String("level"))
	if err != nil {
		return err
	}
	interval := c.Duration("interval")
	if interval <= 0 {
		return fmt.Errorf("invalid interval %s", interval)
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("creating metrics: %w", err)
	}
	l, err := openLogger(ctx, c, func(o *logger.Options) { o.Metrics = m })
	if err != nil {
		return err
	}

	t, err := openTail(path, c.Bool("from-start"))
	if err != nil {
		return err
	}
	defer t.Close()

	sched := scheduler.New(scheduler.Config{})
	if err := sched.AddWithInterval(l, interval); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting flush scheduler: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if addr := c.String("metrics-addr"); addr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, addr, reg)
		})
	}
	g.Go(func() error {
		return watchFile(ctx, l, t, fallback)
	})

	err = g.Wait()
	// Stop flushes whatever the last tick left behind.
	if flushErr := sched.Stop(); flushErr != nil && err == nil {
		err = fmt.Errorf("flushing: %w", flushErr)
	}
	return err
}

// watchFile logs new lines whenever the file changes. It returns the context's
// error once ctx is done.
func watchFile(ctx context.Context, l *logger.Logger, t *tail, fallback record.Level) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(t.path); err != nil {
		return fmt.Errorf("watching %s: %w", t.path, err)
	}

	emit := func() {
		lines, err := t.Lines()
		for _, line := range lines {
			l.Log(detectLevel(line, fallback), line)
		}
		if err != nil {
			l.Warning(fmt.Sprintf("reading %s: %v", t.path, err))
		}
	}
	// Catch up on anything read before the watcher was in place.
	emit()

	for {
		select {
		case <-ctx.Done():
			emit()
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Has(fsnotify.Write):
				emit()
			case event.Has(fsnotify.Rename), event.Has(fsnotify.Remove):
				// Log rotation: drain the old file, then wait for the new one.
				emit()
				time.Sleep(200 * time.Millisecond)
				if err := t.Reopen(); err != nil {
					l.Warning(fmt.Sprintf("%s is gone: %v", t.path, err))
					continue
				}
				if err := watcher.Add(t.path); err != nil {
					l.Warning(fmt.Sprintf("re-watching %s: %v", t.path, err))
				}
				emit()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.Warning(fmt.Sprintf("file watcher error: %v", err))
		}
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving metrics: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

var levelToken = regexp.MustCompile(`(?i)\[(debug|info|warn|warning|error|critical|fatal)\]|\b(debug|info|warn|warning|error|critical|fatal):`)

// detectLevel finds the first "[LEVEL]" or "LEVEL:" token in line.
func detectLevel(line string, fallback record.Level) record.Level {
	m := levelToken.FindStringSubmatch(line)
	if m == nil {
		return fallback
	}
	token := m[1]
	if token == "" {
		token = m[2]
	}
	level, err := record.ParseLevel(token)
	if err != nil {
		return fallback
	}
	return level
}

// tail reads complete lines appended to a file.
type tail struct {
	path    string
	f       *os.File
	r       *bufio.Reader
	partial strings.Builder
}

func openTail(path string, fromStart bool) (*tail, error) {
	t := &tail{path: path}
	if err := t.open(fromStart); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *tail) open(fromStart bool) error {
	f, err := os.Open(t.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", t.path, err)
	}
	if !fromStart {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return fmt.Errorf("seeking %s: %w", t.path, err)
		}
	}
	t.f = f
	t.r = bufio.NewReader(f)
	t.partial.Reset()
	return nil
}

// Reopen switches to a new file at the same path, reading it from the start.
func (t *tail) Reopen() error {
	if t.f != nil {
		t.f.Close()
	}
	return t.open(true)
}

// Lines returns the complete lines available since the last call. A trailing
// line without a newline is kept until it is completed.
func (t *tail) Lines() ([]string, error) {
	var lines []string
	for {
		chunk, err := t.r.ReadString('\n')
		t.partial.WriteString(chunk)
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		line := strings.TrimRight(t.partial.String(), "\r\n")
		t.partial.Reset()
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
}

func (t *tail) Close() error {
	return t.f.Close()
}
