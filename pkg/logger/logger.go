// Package logger is a per-process logging facade. Every call writes a console
// line and buffers a structured record; Flush persists the buffered records as
// one run batch plus one batch of the error-level records. Uncaught failures and
// failures of wrapped calls are funnelled into the same stream and mirrored to
// an optional error tracker.
//
// Loggers are registered by logical name: constructing a second logger with the
// same name returns the first one. Each logger flushes itself once when the
// process exits through the process package.
package logger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nyc-design/neil-logger/pkg/buffer"
	"github.com/nyc-design/neil-logger/pkg/console"
	"github.com/nyc-design/neil-logger/pkg/metrics"
	"github.com/nyc-design/neil-logger/pkg/process"
	"github.com/nyc-design/neil-logger/pkg/runid"
	"github.com/nyc-design/neil-logger/pkg/storage"
	"github.com/nyc-design/neil-logger/pkg/tracker"
)

const (
	DefaultLogCollection   = "run_logs"
	DefaultErrorCollection = "error_logs"
	DefaultFlushTimeout    = 5 * time.Second
)

var ErrNoStore = errors.New("logger: no store configured")

// Options configures New. Only Store is required.
type Options struct {
	// Name is the logical name of the logger. Defaults to the program name.
	Name string
	// RunID is shared by every record. Defaults to "<program>_<UTC timestamp>".
	RunID string

	LogCollection   string
	ErrorCollection string

	Store   storage.Store
	Tracker tracker.Tracker
	Metrics *metrics.Metrics

	// FlushTimeout bounds each store write made by Flush and by the uncaught
	// failure handler.
	FlushTimeout time.Duration
	Clock        func() time.Time
	// Console defaults to console.ForName(Name).
	Console *console.Writer
}

type Logger struct {
	name            string
	runID           string
	logCollection   string
	errorCollection string

	store        storage.Store
	tracker      tracker.Tracker
	metrics      *metrics.Metrics
	flushTimeout time.Duration
	now          func() time.Time
	console      *console.Writer

	buf *buffer.Buffer

	removeExitHook func()
	closeOnce      sync.Once
	closed         atomic.Bool
	closedWarn     sync.Once
}

var (
	registryMu sync.Mutex
	registry   = make(map[string]*Logger)
)

// New returns the logger registered under opts.Name, creating and registering it
// if needed. When a logger already exists for the name, opts is ignored.
func New(opts Options) (*Logger, error) {
	name := opts.Name
	if name == "" {
		name = runid.DefaultName()
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := registry[name]; ok {
		return l, nil
	}
	if opts.Store == nil {
		return nil, ErrNoStore
	}

	l := &Logger{
		name:            name,
		runID:           opts.RunID,
		logCollection:   opts.LogCollection,
		errorCollection: opts.ErrorCollection,
		store:           opts.Store,
		tracker:         opts.Tracker,
		metrics:         opts.Metrics,
		flushTimeout:    opts.FlushTimeout,
		now:             opts.Clock,
		console:         opts.Console,
		buf:             buffer.New(),
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.runID == "" {
		l.runID = runid.New(runid.DefaultName(), l.now())
	}
	if l.logCollection == "" {
		l.logCollection = DefaultLogCollection
	}
	if l.errorCollection == "" {
		l.errorCollection = DefaultErrorCollection
	}
	if l.tracker == nil {
		l.tracker = tracker.Nop{}
	}
	if l.flushTimeout <= 0 {
		l.flushTimeout = DefaultFlushTimeout
	}
	if l.console == nil {
		l.console = console.ForName(name)
	}

	l.track(func(t tracker.Tracker) {
		t.SetTag("run_id", l.runID)
		t.SetTag("logger", l.name)
	})

	l.removeExitHook = process.OnExit("flush "+name, l.flushOnExit)
	registry[name] = l
	return l, nil
}

// Get returns the registered logger for name.
func Get(name string) (*Logger, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	l, ok := registry[name]
	return l, ok
}

// Names returns the names of the registered loggers, sorted.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FlushAll flushes every registered logger and joins their failures.
func FlushAll(ctx context.Context) error {
	registryMu.Lock()
	loggers := make([]*Logger, 0, len(registry))
	for _, l := range registry {
		loggers = append(loggers, l)
	}
	registryMu.Unlock()

	var errs []error
	for _, l := range loggers {
		if err := l.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Logger) Name() string  { return l.name }
func (l *Logger) RunID() string { return l.runID }

// Buffered returns the number of records waiting for the next flush.
func (l *Logger) Buffered() int {
	return l.buf.Len()
}

// Close flushes pending records, flushes the tracker and unregisters the logger.
// The store is left open; it belongs to whoever created it.
//
// A closed logger has no exit hook. Records logged after Close are still
// buffered, but only an explicit Flush persists them; the first such record
// prints a warning on the console.
func (l *Logger) Close(ctx context.Context) error {
	err := l.Flush(ctx)
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.removeExitHook()
		registryMu.Lock()
		if registry[l.name] == l {
			delete(registry, l.name)
		}
		registryMu.Unlock()
	})
	l.flushTracker()
	return err
}

func (l *Logger) flushOnExit(ctx context.Context) error {
	// Failures were already surfaced by Flush; teardown must not fail on them.
	_ = l.Flush(ctx)
	l.flushTracker()
	return nil
}

// track runs fn against the tracker, swallowing any panic from it.
func (l *Logger) track(fn func(t tracker.Tracker)) {
	defer func() {
		_ = recover()
	}()
	fn(l.tracker)
}

func (l *Logger) flushTracker() {
	l.track(func(t tracker.Tracker) {
		t.Flush(l.flushTimeout)
	})
}
