package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"syscall"
	"time"
)

// Exit codes used by Main, Guard and Exit.
const (
	ExitOK          = 0
	ExitError       = 1
	ExitPanic       = 2
	ExitInterrupted = 130
)

// DefaultExitTimeout bounds each exit hook.
const DefaultExitTimeout = 5 * time.Second

// ExitHook runs once before the process terminates.
type ExitHook func(ctx context.Context) error

type exitEntry struct {
	id   uint64
	name string
	fn   ExitHook
}

var (
	exitMu      sync.Mutex
	exitHooks   []exitEntry
	nextHookID  uint64
	exitTimeout = DefaultExitTimeout

	// exitFunc terminates the process; tests replace it.
	exitFunc = os.Exit
)

// OnExit registers fn to run when the process exits through Main, Guard or Exit.
// Hooks run in reverse registration order. The returned function unregisters fn.
func OnExit(name string, fn ExitHook) (remove func()) {
	exitMu.Lock()
	defer exitMu.Unlock()

	nextHookID++
	id := nextHookID
	exitHooks = append(exitHooks, exitEntry{id: id, name: name, fn: fn})

	return func() {
		exitMu.Lock()
		defer exitMu.Unlock()
		for i, e := range exitHooks {
			if e.id == id {
				exitHooks = append(exitHooks[:i:i], exitHooks[i+1:]...)
				return
			}
		}
	}
}

// SetExitTimeout changes the per-hook timeout. Non-positive values restore the default.
func SetExitTimeout(d time.Duration) {
	exitMu.Lock()
	defer exitMu.Unlock()
	if d <= 0 {
		d = DefaultExitTimeout
	}
	exitTimeout = d
}

// RunExitHooks runs and clears every registered hook. Each hook gets its own
// bounded context; a panicking hook is reported and does not stop the others.
func RunExitHooks() error {
	exitMu.Lock()
	hooks := exitHooks
	exitHooks = nil
	timeout := exitTimeout
	exitMu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := runExitHook(hooks[i], timeout); err != nil {
			errs = append(errs, fmt.Errorf("exit hook %s: %w", hooks[i].name, err))
		}
	}
	return errors.Join(errs...)
}

func runExitHook(e exitEntry, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(ctx)
}

// Exit runs the exit hooks and terminates the process with code.
func Exit(code int) {
	if err := RunExitHooks(); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
	}
	exitFunc(code)
}

// Guard recovers a panic in the calling goroutine, dispatches it to the
// process-wide hook and exits with ExitPanic. Use it as the first deferred call
// of main or of a goroutine:
//
//	defer process.Guard()
func Guard() {
	r := recover()
	if r == nil {
		return
	}
	Dispatch(r, debug.Stack())
	Exit(ExitPanic)
}

// Go runs fn in a new goroutine protected by Guard.
func Go(fn func()) {
	go func() {
		defer Guard()
		fn()
	}()
}

// Main runs the program body and terminates the process. SIGINT and SIGTERM
// cancel ctx with ErrInterrupted as the cause; a second signal gets the default
// behaviour. A returned error or a panic is dispatched to the process-wide hook.
// Exit hooks run exactly once whatever the outcome.
func Main(body func(ctx context.Context) error) {
	exitFunc(run(body))
}

func run(body func(ctx context.Context) error) int {
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(nil)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigCh:
			signal.Stop(sigCh)
			cancel(fmt.Errorf("%w by %s", ErrInterrupted, sig))
		case <-done:
			signal.Stop(sigCh)
		}
	}()

	code := ExitOK
	panicked, value, stack, err := call(ctx, body)
	switch {
	case panicked:
		Dispatch(value, stack)
		code = ExitPanic
	case err != nil:
		err = interruptCause(ctx, err)
		Dispatch(err, nil)
		code = ExitError
		if IsInterrupt(err) {
			code = ExitInterrupted
		}
	}

	if err := RunExitHooks(); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
	}
	return code
}

func call(ctx context.Context, body func(ctx context.Context) error) (panicked bool, value any, stack []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			panicked, value, stack = true, r, debug.Stack()
		}
	}()
	return false, nil, nil, body(ctx)
}
