// Package process provides the host-runtime facilities the logger relies on: a
// process-wide slot for the uncaught-failure hook, an exit-hook registry, and
// Main/Go/Guard helpers that route panics and returned errors through them.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrInterrupted marks a failure caused by a user interrupt (SIGINT/SIGTERM).
var ErrInterrupted = errors.New("interrupted")

// PanicHook handles a failure that reached the top of the program. v is the
// recovered panic value or the error returned by the program body. stack is the
// goroutine stack at the point of the panic, or nil for returned errors.
type PanicHook func(v any, stack []byte)

var (
	hookMu sync.RWMutex
	hook   PanicHook

	// stderr is where DefaultPanicHook writes; tests replace it.
	stderr io.Writer = os.Stderr
)

// SetPanicHook installs h as the process-wide hook, replacing any previous one.
// A nil h restores DefaultPanicHook.
func SetPanicHook(h PanicHook) {
	hookMu.Lock()
	defer hookMu.Unlock()
	hook = h
}

// ResetPanicHook restores DefaultPanicHook.
func ResetPanicHook() {
	SetPanicHook(nil)
}

// CurrentPanicHook returns the installed hook, or DefaultPanicHook.
func CurrentPanicHook() PanicHook {
	hookMu.RLock()
	defer hookMu.RUnlock()
	if hook == nil {
		return DefaultPanicHook
	}
	return hook
}

// DefaultPanicHook mirrors what the Go runtime prints for an unrecovered panic.
// Interrupts print a single line.
func DefaultPanicHook(v any, stack []byte) {
	if IsInterrupt(v) {
		fmt.Fprintln(stderr, "interrupted")
		return
	}
	if _, ok := v.(error); ok && stack == nil {
		fmt.Fprintf(stderr, "error: %v\n", v)
		return
	}
	fmt.Fprintf(stderr, "panic: %v\n\n%s", v, stack)
}

// Dispatch hands v to the installed hook. If the hook itself panics, the default
// hook reports the original failure.
func Dispatch(v any, stack []byte) {
	h := CurrentPanicHook()
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "panic hook failed: %v\n", r)
			DefaultPanicHook(v, stack)
		}
	}()
	h(v, stack)
}

// IsInterrupt reports whether v represents a user interrupt.
func IsInterrupt(v any) bool {
	err, ok := v.(error)
	if !ok {
		return false
	}
	return errors.Is(err, ErrInterrupted)
}

// interruptCause upgrades a cancellation caused by an interrupt into an error
// that matches ErrInterrupted.
func interruptCause(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrInterrupted) {
		return err
	}
	if errors.Is(err, context.Canceled) && errors.Is(context.Cause(ctx), ErrInterrupted) {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return err
}
