package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatched struct {
	value any
	stack []byte
}

// captureProcess replaces the exit function, stderr and panic hook for one test.
func captureProcess(t *testing.T) (*[]int, *[]dispatched, *bytes.Buffer) {
	t.Helper()
	var (
		codes []int
		seen  []dispatched
		errw  bytes.Buffer
	)
	oldExit, oldStderr := exitFunc, stderr
	exitFunc = func(code int) { codes = append(codes, code) }
	stderr = &errw
	SetPanicHook(func(v any, stack []byte) { seen = append(seen, dispatched{v, stack}) })
	t.Cleanup(func() {
		exitFunc, stderr = oldExit, oldStderr
		ResetPanicHook()
		_ = RunExitHooks()
	})
	return &codes, &seen, &errw
}

func TestMainSuccessRunsExitHooks(t *testing.T) {
	codes, seen, _ := captureProcess(t)

	var order []string
	OnExit("first", func(ctx context.Context) error { order = append(order, "first"); return nil })
	OnExit("second", func(ctx context.Context) error { order = append(order, "second"); return nil })

	Main(func(ctx context.Context) error { return nil })

	assert.Equal(t, []int{ExitOK}, *codes)
	assert.Empty(t, *seen)
	assert.Equal(t, []string{"second", "first"}, order)

	// hooks ran once and were cleared
	require.NoError(t, RunExitHooks())
	assert.Len(t, order, 2)
}

func TestMainReturnedErrorIsDispatched(t *testing.T) {
	codes, seen, _ := captureProcess(t)
	boom := errors.New("boom")

	hookRan := false
	OnExit("flush", func(ctx context.Context) error { hookRan = true; return nil })

	Main(func(ctx context.Context) error { return boom })

	assert.Equal(t, []int{ExitError}, *codes)
	require.Len(t, *seen, 1)
	assert.Same(t, boom, (*seen)[0].value)
	assert.Nil(t, (*seen)[0].stack)
	assert.True(t, hookRan)
}

func TestMainPanicIsDispatchedWithStack(t *testing.T) {
	codes, seen, _ := captureProcess(t)

	Main(func(ctx context.Context) error { panic("kaboom") })

	assert.Equal(t, []int{ExitPanic}, *codes)
	require.Len(t, *seen, 1)
	assert.Equal(t, "kaboom", (*seen)[0].value)
	assert.Contains(t, string((*seen)[0].stack), "goroutine")
}

func TestMainInterruptedBySignal(t *testing.T) {
	codes, seen, _ := captureProcess(t)

	Main(func(ctx context.Context) error {
		require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("signal not delivered")
		}
	})

	assert.Equal(t, []int{ExitInterrupted}, *codes)
	require.Len(t, *seen, 1)
	assert.True(t, IsInterrupt((*seen)[0].value))
}

func TestGuardRecoversPanic(t *testing.T) {
	codes, seen, _ := captureProcess(t)

	func() {
		defer Guard()
		panic(fmt.Errorf("worker failed"))
	}()

	assert.Equal(t, []int{ExitPanic}, *codes)
	require.Len(t, *seen, 1)
	assert.EqualError(t, (*seen)[0].value.(error), "worker failed")
}

func TestGoGuardsGoroutine(t *testing.T) {
	codes, seen, _ := captureProcess(t)

	done := make(chan struct{})
	exitFunc = func(code int) {
		*codes = append(*codes, code)
		close(done)
	}
	Go(func() { panic("in goroutine") })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("guarded goroutine did not exit")
	}
	assert.Equal(t, []int{ExitPanic}, *codes)
	require.Len(t, *seen, 1)
}

func TestOnExitRemove(t *testing.T) {
	captureProcess(t)

	ran := false
	remove := OnExit("removed", func(ctx context.Context) error { ran = true; return nil })
	remove()
	remove()

	require.NoError(t, RunExitHooks())
	assert.False(t, ran)
}

func TestExitHookFailuresAreCollected(t *testing.T) {
	captureProcess(t)
	SetExitTimeout(50 * time.Millisecond)
	defer SetExitTimeout(0)

	OnExit("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	OnExit("panics", func(ctx context.Context) error { panic("oops") })
	lastRan := false
	OnExit("last", func(ctx context.Context) error { lastRan = true; return nil })

	err := RunExitHooks()
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "exit hook panics: panic: oops")
	assert.True(t, lastRan)
}

func TestDefaultPanicHook(t *testing.T) {
	_, _, errw := captureProcess(t)

	DefaultPanicHook(fmt.Errorf("%w by interrupt", ErrInterrupted), nil)
	DefaultPanicHook(errors.New("bad config"), nil)
	DefaultPanicHook("nil map", []byte("goroutine 1 [running]:\n"))

	out := errw.String()
	assert.Contains(t, out, "interrupted\n")
	assert.Contains(t, out, "error: bad config\n")
	assert.Contains(t, out, "panic: nil map\n\ngoroutine 1 [running]:")
}

func TestDispatchSurvivesFailingHook(t *testing.T) {
	_, _, errw := captureProcess(t)
	SetPanicHook(func(v any, stack []byte) { panic("hook broke") })

	assert.NotPanics(t, func() { Dispatch(errors.New("original"), nil) })
	assert.Contains(t, errw.String(), "panic hook failed: hook broke")
	assert.Contains(t, errw.String(), "error: original")
}

func TestIsInterrupt(t *testing.T) {
	assert.True(t, IsInterrupt(ErrInterrupted))
	assert.True(t, IsInterrupt(fmt.Errorf("wrapped: %w", ErrInterrupted)))
	assert.False(t, IsInterrupt(context.Canceled))
	assert.False(t, IsInterrupt("interrupted"))
}
