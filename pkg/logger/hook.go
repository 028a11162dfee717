package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nyc-design/neil-logger/pkg/process"
	"github.com/nyc-design/neil-logger/pkg/record"
	"github.com/nyc-design/neil-logger/pkg/tracker"
)

// EnableGlobalExceptionHook makes this logger the process-wide handler for
// failures that reach process.Main, process.Guard or process.Go. Calling it
// again, on this or another logger, replaces the previous handler.
func (l *Logger) EnableGlobalExceptionHook() {
	process.SetPanicHook(l.HandleUncaught)
}

// HandleUncaught records a failure that reached the top of the program. v is a
// panic value or a returned error; stack is the panic stack, if any.
//
// Interrupts go to process.DefaultPanicHook and nothing is recorded. Anything
// else is written at once as an UncaughtError to the error collection, without
// going through the buffer, and reported to the tracker.
func (l *Logger) HandleUncaught(v any, stack []byte) {
	if process.IsInterrupt(v) {
		process.DefaultPanicHook(v, stack)
		return
	}

	errType, msg := describe(v)
	traceback := renderTraceback(v, errType, msg, stack)

	doc := record.UncaughtError{
		Timestamp: l.now().UTC(),
		RunID:     l.runID,
		ErrorType: errType,
		Error:     msg,
		Traceback: traceback,
		Script:    l.name,
	}
	if err := l.write(context.Background(), l.errorCollection, doc); err != nil {
		l.console.Errorf("recording uncaught failure: %v", err)
	}
	l.metrics.ObserveUncaught()

	l.track(func(t tracker.Tracker) {
		t.CaptureException(asError(v))
		t.Flush(l.flushTimeout)
	})

	l.console.Block(traceback)
}

// describe returns the type name and message of a failure value. Wrapping
// layers added by fmt.Errorf are looked through so the type names the actual
// failure.
func describe(v any) (errType, msg string) {
	err, ok := v.(error)
	if !ok {
		return fmt.Sprintf("%T", v), fmt.Sprint(v)
	}
	return errorType(err), err.Error()
}

func errorType(err error) string {
	for {
		name := fmt.Sprintf("%T", err)
		if !strings.HasPrefix(name, "*fmt.wrap") {
			return name
		}
		next := errors.Unwrap(err)
		if next == nil {
			return name
		}
		err = next
	}
}

func renderTraceback(v any, errType, msg string, stack []byte) string {
	var b strings.Builder
	if stack != nil {
		fmt.Fprintf(&b, "panic: %s: %s\n\n", errType, msg)
		b.Write(stack)
		return b.String()
	}
	fmt.Fprintf(&b, "%s: %s\n", errType, msg)
	if err, ok := v.(error); ok {
		if detail := fmt.Sprintf("%+v", err); detail != msg {
			b.WriteString(detail)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
