package logger

import (
	"fmt"
	"reflect"
	"runtime"
	"runtime/debug"

	"github.com/nyc-design/neil-logger/pkg/record"
	"github.com/nyc-design/neil-logger/pkg/tracker"
)

// Capturer wraps calls so that their failures are logged, buffered with a
// traceback and reported to the tracker. A failure is a non-nil returned error
// or a panic.
//
// With suppress false the failure is passed on unchanged: the same error is
// returned, the same value is re-panicked. With suppress true the wrapped call
// returns zero values and a nil error instead.
type Capturer struct {
	l        *Logger
	suppress bool
}

func (l *Logger) CaptureErrors(suppress bool) Capturer {
	return Capturer{l: l, suppress: suppress}
}

// Func wraps fn. An empty name is replaced by the function's symbol name.
func (c Capturer) Func(name string, fn func() error) func() error {
	name = symbolName(name, fn)
	return func() error {
		_, err := invoke(c, name, func() (struct{}, error) {
			return struct{}{}, fn()
		})
		return err
	}
}

// Call invokes fn once under c.
func Call[R any](c Capturer, name string, fn func() (R, error)) (R, error) {
	return invoke(c, symbolName(name, fn), fn)
}

// Wrap returns fn with c's failure handling around every invocation.
func Wrap[A, R any](c Capturer, name string, fn func(A) (R, error)) func(A) (R, error) {
	name = symbolName(name, fn)
	return func(arg A) (R, error) {
		return invoke(c, name, func() (R, error) {
			return fn(arg)
		})
	}
}

func invoke[R any](c Capturer, name string, fn func() (R, error)) (R, error) {
	var (
		result   R
		err      error
		panicked bool
		value    any
		stack    []byte
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked, value, stack = true, r, debug.Stack()
			}
		}()
		result, err = fn()
	}()

	switch {
	case panicked:
		c.l.captured(name, fmt.Sprint(value), asError(value), fmt.Sprintf("panic: %v\n\n%s", value, stack))
		if !c.suppress {
			panic(value)
		}
	case err != nil:
		c.l.captured(name, err.Error(), err, fmt.Sprintf("%+v\n\n%s", err, debug.Stack()))
		if !c.suppress {
			return result, err
		}
	default:
		return result, nil
	}

	var zero R
	return zero, nil
}

// captured records one wrapped-call failure: a console line naming the call and
// a single buffered record carrying the traceback.
func (l *Logger) captured(function, msg string, err error, traceback string) {
	now := l.now().UTC()
	l.console.Line(now, record.Error, fmt.Sprintf("[%s] %s", function, msg))

	l.buf.Append(record.Record{
		Timestamp: now,
		Level:     record.Error,
		Module:    l.name,
		Function:  function,
		Message:   msg,
		RunID:     l.runID,
		Traceback: traceback,
	})

	l.track(func(t tracker.Tracker) {
		t.CaptureException(err)
	})

	l.metrics.ObserveRecord(l.name, record.Error)
	l.metrics.ObserveCapture(l.name, function)
}

func symbolName(name string, fn any) string {
	if name != "" {
		return name
	}
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "unknown"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "unknown"
	}
	return shortName(f.Name())
}
