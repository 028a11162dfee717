package logger

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/nyc-design/neil-logger/pkg/record"
	"github.com/nyc-design/neil-logger/pkg/tracker"
)

func (l *Logger) Debug(msg string)    { l.emit(record.Debug, msg, caller(1), nil) }
func (l *Logger) Info(msg string)     { l.emit(record.Info, msg, caller(1), nil) }
func (l *Logger) Warning(msg string)  { l.emit(record.Warning, msg, caller(1), nil) }
func (l *Logger) Critical(msg string) { l.emit(record.Critical, msg, caller(1), nil) }

// Error logs msg at ERROR. Non-nil causes are reported to the tracker as
// exceptions; without one the message itself is reported.
func (l *Logger) Error(msg string, causes ...error) {
	l.emit(record.Error, msg, caller(1), causes)
}

// Log logs msg at level.
func (l *Logger) Log(level record.Level, msg string) {
	l.emit(level, msg, caller(1), nil)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.emit(record.Debug, fmt.Sprintf(format, args...), caller(1), nil)
}

func (l *Logger) Infof(format string, args ...any) {
	l.emit(record.Info, fmt.Sprintf(format, args...), caller(1), nil)
}

func (l *Logger) Warningf(format string, args ...any) {
	l.emit(record.Warning, fmt.Sprintf(format, args...), caller(1), nil)
}

// Errorf formats like fmt.Errorf; a %w operand is reported to the tracker as
// the cause.
func (l *Logger) Errorf(format string, args ...any) {
	err := fmt.Errorf(format, args...)
	var causes []error
	if cause := unwrapOne(err); cause != nil {
		causes = append(causes, cause)
	}
	l.emit(record.Error, err.Error(), caller(1), causes)
}

func (l *Logger) Criticalf(format string, args ...any) {
	l.emit(record.Critical, fmt.Sprintf(format, args...), caller(1), nil)
}

func unwrapOne(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		if errs := u.Unwrap(); len(errs) > 0 {
			return errs[0]
		}
	}
	return nil
}

// emit is the single path from a log call to the console, the buffer, the
// tracker and the metrics, in that order. Only the buffer append is guaranteed.
func (l *Logger) emit(level record.Level, msg, function string, causes []error) {
	now := l.now().UTC()
	l.writeConsole(now, level, msg)

	if l.closed.Load() {
		l.closedWarn.Do(func() {
			l.writeConsole(l.now().UTC(), record.Warning,
				"logger is closed; records logged now are only persisted by an explicit Flush")
		})
	}

	l.buf.Append(record.Record{
		Timestamp: now,
		Level:     level,
		Module:    l.name,
		Function:  function,
		Message:   msg,
		RunID:     l.runID,
	})

	l.track(func(t tracker.Tracker) {
		if level >= record.Info {
			t.AddBreadcrumb(level, l.name, msg)
		}
		switch {
		case level == record.Error:
			reported := false
			for _, cause := range causes {
				if cause != nil {
					t.CaptureException(cause)
					reported = true
				}
			}
			if !reported {
				t.CaptureMessage(msg, record.Error)
			}
		case level >= record.Critical:
			t.CaptureMessage(msg, record.Critical)
		}
	})

	l.metrics.ObserveRecord(l.name, level)
}

// writeConsole writes one console line, swallowing any panic from the output.
func (l *Logger) writeConsole(ts time.Time, level record.Level, msg string) {
	defer func() {
		_ = recover()
	}()
	l.console.Line(ts, level, msg)
}

// caller returns the function skip frames above its caller, without the import
// path: "main.run", "worker.(*Pool).Start".
func caller(skip int) string {
	var pcs [1]uintptr
	if runtime.Callers(skip+2, pcs[:]) == 0 {
		return ""
	}
	return funcName(pcs[0])
}

func funcName(pc uintptr) string {
	if pc == 0 {
		return ""
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return shortName(frame.Function)
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
