package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nyc-design/neil-logger/pkg/record"
	"github.com/nyc-design/neil-logger/pkg/tracker"
)

// Flush drains the buffer and writes one RunBatch with every drained record to
// the log collection and, when any of them are ERROR or CRITICAL, one
// ErrorBatch to the error collection. An empty buffer means no writes at all.
//
// The two writes are independent and drained records are never put back: a
// failed write loses that batch. Failures are reported on the console and to
// the tracker, then returned joined.
func (l *Logger) Flush(ctx context.Context) error {
	if l.buf.Len() == 0 {
		return nil
	}
	records := l.buf.Drain()
	if len(records) == 0 {
		return nil
	}

	started := time.Now()
	now := l.now().UTC()

	var errs []error
	if err := l.write(ctx, l.logCollection, record.RunBatch{
		RunID:     l.runID,
		Logs:      records,
		Timestamp: now,
	}); err != nil {
		errs = append(errs, err)
	}

	if failed := record.FilterErrors(records); len(failed) > 0 {
		if err := l.write(ctx, l.errorCollection, record.ErrorBatch{
			RunID:     l.runID,
			Errors:    failed,
			Timestamp: now,
		}); err != nil {
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	l.metrics.ObserveFlush(l.name, started, err)
	if err != nil {
		l.console.Errorf("flush of %d records failed: %v", len(records), err)
		l.track(func(t tracker.Tracker) {
			t.CaptureException(err)
		})
	}
	return err
}

func (l *Logger) write(ctx context.Context, collection string, doc record.Document) error {
	ctx, cancel := context.WithTimeout(ctx, l.flushTimeout)
	defer cancel()

	err := l.store.Insert(ctx, collection, doc)
	l.metrics.ObserveWrite(l.name, collection, err)
	if err != nil {
		return fmt.Errorf("writing to %s: %w", collection, err)
	}
	return nil
}
