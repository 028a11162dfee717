// Package buffer holds the in-memory records of one run until they are flushed.
package buffer

import (
	"sync"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// Buffer is an ordered, unbounded, goroutine-safe sequence of records.
// Callers bound memory by flushing often enough.
type Buffer struct {
	mu      sync.Mutex
	records []record.Record
}

func New() *Buffer {
	return &Buffer{}
}

// Append adds r to the tail of the buffer.
func (b *Buffer) Append(r record.Record) {
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()
}

// Drain returns every buffered record and leaves the buffer empty. A record is
// returned by at most one Drain call. Drain returns nil when the buffer is empty.
func (b *Buffer) Drain() []record.Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.records) == 0 {
		return nil
	}
	drained := b.records
	b.records = nil
	return drained
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}
