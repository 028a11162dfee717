package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nyc-design/neil-logger/pkg/record"
)

type memoryDoc struct {
	entry Entry
	doc   record.Document
}

// Memory keeps documents in process memory. It supports injecting write
// failures per collection.
type Memory struct {
	mu       sync.Mutex
	docs     map[string][]memoryDoc
	failures map[string]error
	inserts  int
	closed   bool
}

func NewMemory() *Memory {
	return &Memory{
		docs:     make(map[string][]memoryDoc),
		failures: make(map[string]error),
	}
}

// FailWith makes every later Insert into collection return err. A nil err clears
// the failure.
func (m *Memory) FailWith(collection string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, collection)
		return
	}
	m.failures[collection] = err
}

func (m *Memory) Insert(ctx context.Context, collection string, doc record.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inserts++
	if m.closed {
		return ErrClosed
	}
	if err := m.failures[collection]; err != nil {
		return err
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	m.docs[collection] = append(m.docs[collection], memoryDoc{
		entry: Entry{
			ID:         uuid.NewString(),
			Collection: collection,
			RunID:      doc.DocumentRunID(),
			Timestamp:  doc.DocumentTime(),
			Body:       body,
		},
		doc: doc,
	})
	return nil
}

// Documents returns the documents written to collection, oldest first.
func (m *Memory) Documents(collection string) []record.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := make([]record.Document, 0, len(m.docs[collection]))
	for _, d := range m.docs[collection] {
		docs = append(docs, d.doc)
	}
	return docs
}

// Inserts counts every Insert call, including failed ones.
func (m *Memory) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

func (m *Memory) Recent(ctx context.Context, collection string, q Query) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	docs := m.docs[collection]
	var entries []Entry
	for i := len(docs) - 1; i >= 0 && len(entries) < q.limit(); i-- {
		if q.RunID != "" && docs[i].entry.RunID != q.RunID {
			continue
		}
		entries = append(entries, docs[i].entry)
	}
	return entries, nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
