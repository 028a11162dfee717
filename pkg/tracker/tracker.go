// Package tracker mirrors failures to an external error-tracking service.
//
// The logger only talks to the Tracker interface. Nop is used when no service is
// configured, so a missing tracker never changes what the logger does locally.
package tracker

import (
	"sync"
	"time"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// Tracker is the capability the logger needs from an error-tracking service.
type Tracker interface {
	CaptureException(err error)
	CaptureMessage(msg string, level record.Level)
	AddBreadcrumb(level record.Level, category, msg string)
	SetTag(key, value string)
	// Flush waits up to timeout for queued events to be delivered.
	Flush(timeout time.Duration) bool
}

// Nop discards everything.
type Nop struct{}

func (Nop) CaptureException(error)                      {}
func (Nop) CaptureMessage(string, record.Level)         {}
func (Nop) AddBreadcrumb(record.Level, string, string) {}
func (Nop) SetTag(string, string)                       {}
func (Nop) Flush(time.Duration) bool                    { return true }

// Message is a captured CaptureMessage call.
type Message struct {
	Text  string
	Level record.Level
}

// Breadcrumb is a captured AddBreadcrumb call.
type Breadcrumb struct {
	Level    record.Level
	Category string
	Message  string
}

// Recorder keeps every call in memory. It is safe for concurrent use.
type Recorder struct {
	mu          sync.Mutex
	exceptions  []error
	messages    []Message
	breadcrumbs []Breadcrumb
	tags        map[string]string
	flushes     int
}

func NewRecorder() *Recorder {
	return &Recorder{tags: make(map[string]string)}
}

func (r *Recorder) CaptureException(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exceptions = append(r.exceptions, err)
}

func (r *Recorder) CaptureMessage(msg string, level record.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Text: msg, Level: level})
}

func (r *Recorder) AddBreadcrumb(level record.Level, category, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breadcrumbs = append(r.breadcrumbs, Breadcrumb{Level: level, Category: category, Message: msg})
}

func (r *Recorder) SetTag(key, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[key] = value
}

func (r *Recorder) Flush(time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return true
}

func (r *Recorder) Exceptions() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.exceptions...)
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

func (r *Recorder) Breadcrumbs() []Breadcrumb {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Breadcrumb(nil), r.breadcrumbs...)
}

func (r *Recorder) Tag(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tags[key]
}

func (r *Recorder) Flushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes
}
