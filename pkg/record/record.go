// Package record defines the structured shapes written by the logger: single log
// records and the batch documents persisted at flush time.
package record

import "time"

// Record is one observed event. Records are created by the logger at the moment of
// the event and never mutated afterwards.
type Record struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Level     Level     `json:"level" bson:"level"`
	Module    string    `json:"module" bson:"module"`
	Function  string    `json:"function,omitempty" bson:"function,omitempty"`
	Message   string    `json:"message" bson:"message"`
	RunID     string    `json:"run_id" bson:"run_id"`
	Traceback string    `json:"traceback,omitempty" bson:"traceback,omitempty"`
}

// Document is anything the logger hands to a durable store.
type Document interface {
	DocumentRunID() string
	DocumentTime() time.Time
}

// RunBatch holds every record drained by one flush.
type RunBatch struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	Logs      []Record  `json:"logs" bson:"logs"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func (b RunBatch) DocumentRunID() string   { return b.RunID }
func (b RunBatch) DocumentTime() time.Time { return b.Timestamp }

// ErrorBatch holds the ERROR and CRITICAL records of one flush.
type ErrorBatch struct {
	RunID     string    `json:"run_id" bson:"run_id"`
	Errors    []Record  `json:"errors" bson:"errors"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

func (b ErrorBatch) DocumentRunID() string   { return b.RunID }
func (b ErrorBatch) DocumentTime() time.Time { return b.Timestamp }

// UncaughtError is written straight to the error collection when a failure reaches
// the top of the process. It never passes through the buffer.
type UncaughtError struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	RunID     string    `json:"run_id" bson:"run_id"`
	ErrorType string    `json:"error_type" bson:"error_type"`
	Error     string    `json:"error" bson:"error"`
	Traceback string    `json:"traceback" bson:"traceback"`
	Script    string    `json:"script" bson:"script"`
}

func (u UncaughtError) DocumentRunID() string   { return u.RunID }
func (u UncaughtError) DocumentTime() time.Time { return u.Timestamp }

// FilterErrors returns the ERROR and CRITICAL records of records, preserving order.
func FilterErrors(records []Record) []Record {
	var errs []Record
	for _, r := range records {
		if r.Level.IsError() {
			errs = append(errs, r)
		}
	}
	return errs
}
