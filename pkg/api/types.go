package api

import (
	"encoding/json"
	"time"
)

// DocumentResponse carries a stored document as it was written. Documents
// read from MongoDB use relaxed extended JSON.
type DocumentResponse struct {
	ID        string          `json:"id"`
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Document  json.RawMessage `json:"document"`
}

type ListDocumentsResponse struct {
	Collection string             `json:"collection"`
	Documents  []DocumentResponse `json:"documents"`
	Count      int                `json:"count"`
	RunID      string             `json:"run_id,omitempty"`
}

type RunResponse struct {
	RunID  string             `json:"run_id"`
	Logs   []DocumentResponse `json:"logs"`
	Errors []DocumentResponse `json:"errors"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
