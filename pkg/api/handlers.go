package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nyc-design/neil-logger/pkg/storage"
	"github.com/nyc-design/neil-logger/pkg/version"
)

// MaxLimit caps the limit query parameter.
const MaxLimit = 500

func (s *Server) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	s.listCollection(w, r, s.config.LogCollection)
}

func (s *Server) HandleListErrors(w http.ResponseWriter, r *http.Request) {
	s.listCollection(w, r, s.config.ErrorCollection)
}

func (s *Server) listCollection(w http.ResponseWriter, r *http.Request, collection string) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}

	entries, err := s.reader.Recent(r.Context(), collection, q)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve documents", err.Error())
		return
	}

	docs := toDocuments(entries)
	s.writeJSON(w, http.StatusOK, ListDocumentsResponse{
		Collection: collection,
		Documents:  docs,
		Count:      len(docs),
		RunID:      q.RunID,
	})
}

// HandleRun returns the documents of one run from both collections.
func (s *Server) HandleRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	if runID == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Run ID is required")
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid query", err.Error())
		return
	}
	q.RunID = runID

	logs, err := s.reader.Recent(r.Context(), s.config.LogCollection, q)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve run logs", err.Error())
		return
	}
	errs, err := s.reader.Recent(r.Context(), s.config.ErrorCollection, q)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve run errors", err.Error())
		return
	}
	if len(logs) == 0 && len(errs) == 0 {
		s.writeError(w, http.StatusNotFound, "Run not found", fmt.Sprintf("No documents for run '%s'", runID))
		return
	}

	s.writeJSON(w, http.StatusOK, RunResponse{
		RunID:  runID,
		Logs:   toDocuments(logs),
		Errors: toDocuments(errs),
	})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   version.Version,
	})
}

func parseQuery(values url.Values) (storage.Query, error) {
	q := storage.Query{RunID: values.Get("run_id")}
	if limit := values.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return q, fmt.Errorf("limit must be a positive integer, got %q", limit)
		}
		q.Limit = min(n, MaxLimit)
	}
	return q, nil
}

func toDocuments(entries []storage.Entry) []DocumentResponse {
	docs := make([]DocumentResponse, len(entries))
	for i, e := range entries {
		docs[i] = DocumentResponse{
			ID:        e.ID,
			RunID:     e.RunID,
			Timestamp: e.Timestamp,
			Document:  e.Body,
		}
	}
	return docs
}
