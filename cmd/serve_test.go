package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nyc-design/neil-logger/pkg/api"
	"github.com/nyc-design/neil-logger/pkg/record"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

func TestServeMux(t *testing.T) {
	store := storage.NewMemory()
	err := store.Insert(context.Background(), "error_logs", record.UncaughtError{
		RunID:     "serve-run",
		Timestamp: time.Now(),
		ErrorType: "*errors.errorString",
		Error:     "boom",
	})
	if err != nil {
		t.Fatal(err)
	}
	handler := newServeMux(store, api.Config{LogCollection: "run_logs", ErrorCollection: "error_logs"})

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/health", http.StatusOK, `"status":"ok"`},
		{"/api/errors", http.StatusOK, `"error_type":"*errors.errorString"`},
		{"/api/runs/serve-run", http.StatusOK, `"run_id":"serve-run"`},
		{"/metrics", http.StatusOK, "go_goroutines"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", tt.target, nil))
		if w.Code != tt.status {
			t.Errorf("%s: status %d, want %d", tt.target, w.Code, tt.status)
		}
		if !strings.Contains(w.Body.String(), tt.body) {
			t.Errorf("%s: body missing %q", tt.target, tt.body)
		}
		if w.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s: missing CORS header", tt.target)
		}
	}
}
