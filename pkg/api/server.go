// Package api serves stored run and error documents as JSON.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/nyc-design/neil-logger/pkg/console"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

type Config struct {
	LogCollection   string
	ErrorCollection string
}

type Server struct {
	reader  storage.Reader
	config  Config
	console *console.Writer
}

func NewServer(reader storage.Reader, config Config) *Server {
	return &Server{
		reader:  reader,
		config:  config,
		console: console.ForName("api"),
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.console.Warnf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
