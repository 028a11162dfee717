package api

import (
	"net/http"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", s.HandleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.HandleRun)
	mux.HandleFunc("GET /api/errors", s.HandleListErrors)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
