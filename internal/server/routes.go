package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/api/v1/health", s.app.HealthHandler.Health)

	// Per-session provider configuration
	mux.HandleFunc("/api/v1/config", s.app.ConfigHandler.Config)

	// Core RAG flows
	mux.HandleFunc("/api/v1/ingest", s.app.IngestHandler.Ingest)
	mux.HandleFunc("/api/v1/ask", s.app.AskHandler.Ask)

	// Knowledge base introspection and management
	mux.HandleFunc("/api/v1/database/stats", s.app.DatabaseHandler.Stats)
	mux.HandleFunc("/api/v1/database/sources", s.app.DatabaseHandler.Sources)
	mux.HandleFunc("/api/v1/database/source/chunks", s.app.DatabaseHandler.SourceChunks)
	mux.HandleFunc("/api/v1/database/source", s.app.DatabaseHandler.DeleteSource)
	mux.HandleFunc("/api/v1/database/clear", s.app.DatabaseHandler.Clear)

	// Session lifecycle
	mux.HandleFunc("/api/v1/session/info", s.app.SessionHandler.Info)
	mux.HandleFunc("/api/v1/session", s.app.SessionHandler.Delete)

	return mux
}

// handleRoot answers health probes on the bare root path. Anything else
// under / is an unknown route.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.app.HealthHandler.Health(w, r)
}
