package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Reports (CSV attachments)
	mux.Handle("/report", s.basicAuth(s.app.ReportHandler))

	// MCP endpoint (JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.basicAuth(s.app.MCPHandler))
	}

	// API routes
	mux.HandleFunc("/api/health", s.app.HealthHandler.ServeHTTP)
	mux.HandleFunc("/api/version", s.app.VersionHandler.ServeHTTP)
	mux.Handle("/api/ready", s.basicAuth(s.app.ReadyHandler))
	mux.Handle("/api/cache/{portfolioId}", s.basicAuth(s.app.CacheHandler))

	// 404 handler for everything else
	mux.HandleFunc("/", s.handleNotFound)

	return mux
}

// handleNotFound returns a JSON 404 for unmatched routes.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error":"Not Found","message":"The requested endpoint does not exist"}`))
}
