package registry

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves a registry File over HTTP.
type Server struct {
	file   *File
	logger *slog.Logger
	router *chi.Mux
}

// NewServer builds the registry HTTP handler.
func NewServer(file *File, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{file: file, logger: logger, router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/saps", s.handleSaps)
	s.router.Get("/wtf", s.handleWTF)
	s.router.Get("/health", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleSaps(w http.ResponseWriter, r *http.Request) {
	data, err := s.file.Read()
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("registry file not found", "path", s.file.Path())
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "saps.txt file not found"})
		return
	}
	if err != nil {
		s.logger.Error("registry read failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "error reading file: " + err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleWTF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"type": "Registry"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "sap-registry"})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     "SAP Registry",
		"description": "Serves SAP server endpoints from saps.txt",
		"endpoints": map[string]string{
			"/wtf":    "Server type identification",
			"/saps":   "SAP server endpoints (host:port format)",
			"/health": "Health check",
		},
		"status": "running",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
