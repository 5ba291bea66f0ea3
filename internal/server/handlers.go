package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/sap/internal/lazyload"
	"github.com/roach88/sap/internal/model"
	"github.com/roach88/sap/internal/runner"
)

// maxLazyLoadBody bounds POST /lazy_load bodies.
const maxLazyLoadBody = 1 << 20

// RequestIDHeader carries the lazy-load request id.
const RequestIDHeader = "X-Request-Id"

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/", s.handleRoot)
	r.Get("/wtf", s.handleWTF)
	r.Get("/hello", s.handleHello)
	r.Get("/all_data", s.handleAllData)
	r.Post("/lazy_load", s.handleLazyLoad)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/refresh", s.handleRefresh)
	r.Post("/refresh", s.handleRefresh)
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	endpoints := map[string]string{
		"/wtf":      "Server type identification",
		"/hello":    "Provider information",
		"/all_data": "All SAObject data",
		"/health":   "Health probe",
		"/status":   "Runner status",
		"/refresh":  "Trigger a refresh",
	}
	if s.proto.Supported() {
		endpoints["/lazy_load"] = "Lazy load data with query scope"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":   s.info.Name,
		"endpoints": endpoints,
		"status":    "running",
	})
}

func (s *Server) handleWTF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"type": "SAP"})
}

func (s *Server) handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func (s *Server) handleAllData(w http.ResponseWriter, r *http.Request) {
	snap := s.runner.Cached()
	etag := `"` + snap.Digest + `"`
	w.Header().Set("ETag", etag)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := model.MarshalCanonical(snap.Objects)
	if err != nil {
		// Published snapshots are canonical; this is a programming error.
		s.logger.Error("snapshot encoding failed", "cycle", snap.Cycle, "error", err)
		writeError(w, http.StatusInternalServerError, "snapshot encoding failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func matchesETag(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

type lazyLoadResponse struct {
	Objects []model.Object `json:"sa_objects"`
	Plan    string         `json:"plan"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Plan  string `json:"plan,omitempty"`
}

func (s *Server) handleLazyLoad(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxLazyLoadBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error(), lazyload.ErrCodeInvalidRequest)
		return
	}
	if len(body) > maxLazyLoadBody {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large", lazyload.ErrCodeInvalidRequest)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeError(w, http.StatusBadRequest, "no JSON data provided", lazyload.ErrCodeInvalidRequest)
		return
	}

	var req lazyload.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request: "+err.Error(), lazyload.ErrCodeInvalidRequest)
		return
	}

	resp, err := s.proto.Execute(r.Context(), req)
	if err != nil {
		var re *lazyload.RequestError
		if errors.As(err, &re) {
			writeError(w, http.StatusBadRequest, re.Message, re.Code)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}

	w.Header().Set(RequestIDHeader, resp.RequestID)
	if resp.Error != nil {
		writeJSON(w, http.StatusOK, errorResponse{
			Error: resp.Error.Message,
			Code:  string(resp.Error.Code),
			Plan:  resp.Plan,
		})
		return
	}
	writeJSON(w, http.StatusOK, lazyLoadResponse{Objects: resp.Objects, Plan: resp.Plan})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"count":  s.runner.Cached().Len(),
	})
}

type statusResponse struct {
	runner.Status
	Count int `json:"count"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status: s.runner.Status(),
		Count:  s.runner.Cached().Len(),
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.token != "" {
		got := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}

	err := s.runner.RunNow(false)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "refresh_started"})
	case runner.IsBusy(err):
		writeJSON(w, http.StatusConflict, map[string]string{"status": "refresh_busy"})
	case runner.IsStopped(err):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopped"})
	default:
		s.logger.Error("refresh failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), "")
	}
}

func writeError(w http.ResponseWriter, status int, msg string, code lazyload.ErrorCode) {
	writeJSON(w, status, errorResponse{Error: msg, Code: string(code)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}
