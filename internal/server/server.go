// Package server exposes the triage engine over a thin JSON HTTP surface.
// Error mapping: loader failures are client errors, illegal lifecycle
// transitions answer 409 with a reset hint, and contained check failures
// surface inside an otherwise successful report.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dshills/datatriage/internal/dataset"
	"github.com/dshills/datatriage/internal/schema"
	"github.com/dshills/datatriage/internal/session"
)

// Server wires one session behind the HTTP control surface. The session's
// own mutex serializes the load → diagnose → decide sequence, so concurrent
// requests observe a consistent lifecycle.
type Server struct {
	cfg  Config
	sess *session.Session
}

// New builds a server around an existing session.
func New(cfg Config, sess *session.Session) *Server {
	return &Server{cfg: cfg, sess: sess}
}

// Router assembles the chi route tree with logging, panic recovery, and CORS.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/columns", s.handleColumns)
		r.Post("/target", s.handleSetTarget)
		r.Post("/diagnostics", s.handleDiagnostics)
		r.Post("/deep-analysis", s.handleDeepAnalysis)
		r.Post("/reset", s.handleReset)
		r.Get("/formats", s.handleFormats)
	})
	return r
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe() error {
	log.Printf("datatriage listening on %s", s.cfg.Addr)
	return http.ListenAndServe(s.cfg.Addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"state":  string(s.sess.State()),
	})
}

// handleUpload accepts a multipart file, loads it, and reports the resulting
// session state. Loader failures answer 400; a busy session answers 409.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	if err := s.sess.LoadBytes(data, header.Filename); err != nil {
		writeTriageError(w, err)
		return
	}
	cols, _ := s.sess.Columns()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":    string(s.sess.State()),
		"filename": header.Filename,
		"columns":  cols,
	})
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	cols, err := s.sess.Columns()
	if err != nil {
		writeTriageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": cols})
}

func (s *Server) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Column string `json:"column"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := s.sess.SetTarget(req.Column); err != nil {
		writeTriageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"target_column": s.sess.Target()})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	report, err := s.sess.RunDiagnostics()
	if err != nil {
		writeTriageError(w, err)
		return
	}
	writeReport(w, report, s.sess.Verdict())
}

func (s *Server) handleDeepAnalysis(w http.ResponseWriter, r *http.Request) {
	report, err := s.sess.RunDeepAnalysis()
	if err != nil {
		writeTriageError(w, err)
		return
	}
	writeReport(w, report, s.sess.Verdict())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sess.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"state": string(s.sess.State())})
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"supported": dataset.SupportedExtensions(),
		"known":     dataset.KnownExtensions(),
	})
}

// writeReport answers 200 even when some checks failed; the failed_checks
// section names them and the verdict covers whatever completed.
func writeReport(w http.ResponseWriter, report schema.Report, verdict schema.Verdict) {
	writeJSON(w, http.StatusOK, map[string]any{
		"verdict": verdict,
		"report":  report,
	})
}

// writeTriageError maps engine error kinds to HTTP status codes.
func writeTriageError(w http.ResponseWriter, err error) {
	var stateErr *session.StateError
	var parseErr *dataset.ParseError

	switch {
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  stateErr.Error(),
			"action": "reset required",
		})
	case errors.Is(err, dataset.ErrUnsupportedFormat), errors.As(err, &parseErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
