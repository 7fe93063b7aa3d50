// Package api exposes the archiver to editor integrations over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/antonio/obsidian-task-archiver/internal/archiver"
	"github.com/antonio/obsidian-task-archiver/internal/config"
	"github.com/antonio/obsidian-task-archiver/internal/vault"
)

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	archiver *archiver.Archiver
	vault    *vault.Vault
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(arch *archiver.Archiver, v *vault.Vault, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		archiver: arch,
		vault:    v,
		log:      log,
		cfg:      cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/archive", s.handleArchive)
		r.Post("/api/delete", s.handleDelete)
		r.Post("/api/archive/task", s.handleArchiveTask)
		r.Post("/api/archive/heading", s.handleArchiveHeading)

		r.Get("/api/ops", s.handleListOps)
		r.Get("/api/ops/{opID}", s.handleGetOp)

		r.Get("/api/preview", s.handlePreview)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
