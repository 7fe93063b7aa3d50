package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/antonio/obsidian-task-archiver/internal/editor"
	"github.com/antonio/obsidian-task-archiver/internal/extract"
	"github.com/antonio/obsidian-task-archiver/internal/vault"
)

type archiveRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode"` // "shallow" (default) or "deep"
}

type cursorRequest struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

type archiveResponse struct {
	Report string `json:"report"`
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	req, mode, ok := s.decodeArchive(w, r)
	if !ok || !s.requireDocument(w, req.Path) {
		return
	}
	report, err := s.archiver.ArchiveMatching(req.Path, mode)
	s.respond(w, report, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	req, mode, ok := s.decodeArchive(w, r)
	if !ok || !s.requireDocument(w, req.Path) {
		return
	}
	report, err := s.archiver.DeleteMatching(req.Path, mode)
	s.respond(w, report, err)
}

func (s *Server) decodeArchive(w http.ResponseWriter, r *http.Request) (archiveRequest, extract.Mode, bool) {
	var req archiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return req, 0, false
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return req, 0, false
	}
	switch req.Mode {
	case "", "shallow":
		return req, extract.Shallow, true
	case "deep":
		return req, extract.Deep, true
	default:
		jsonError(w, "mode must be shallow or deep", http.StatusBadRequest)
		return req, 0, false
	}
}

// handleArchiveTask archives the single task at the given cursor position.
// The API has no live editor, so the document itself acts as the editor
// collaborator: it is loaded into a buffer, mutated, and written back.
func (s *Server) handleArchiveTask(w http.ResponseWriter, r *http.Request) {
	s.handleCursorOp(w, r, s.archiver.ArchiveTaskAtCursor)
}

func (s *Server) handleArchiveHeading(w http.ResponseWriter, r *http.Request) {
	s.handleCursorOp(w, r, s.archiver.ArchiveHeadingAtCursor)
}

func (s *Server) handleCursorOp(w http.ResponseWriter, r *http.Request, op func(string, editor.Editor) (string, error)) {
	var req cursorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}
	if !s.requireDocument(w, req.Path) {
		return
	}
	lines, err := s.vault.ReadLines(req.Path)
	if err != nil {
		s.respond(w, "", err)
		return
	}
	buf := editor.NewBuffer(lines, s.archiver.Settings().Indent())
	buf.SetCursor(editor.Position{Line: req.Line, Column: req.Column})

	report, err := op(req.Path, buf)
	if err == nil {
		err = s.vault.WriteLines(req.Path, buf.Lines())
	}
	s.respond(w, report, err)
}

// requireDocument rejects operations on documents that do not exist yet; the
// vault reads a missing path as empty so destinations can be created, but
// operating on an absent source is a caller mistake.
func (s *Server) requireDocument(w http.ResponseWriter, path string) bool {
	ok, err := s.vault.Exists(path)
	if err != nil {
		s.respond(w, "", err)
		return false
	}
	if !ok {
		s.respond(w, "", fmt.Errorf("%w: %s", vault.ErrNotFound, path))
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, report string, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, vault.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, vault.ErrNotDocument):
			status = http.StatusConflict
		}
		jsonError(w, err.Error(), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(archiveResponse{Report: report})
}

func (s *Server) handleListOps(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"ops": s.archiver.Ops().Recent(100)})
}

func (s *Server) handleGetOp(w http.ResponseWriter, r *http.Request) {
	op, ok := s.archiver.Ops().Get(chi.URLParam(r, "opID"))
	if !ok {
		jsonError(w, "operation not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(op)
}
