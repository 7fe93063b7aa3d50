package api

import (
	"bytes"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/antonio/obsidian-task-archiver/internal/vault"
)

// handlePreview renders a vault document to HTML so integrations can show
// archived content without shipping their own markdown renderer.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path query parameter is required", http.StatusBadRequest)
		return
	}
	if !s.requireDocument(w, path) {
		return
	}
	lines, err := s.vault.ReadLines(path)
	if err != nil {
		s.respond(w, "", err)
		return
	}

	md := goldmark.New()
	var buf bytes.Buffer
	if err := md.Convert([]byte(vault.JoinLines(lines)), &buf); err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
