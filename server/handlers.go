package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/iedon/docpage-go/site"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowRead(r.Method) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := map[string]any{"status": "ok", "pages": len(s.svc.Pages())}
	if loaded := s.svc.LoadedAt(); !loaded.IsZero() {
		payload["loadedAt"] = loaded.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handlePageMetadata(w http.ResponseWriter, r *http.Request) {
	if !allowRead(r.Method) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	meta, err := s.svc.PageMetadata(queryPath(r))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	if !allowRead(r.Method) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tree, _, err := s.svc.Render(r.Context(), queryPath(r))
	if err != nil {
		s.writeLookupError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(tree.String()))
}

func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	if !allowRead(r.Method) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Pages())
}

func (s *Server) handleSearchIndex(w http.ResponseWriter, r *http.Request) {
	if !allowRead(r.Method) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	payload := s.svc.SearchIndex()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if !allowRead(r.Method) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if target, ok := s.svc.AssetPath(r.URL.Path); ok {
		http.ServeFile(w, r, target)
		return
	}

	html, err := s.svc.RenderFullPage(r.Context(), r.URL.Path)
	if err != nil {
		if isNotFound(err) {
			s.writeNotFoundPage(w, r)
			return
		}
		s.logger.Error("render page", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(html)
}

func (s *Server) writeNotFoundPage(w http.ResponseWriter, r *http.Request) {
	notFound, err := s.svc.RenderNotFoundPage(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(notFound)
}

func (s *Server) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, site.ErrInvalidPath):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, site.ErrPageNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("lookup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, site.ErrPageNotFound) || errors.Is(err, site.ErrInvalidPath)
}

func queryPath(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("path"))
}

func allowRead(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead:
		return true
	default:
		return false
	}
}
