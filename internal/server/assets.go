package server

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sparod/melo/internal/jsonrpc"
)

// handleBrowserAsset resolves an asset through the browser and serves it,
// redirecting when the browser returns a remote URL.
func (s *Server) handleBrowserAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rest := chi.URLParam(r, "*")

	br, release, ok := s.reg.GetBrowser(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer release()

	asset, err := br.GetAsset(r.Context(), rest)
	if err != nil {
		writeKindError(w, err)
		return
	}
	if strings.HasPrefix(asset, "http://") || strings.HasPrefix(asset, "https://") {
		http.Redirect(w, r, asset, http.StatusFound)
		return
	}
	http.ServeFile(w, r, asset)
}

// handlePlayerAsset serves the current cover of a player.
func (s *Server) handlePlayerAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, release, ok := s.reg.GetPlayer(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer release()

	cover, mime, ok := p.Cover()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	_, _ = w.Write(cover)
}

// handleCover serves a cached cover file by name.
func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if s.cfg.CoverDir == "" || name != filepath.Base(name) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.CoverDir, name))
}

// handleUpload streams a PUT body into the named browser. A body read error
// cancels the upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rest := chi.URLParam(r, "*")

	br, release, ok := s.reg.GetBrowser(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer release()

	if err := br.PutMedia(r.Context(), "/"+rest, r.Body); err != nil {
		s.log.Warn("upload failed",
			zap.String("browser", id),
			zap.String("path", rest),
			zap.Error(err))
		writeKindError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// writeKindError maps an error kind to an HTTP status.
func writeKindError(w http.ResponseWriter, err error) {
	var kerr *jsonrpc.Error
	status := http.StatusInternalServerError
	if errors.As(err, &kerr) {
		switch kerr.Kind {
		case jsonrpc.KindBadRequest, jsonrpc.KindInvalidParams:
			status = http.StatusBadRequest
		case jsonrpc.KindNotFound:
			status = http.StatusNotFound
		case jsonrpc.KindConflict:
			status = http.StatusConflict
		case jsonrpc.KindUnauthorized:
			status = http.StatusForbidden
		}
	}
	http.Error(w, err.Error(), status)
}
