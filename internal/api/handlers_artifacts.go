package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docgen/internal/store"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// artifactParam resolves the {artifact} URL parameter, writing an error
// response when it is unknown.
func artifactParam(w http.ResponseWriter, r *http.Request) (store.Artifact, bool) {
	a := store.Artifact(chi.URLParam(r, "artifact"))
	if !a.Valid() {
		jsonError(w, "unknown artifact: "+string(a), http.StatusNotFound)
		return "", false
	}
	return a, true
}

func (s *Server) load(w http.ResponseWriter, r *http.Request, a store.Artifact) ([]byte, bool) {
	data, err := s.artifacts.Get(r.Context(), a)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, string(a)+" has not been written yet", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.Error("read artifact failed", "artifact", a, "error", err)
		jsonError(w, "failed to read artifact", http.StatusInternalServerError)
		return nil, false
	}
	return data, true
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	a, ok := artifactParam(w, r)
	if !ok {
		return
	}
	if !a.Markdown() {
		http.Redirect(w, r, "/raw/"+string(a), http.StatusFound)
		return
	}
	data, ok := s.load(w, r, a)
	if !ok {
		return
	}
	page, err := s.html.ToHTML(r.Context(), string(a), string(data))
	if err != nil {
		s.log.Error("preview render failed", "artifact", a, "error", err)
		jsonError(w, "failed to render preview", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	a, ok := artifactParam(w, r)
	if !ok {
		return
	}
	data, ok := s.load(w, r, a)
	if !ok {
		return
	}
	if a.Markdown() {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", docxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+string(a)+`"`)
	}
	w.Write(data)
}
