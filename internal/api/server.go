// Package api serves a read-only preview of a generation run.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docgen/internal/pipeline"
	"github.com/dgallion1/docgen/internal/provider"
	"github.com/dgallion1/docgen/internal/render"
	"github.com/dgallion1/docgen/internal/store"
)

// RunSource reports the state of the current run.
type RunSource interface {
	Snapshot() pipeline.RunSnapshot
}

// StatsSource exposes provider latency and usage.
type StatsSource interface {
	Model() string
	Stats() *provider.Stats
}

// Server is the HTTP preview server for docgen.
type Server struct {
	router    chi.Router
	artifacts store.Reader
	run       RunSource
	llm       StatsSource
	html      *render.HTMLConverter
	token     string
	log       *slog.Logger
}

// NewServer creates and configures the preview server. run and llm may be
// nil when serving a finished run directory.
func NewServer(artifacts store.Reader, run RunSource, llm StatsSource, token string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		artifacts: artifacts,
		run:       run,
		llm:       llm,
		html:      render.NewHTMLConverter(),
		token:     token,
		log:       log,
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

	r.Group(func(r chi.Router) {
		if s.token != "" {
			r.Use(PreviewAuth(s.token, s.log))
		}
		r.Use(NoStore)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/preview/"+string(store.Manuscript), http.StatusFound)
		})
		r.Get("/api/run", s.handleRun)
		r.Get("/api/stats/llm", s.handleLLMStats)
		r.Get("/preview/{artifact}", s.handlePreview)
		r.Get("/raw/{artifact}", s.handleRaw)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
