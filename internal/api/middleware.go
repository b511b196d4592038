package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// previewCookie remembers a token given in the query string, so links and
// redirects inside the preview keep working in a browser.
const previewCookie = "docgen_preview"

// PreviewAuth requires the preview token as a bearer header, a ?token=
// query parameter or the preview cookie. A valid query token sets the cookie.
func PreviewAuth(token string, log *slog.Logger) func(http.Handler) http.Handler {
	valid := func(given string) bool {
		return given != "" && subtle.ConstantTimeCompare([]byte(given), []byte(token)) == 1
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				if valid(auth) {
					next.ServeHTTP(w, r)
					return
				}
				log.Warn("rejected preview token", "source", "header", "path", r.URL.Path, "remote", r.RemoteAddr)
				jsonError(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if q := r.URL.Query().Get("token"); q != "" {
				if !valid(q) {
					log.Warn("rejected preview token", "source", "query", "path", r.URL.Path, "remote", r.RemoteAddr)
					jsonError(w, "invalid token", http.StatusUnauthorized)
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     previewCookie,
					Value:    q,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteStrictMode,
				})
				next.ServeHTTP(w, r)
				return
			}
			if c, err := r.Cookie(previewCookie); err == nil && valid(c.Value) {
				next.ServeHTTP(w, r)
				return
			}
			jsonError(w, "missing preview token", http.StatusUnauthorized)
		})
	}
}

// NoStore marks responses as uncacheable. Artifacts are rewritten while a
// run is in progress.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs each request with the artifact it touched. Polling
// endpoints log at debug level.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if r.URL.Path == "/health" || r.URL.Path == "/api/run" {
				level = slog.LevelDebug
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}
			if a := chi.URLParam(r, "artifact"); a != "" {
				attrs = append(attrs, "artifact", a)
			}
			log.Log(r.Context(), level, "preview request", attrs...)
		})
	}
}
