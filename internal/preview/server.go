// Package preview serves the packaged content tree over HTTP for local
// inspection: rendered posts and snippets, the snippet registry, copied
// assets, and a live-reload event stream.
package preview

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jkim-dev/vaultpack/internal/audit"
	"github.com/jkim-dev/vaultpack/internal/registry"
)

// Server exposes the output tree rooted at outRoot.
type Server struct {
	outRoot string
	reg     *registry.File
	audits  *audit.Store
	logger  *slog.Logger
}

// NewServer creates a preview Server over the given output root. audits may
// be nil; the status endpoint then omits gate counts.
func NewServer(outRoot string, reg *registry.File, audits *audit.Store, logger *slog.Logger) *Server {
	return &Server{outRoot: outRoot, reg: reg, audits: audits, logger: logger}
}

// Router builds the chi router. sseHandler, if non-nil, is mounted at
// GET /events.
func (s *Server) Router(sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	r.Get("/api/status", s.Status)
	r.Get("/api/registry", s.Registry)
	r.Get("/posts/{slug}", s.Post)
	r.Get("/posts/{slug}/{asset}", s.Asset)
	r.Get("/snippets/{slug}", s.Snippet)
	r.Get("/", s.Index)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Status handles GET /api/status, summarizing the packaged tree and today's
// gate activity.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	posts, err := s.listDir("posts")
	if err != nil {
		s.logger.Error("list posts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	snippets, err := s.listDir("snippets")
	if err != nil {
		s.logger.Error("list snippets failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	status := map[string]any{
		"posts":    len(posts),
		"snippets": len(snippets),
	}
	if s.audits != nil {
		n, err := s.audits.CountForDay(r.Context(), time.Now().UTC())
		if err != nil {
			s.logger.Error("count gate events failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		status["gate_calls_today"] = n
	}
	writeJSON(w, http.StatusOK, status)
}

// Registry handles GET /api/registry, returning the snippet registry as a
// slug-keyed JSON object.
func (s *Server) Registry(w http.ResponseWriter, r *http.Request) {
	entries, err := s.reg.Load()
	if err != nil {
		s.logger.Error("registry load failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Index handles GET /, listing the packaged posts.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	slugs, err := s.listDir("posts")
	if err != nil {
		s.logger.Error("list posts failed", slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("<h1>Packaged posts</h1>\n<ul>\n")
	for _, slug := range slugs {
		b.WriteString(`<li><a href="/posts/` + slug + `">` + slug + "</a></li>\n")
	}
	b.WriteString("</ul>\n")
	s.writePage(w, "vaultpack preview", b.String())
}

// Post handles GET /posts/{slug}, rendering the packaged page as HTML.
func (s *Server) Post(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "posts")
}

// Snippet handles GET /snippets/{slug}.
func (s *Server) Snippet(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "snippets")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, section string) {
	slug := chi.URLParam(r, "slug")
	path, err := s.safeJoin(section, slug, "index.mdx")
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("read page failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	rendered, err := renderMarkdown(data)
	if err != nil {
		s.logger.Error("render failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writePage(w, slug, rendered)
}

// Asset handles GET /posts/{slug}/{asset}, serving images copied next to a
// post.
func (s *Server) Asset(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	asset := chi.URLParam(r, "asset")
	path, err := s.safeJoin("posts", slug, asset)
	if err != nil {
		http.Error(w, "bad path", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(pageShell(title, body)))
}

// listDir returns the sub-directory names under outRoot/section, which is
// the set of packaged slugs.
func (s *Server) listDir(section string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.outRoot, section))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// safeJoin resolves parts under outRoot and rejects traversal.
func (s *Server) safeJoin(parts ...string) (string, error) {
	joined := filepath.Join(append([]string{s.outRoot}, parts...)...)
	cleaned := filepath.Clean(joined)
	if !strings.HasPrefix(cleaned, filepath.Clean(s.outRoot)+string(os.PathSeparator)) {
		return "", os.ErrPermission
	}
	return cleaned, nil
}
