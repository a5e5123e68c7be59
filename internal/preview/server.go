// Package preview serves the generated landing page and run artifacts
// over plain HTTP so they can be inspected in a browser.
package preview

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foundrylabs/foundryctl/internal/campaign"
	"github.com/foundrylabs/foundryctl/internal/session"
	"github.com/foundrylabs/foundryctl/internal/store"
)

//go:embed placeholder.html
var placeholderHTML []byte

// Server exposes the latest campaign's landing page and artifacts. Live
// sessions take priority over the store so the page refreshes mid-run.
type Server struct {
	registry    *session.Registry
	repo        store.Repository
	downloadDir string
}

// NewServer creates a preview server. registry may be nil when serving
// stored runs only.
func NewServer(registry *session.Registry, repo store.Repository, downloadDir string) *Server {
	return &Server{registry: registry, repo: repo, downloadDir: downloadDir}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/", s.handleLandingPage)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/state", s.handleState)
	r.Get("/api/runs/{runID}/artifacts", s.handleArtifacts)
	r.Get("/assets/{name}", s.handleAsset)
	r.Get("/brd/{filename}", s.handleBRD)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.repo != nil {
		if err := s.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": status})
}

// handleLandingPage serves the generated landing page HTML, falling back
// to a placeholder when no run has produced one yet.
func (s *Server) handleLandingPage(w http.ResponseWriter, r *http.Request) {
	if code := s.liveLandingPage(); code != "" {
		serveHTML(w, code)
		return
	}
	if code := s.storedLandingPage(r.Context()); code != "" {
		serveHTML(w, code)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(placeholderHTML)
}

func (s *Server) liveLandingPage() string {
	if s.registry == nil {
		return ""
	}
	sess := s.registry.Latest()
	if sess == nil {
		return ""
	}
	state, _ := sess.Snapshot()
	if state == nil || state.LandingPageCode == nil {
		return ""
	}
	return *state.LandingPageCode
}

func (s *Server) storedLandingPage(ctx context.Context) string {
	if s.repo == nil {
		return ""
	}
	run, err := s.repo.LatestRun(ctx)
	if err != nil || run == nil {
		return ""
	}
	payload, err := s.repo.GetArtifact(ctx, run.ID, string(campaign.AgentWeb))
	if err != nil || payload == nil {
		return ""
	}
	var artifact campaign.WebArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		slog.Warn("stored web artifact is malformed", "run_id", run.ID, "error", err)
		return ""
	}
	return artifact.LandingPageCode
}

// handleState returns the current campaign state, live if a session is
// running, otherwise the latest stored run's artifacts.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if s.registry != nil {
		if sess := s.registry.Latest(); sess != nil {
			state, raw := sess.Snapshot()
			respondJSON(w, http.StatusOK, map[string]any{
				"run_id": sess.RunID(),
				"status": string(sess.Status()),
				"live":   true,
				"state":  stateOrRaw(state, raw),
			})
			return
		}
	}

	if s.repo == nil {
		respondError(w, http.StatusNotFound, "no active session")
		return
	}
	run, err := s.repo.LatestRun(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	if run == nil {
		respondError(w, http.StatusNotFound, "no runs recorded yet")
		return
	}
	artifacts, err := s.repo.ListArtifacts(r.Context(), run.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load artifacts")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"run_id":    run.ID,
		"status":    run.Status,
		"live":      false,
		"artifacts": rawArtifacts(artifacts),
	})
}

func (s *Server) handleArtifacts(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, http.StatusNotFound, "no store configured")
		return
	}
	runID := chi.URLParam(r, "runID")
	artifacts, err := s.repo.ListArtifacts(r.Context(), runID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load artifacts")
		return
	}
	if len(artifacts) == 0 {
		respondError(w, http.StatusNotFound, "no artifacts for run "+runID)
		return
	}
	respondJSON(w, http.StatusOK, rawArtifacts(artifacts))
}

// handleAsset redirects to a generated asset (logo, post image) by its
// key in the design artifact.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if url := s.assetURL(r.Context(), name); url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	respondError(w, http.StatusNotFound, "no asset named "+name)
}

func (s *Server) assetURL(ctx context.Context, name string) string {
	if s.registry != nil {
		if sess := s.registry.Latest(); sess != nil {
			a := sess.Artifacts()
			if a.Design != nil {
				if url, ok := a.Design.GeneratedAssets[name]; ok {
					return url
				}
			}
		}
	}
	if s.repo == nil {
		return ""
	}
	run, err := s.repo.LatestRun(ctx)
	if err != nil || run == nil {
		return ""
	}
	payload, err := s.repo.GetArtifact(ctx, run.ID, string(campaign.AgentDesign))
	if err != nil || payload == nil {
		return ""
	}
	var artifact campaign.DesignArtifact
	if err := json.Unmarshal(payload, &artifact); err != nil {
		return ""
	}
	return artifact.GeneratedAssets[name]
}

// handleBRD serves a downloaded BRD file. The filename is restricted to a
// single path component to keep requests inside the download directory.
func (s *Server) handleBRD(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		respondError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(s.downloadDir, filename)
	if _, err := os.Stat(path); err != nil {
		respondError(w, http.StatusNotFound, "file not found")
		return
	}
	http.ServeFile(w, r, path)
}

func serveHTML(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(code))
}

func stateOrRaw(state *campaign.State, raw json.RawMessage) any {
	if state != nil {
		return state
	}
	if len(raw) > 0 {
		return raw
	}
	return nil
}

func rawArtifacts(artifacts map[string][]byte) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(artifacts))
	for agent, payload := range artifacts {
		if json.Valid(payload) {
			out[agent] = json.RawMessage(payload)
		} else {
			quoted, _ := json.Marshal(string(payload))
			out[agent] = quoted
		}
	}
	return out
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"detail": message})
}

// ListenAndServe runs the preview server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("preview server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
