package preview

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/foundrylabs/foundryctl/internal/store"
)

// fakeRepo is an in-memory store.Repository for handler tests.
type fakeRepo struct {
	runs      []*store.Run
	artifacts map[string]map[string][]byte
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{artifacts: make(map[string]map[string][]byte)}
}

func (f *fakeRepo) UpsertRun(_ context.Context, run *store.Run) error {
	f.runs = append(f.runs, run)
	return nil
}

func (f *fakeRepo) UpdateRunStatus(_ context.Context, runID, status string) error {
	for _, r := range f.runs {
		if r.ID == runID {
			r.Status = status
		}
	}
	return nil
}

func (f *fakeRepo) GetRun(_ context.Context, runID string) (*store.Run, error) {
	for _, r := range f.runs {
		if r.ID == runID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) LatestRun(context.Context) (*store.Run, error) {
	if len(f.runs) == 0 {
		return nil, nil
	}
	return f.runs[len(f.runs)-1], nil
}

func (f *fakeRepo) SaveArtifact(_ context.Context, runID, agent string, payload []byte) error {
	if f.artifacts[runID] == nil {
		f.artifacts[runID] = make(map[string][]byte)
	}
	f.artifacts[runID][agent] = payload
	return nil
}

func (f *fakeRepo) GetArtifact(_ context.Context, runID, agent string) ([]byte, error) {
	return f.artifacts[runID][agent], nil
}

func (f *fakeRepo) ListArtifacts(_ context.Context, runID string) (map[string][]byte, error) {
	return f.artifacts[runID], nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }
func (f *fakeRepo) Close() error               { return nil }

func seedRun(f *fakeRepo, id string) {
	now := time.Now()
	f.UpsertRun(context.Background(),
		&store.Run{ID: id, Prompt: "p", Status: "completed", CreatedAt: now, UpdatedAt: now})
}

func TestLandingPagePlaceholder(t *testing.T) {
	srv := NewServer(nil, newFakeRepo(), t.TempDir())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "No landing page yet") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestLandingPageFromStore(t *testing.T) {
	repo := newFakeRepo()
	seedRun(repo, "run-1")
	repo.SaveArtifact(context.Background(), "run-1", "web_agent",
		[]byte(`{"landing_page_code":"<html><body>Generated!</body></html>"}`))

	srv := NewServer(nil, repo, t.TempDir())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(rec.Body.String(), "Generated!") {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("content-type = %q", ct)
	}
}

func TestStateFromStore(t *testing.T) {
	repo := newFakeRepo()
	seedRun(repo, "run-1")
	repo.SaveArtifact(context.Background(), "run-1", "planner_agent", []byte(`{"topic":"x"}`))

	srv := NewServer(nil, repo, t.TempDir())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var out struct {
		RunID     string                     `json:"run_id"`
		Live      bool                       `json:"live"`
		Artifacts map[string]json.RawMessage `json:"artifacts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.RunID != "run-1" || out.Live {
		t.Errorf("out = %+v", out)
	}
	if string(out.Artifacts["planner_agent"]) != `{"topic":"x"}` {
		t.Errorf("artifacts = %v", out.Artifacts)
	}
}

func TestStateNoRuns(t *testing.T) {
	srv := NewServer(nil, newFakeRepo(), t.TempDir())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "detail") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestArtifactsEndpoint(t *testing.T) {
	repo := newFakeRepo()
	repo.SaveArtifact(context.Background(), "run-9", "brd_agent", []byte(`{"brd_url":"output/x.pdf"}`))

	srv := NewServer(nil, repo, t.TempDir())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/run-9/artifacts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/other/artifacts", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d", rec.Code)
	}
}

func TestBRDServingRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "brd.pdf"), []byte("pdf-bytes"), 0644)

	srv := NewServer(nil, newFakeRepo(), dir)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brd/brd.pdf", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "pdf-bytes" {
		t.Errorf("serve: status = %d body = %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brd/..%2Fsecret", nil))
	if rec.Code == http.StatusOK {
		t.Errorf("traversal should not succeed, status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/brd/.hidden", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("dotfile status = %d", rec.Code)
	}
}

func TestAssetRedirect(t *testing.T) {
	repo := newFakeRepo()
	seedRun(repo, "run-1")
	repo.SaveArtifact(context.Background(), "run-1", "design_agent",
		[]byte(`{"generated_assets":{"logo_url":"https://cdn.example.com/logo.png"}}`))

	srv := NewServer(nil, repo, t.TempDir())
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/logo_url", nil))
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://cdn.example.com/logo.png" {
		t.Errorf("location = %q", loc)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/banner_url", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := NewServer(nil, newFakeRepo(), t.TempDir())
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/state", nil))

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q", got)
	}
}
