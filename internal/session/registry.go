package session

import (
	"log/slog"
	"sync"
)

// Registry tracks live sessions by run ID so other surfaces (the preview
// server, primarily) can reach a run in progress.
type Registry struct {
	mu     sync.RWMutex
	active map[string]*Session
	lastID string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]*Session)}
}

// Register adds a session, closing any previous session under the same run
// ID so exactly one stays live per run.
func (r *Registry) Register(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.active[s.RunID()]; ok && existing != s {
		if err := existing.Close(); err != nil {
			slog.Debug("close replaced session", "run_id", s.RunID(), "error", err)
		}
	}
	r.active[s.RunID()] = s
	r.lastID = s.RunID()
	slog.Info("Session registered", "run_id", s.RunID())
}

// Unregister removes a session if it is still the registered one.
func (r *Registry) Unregister(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.active[s.RunID()]; ok && current == s {
		delete(r.active, s.RunID())
		slog.Info("Session unregistered", "run_id", s.RunID())
	}
}

// Get returns the live session for a run ID, or nil.
func (r *Registry) Get(runID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[runID]
}

// Latest returns the most recently registered live session, or nil.
func (r *Registry) Latest() *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active[r.lastID]
}

// CloseAll tears down every registered session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.active {
		if err := s.Close(); err != nil {
			slog.Debug("close session", "run_id", id, "error", err)
		}
		delete(r.active, id)
	}
}
