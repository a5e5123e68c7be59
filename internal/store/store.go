// Package store persists campaign runs and their artifacts between
// commands, taking the place of the browser dashboard's local-storage
// hand-off blobs.
package store

import (
	"context"
	"time"
)

// Run is one campaign generation run.
type Run struct {
	ID        string
	Prompt    string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence for runs and per-agent artifacts.
// Readers tolerate missing rows: a lookup that finds nothing returns nil
// with no error, mirroring the dashboard's tolerance of absent storage
// keys.
type Repository interface {
	// UpsertRun creates or updates a run record.
	UpsertRun(ctx context.Context, run *Run) error

	// UpdateRunStatus updates only the status and updated_at of a run.
	UpdateRunStatus(ctx context.Context, runID, status string) error

	// GetRun retrieves a run, or nil if unknown.
	GetRun(ctx context.Context, runID string) (*Run, error)

	// LatestRun retrieves the most recently updated run, or nil.
	LatestRun(ctx context.Context) (*Run, error)

	// SaveArtifact stores (or overwrites) one agent's artifact JSON for
	// a run.
	SaveArtifact(ctx context.Context, runID, agent string, payload []byte) error

	// GetArtifact retrieves one agent's artifact JSON, or nil if absent.
	GetArtifact(ctx context.Context, runID, agent string) ([]byte, error)

	// ListArtifacts retrieves all artifacts of a run keyed by agent name.
	ListArtifacts(ctx context.Context, runID string) (map[string][]byte, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
