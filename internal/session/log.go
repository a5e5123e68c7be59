package session

import (
	"time"

	"github.com/google/uuid"
)

// LogEntry is one line of the activity log. Entries are immutable once
// appended; the slice returned by Session.Log is append-ordered.
type LogEntry struct {
	ID        string
	Time      time.Time
	Text      string
	Separator bool // marks a new run boundary
	Alert     bool // user-facing alert, not just a status line

	// placeholder entries ("Connecting...") are removed when the
	// connection opens, mirroring the dashboard's behavior. This is the
	// one sanctioned exception to append-only.
	placeholder bool
}

func newLogEntry(text string) LogEntry {
	return LogEntry{
		ID:   uuid.NewString(),
		Time: time.Now(),
		Text: text,
	}
}
