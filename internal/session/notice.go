package session

import "github.com/foundrylabs/foundryctl/internal/campaign"

// NoticeKind discriminates session change notifications.
type NoticeKind string

// Notice kinds delivered to the observer.
const (
	NoticeLog      NoticeKind = "log"
	NoticeStatus   NoticeKind = "status"
	NoticeSnapshot NoticeKind = "snapshot"
	NoticeArtifact NoticeKind = "artifact"
	NoticeAlert    NoticeKind = "alert"
)

// Notice is one observable session change. Notices are delivered outside
// the session lock: changes made under one lock hold arrive as an ordered
// batch, but batches drained by different goroutines (read loop, dial,
// timers) may interleave with each other.
type Notice struct {
	Kind   NoticeKind
	Status Status
	Entry  LogEntry
	Agent  campaign.Agent
}
