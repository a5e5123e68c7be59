// Package session implements the streaming campaign session: one websocket
// transport to the foundry backend, automatic reconnection, and projection
// of the event stream onto observable dashboard state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foundrylabs/foundryctl/internal/campaign"
	"github.com/foundrylabs/foundryctl/internal/protocol"
)

// Status is the session's coarse lifecycle state.
type Status string

// Session lifecycle states.
const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusRunning      Status = "running"
	StatusCompleted    Status = "completed"
	StatusErrored      Status = "errored"
	StatusDisconnected Status = "disconnected"
)

// Sentinel errors surfaced to callers.
var (
	// ErrEmptyPrompt rejects a Start with no prompt text.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrNotReady rejects a send while the transport is still connecting.
	ErrNotReady = errors.New("transport not ready")

	// ErrTornDown rejects operations after Close.
	ErrTornDown = errors.New("session torn down")
)

// Defaults for the reconnect and send-retry timers. The 3 second base is
// the backend dashboard's historical reconnect interval.
const (
	DefaultReconnectBase  = 3 * time.Second
	DefaultReconnectCap   = 30 * time.Second
	DefaultSendRetryDelay = time.Second
	defaultDialTimeout    = 15 * time.Second
)

// Options configures a Session. Dial is required.
type Options struct {
	Dial  DialFunc
	RunID string // generated if empty

	// Reconnect backoff: base delay doubling up to cap. MaxReconnects
	// caps consecutive failed attempts; 0 means retry forever.
	ReconnectBase time.Duration
	ReconnectCap  time.Duration
	MaxReconnects int

	// Delay before the single deferred retry of a send that found no
	// transport.
	SendRetryDelay time.Duration

	// Notify observes session changes. Called from session goroutines,
	// never under the session lock. Optional.
	Notify func(Notice)

	// OnFrame observes raw wire traffic ("in"/"out"). Optional.
	OnFrame func(dir string, frame []byte)

	// TapeSize bounds the raw-frame diagnostic tape.
	TapeSize int
}

// Session owns exactly one transport at a time and exposes the dashboard
// view state: status, activity log, latest snapshot, per-agent artifacts.
//
// All state is guarded by mu. Transport callbacks run on the read loop
// goroutine, timers on their own goroutines; notices are collected under
// the lock and delivered after it is released, so observers see changes in
// order without being able to deadlock the session.
type Session struct {
	opts Options

	mu         sync.Mutex
	status     Status
	transport  Transport
	connecting bool
	gen        int // connection generation; stale loops and timers bail out
	teardown   bool
	attempts   int // consecutive failed connects

	prompt       string
	pendingRetry bool
	retryTimer   *time.Timer
	reconnTimer  *time.Timer

	log         []LogEntry
	snapshot    *campaign.State
	rawSnapshot json.RawMessage
	artifacts   campaign.Artifacts

	pending []Notice // notices accumulated under mu

	tape *FrameTape
}

// New creates an idle session. Call Connect to open the transport.
func New(opts Options) (*Session, error) {
	if opts.Dial == nil {
		return nil, errors.New("session: Dial is required")
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.ReconnectBase <= 0 {
		opts.ReconnectBase = DefaultReconnectBase
	}
	if opts.ReconnectCap <= 0 {
		opts.ReconnectCap = DefaultReconnectCap
	}
	if opts.SendRetryDelay <= 0 {
		opts.SendRetryDelay = DefaultSendRetryDelay
	}
	return &Session{
		opts:   opts,
		status: StatusIdle,
		tape:   NewFrameTape(opts.TapeSize),
	}, nil
}

// RunID identifies this session's campaign run.
func (s *Session) RunID() string { return s.opts.RunID }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Prompt returns the prompt of the current run, if any.
func (s *Session) Prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Log returns a copy of the activity log.
func (s *Session) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogEntry, len(s.log))
	copy(out, s.log)
	return out
}

// Snapshot returns the most recent decoded state and its raw JSON. Both are
// nil before the first step event.
func (s *Session) Snapshot() (*campaign.State, json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, s.rawSnapshot
}

// Artifacts returns a copy of the per-agent artifact set.
func (s *Session) Artifacts() campaign.Artifacts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.artifacts
}

// Tape exposes the raw-frame diagnostic tape.
func (s *Session) Tape() *FrameTape { return s.tape }

// Connect opens a new transport, replacing any existing one. No-op while a
// dial is already in flight or after teardown.
func (s *Session) Connect() {
	s.mu.Lock()
	if s.teardown || s.connecting {
		s.mu.Unlock()
		return
	}

	// Exactly one transport per session: replace, never duplicate.
	if old := s.transport; old != nil {
		s.transport = nil
		if err := old.Close(); err != nil {
			slog.Debug("close replaced transport", "error", err)
		}
	}

	s.connecting = true
	s.gen++
	gen := s.gen
	s.setStatusLocked(StatusConnecting)
	s.appendPlaceholderLocked("STATUS: Connecting...")
	notices := s.takeNoticesLocked()
	s.mu.Unlock()
	s.deliver(notices)

	go s.dial(gen)
}

func (s *Session) dial(gen int) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDialTimeout)
	defer cancel()

	t, err := s.opts.Dial(ctx)

	s.mu.Lock()
	if s.teardown || gen != s.gen {
		s.mu.Unlock()
		if t != nil {
			_ = t.Close()
		}
		return
	}
	s.connecting = false

	if err != nil {
		// A failed dial behaves like an unexpected closure: log it and
		// let the reconnect path take over.
		s.appendLogLocked(newLogEntry("ERROR: Could not connect to server: " + err.Error()))
		s.setStatusLocked(StatusDisconnected)
		s.scheduleReconnectLocked()
		notices := s.takeNoticesLocked()
		s.mu.Unlock()
		s.deliver(notices)
		return
	}

	s.transport = t
	s.attempts = 0
	s.dropPlaceholdersLocked()
	s.appendLogLocked(newLogEntry("STATUS: Connected to server. Ready to run."))
	s.setStatusLocked(StatusConnected)
	notices := s.takeNoticesLocked()
	s.mu.Unlock()
	s.deliver(notices)

	go s.readLoop(t, gen)
}

func (s *Session) readLoop(t Transport, gen int) {
	for {
		frame, err := t.Read(context.Background())
		if err != nil {
			s.handleClosed(gen, err)
			return
		}
		s.handleFrame(gen, frame)
	}
}

func (s *Session) handleFrame(gen int, frame []byte) {
	_, _ = s.tape.Write(frame)
	if s.opts.OnFrame != nil {
		s.opts.OnFrame("in", frame)
	}

	ev, err := protocol.Parse(frame)

	s.mu.Lock()
	if s.teardown || gen != s.gen {
		s.mu.Unlock()
		return
	}

	switch {
	case err != nil:
		// Both malformed envelopes and malformed inner payloads get one
		// error entry; the session carries on.
		s.appendLogLocked(newLogEntry("ERROR: Failed to parse server JSON: " + err.Error()))

	default:
		switch ev := ev.(type) {
		case *protocol.Step:
			s.applyStepLocked(ev)
		case *protocol.Done:
			s.completeLocked()
		case *protocol.StreamError:
			s.setStatusLocked(StatusErrored)
			s.appendLogLocked(newLogEntry("ERROR: " + ev.Message))
		}
	}

	notices := s.takeNoticesLocked()
	s.mu.Unlock()
	s.deliver(notices)
}

// applyStepLocked projects one step event: snapshot replacement is
// unconditional, artifact updates go through the reducer, and every step
// gets a log line even when the agent is unknown.
func (s *Session) applyStepLocked(step *protocol.Step) {
	s.snapshot = step.State
	s.rawSnapshot = step.Raw
	s.pending = append(s.pending, Notice{Kind: NoticeSnapshot, Status: s.status})

	agent := campaign.Agent(step.Node)
	if !campaign.Known(step.Node) {
		slog.Debug("step from unknown agent", "node", step.Node, "run_id", s.opts.RunID)
	} else if s.artifacts.Apply(agent, step.State) {
		s.pending = append(s.pending, Notice{Kind: NoticeArtifact, Status: s.status, Agent: agent})
	}

	s.appendLogLocked(newLogEntry(campaign.LogLine(step.Node, step.State)))
}

// completeLocked handles the done event: terminal state, transport closed
// exactly once, no reconnect ever scheduled afterwards.
func (s *Session) completeLocked() {
	s.appendLogLocked(newLogEntry("STATUS: Campaign Complete!"))
	s.setStatusLocked(StatusCompleted)
	s.teardown = true
	s.stopTimersLocked()
	if t := s.transport; t != nil {
		s.transport = nil
		if err := t.Close(); err != nil {
			slog.Debug("close transport on completion", "error", err)
		}
	}
}

func (s *Session) handleClosed(gen int, err error) {
	s.mu.Lock()
	if s.teardown || gen != s.gen {
		s.mu.Unlock()
		return
	}

	slog.Debug("transport closed unexpectedly", "error", err, "run_id", s.opts.RunID)
	s.transport = nil
	s.setStatusLocked(StatusDisconnected)
	s.appendLogLocked(newLogEntry("STATUS: Disconnected. Trying to reconnect..."))
	s.scheduleReconnectLocked()
	notices := s.takeNoticesLocked()
	s.mu.Unlock()
	s.deliver(notices)
}

// scheduleReconnectLocked arms the reconnect timer with exponential backoff
// (base doubling to cap) and an optional attempt cap.
func (s *Session) scheduleReconnectLocked() {
	if s.opts.MaxReconnects > 0 && s.attempts >= s.opts.MaxReconnects {
		e := newLogEntry(fmt.Sprintf("ERROR: Giving up after %d reconnect attempts.", s.attempts))
		e.Alert = true
		s.appendLogLocked(e)
		return
	}

	delay := s.opts.ReconnectBase << s.attempts
	if delay > s.opts.ReconnectCap || delay <= 0 {
		delay = s.opts.ReconnectCap
	}
	s.attempts++

	gen := s.gen
	s.reconnTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		stale := s.teardown || gen != s.gen
		s.mu.Unlock()
		if stale {
			return
		}
		s.Connect()
	})
}

// Start validates the prompt and sends the initial-prompt message, marking
// the session running. With no transport it connects and arms exactly one
// deferred retry; while a dial is in flight it fails fast with ErrNotReady.
func (s *Session) Start(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}

	s.mu.Lock()
	if s.teardown {
		s.mu.Unlock()
		return ErrTornDown
	}
	s.prompt = prompt

	if s.connecting {
		s.mu.Unlock()
		return ErrNotReady
	}

	if s.transport == nil {
		if s.pendingRetry {
			s.mu.Unlock()
			return ErrNotReady
		}
		s.pendingRetry = true
		s.armSendRetryLocked()
		s.mu.Unlock()
		s.Connect()
		return nil
	}

	err := s.sendStartLocked()
	notices := s.takeNoticesLocked()
	s.mu.Unlock()
	s.deliver(notices)
	return err
}

// armSendRetryLocked schedules the one-shot deferred retry. A second
// failure surfaces an alert and drops the send; nothing is queued.
func (s *Session) armSendRetryLocked() {
	s.retryTimer = time.AfterFunc(s.opts.SendRetryDelay, func() {
		s.mu.Lock()
		if s.teardown || !s.pendingRetry {
			s.mu.Unlock()
			return
		}
		s.pendingRetry = false

		if s.transport == nil || s.connecting {
			e := newLogEntry("ALERT: Not connected to server. Please wait.")
			e.Alert = true
			s.appendLogLocked(e)
		} else if err := s.sendStartLocked(); err != nil {
			slog.Warn("deferred send failed", "error", err, "run_id", s.opts.RunID)
		}

		notices := s.takeNoticesLocked()
		s.mu.Unlock()
		s.deliver(notices)
	})
}

// sendStartLocked resets the snapshot, appends the run separator, and
// writes the initial-prompt frame.
func (s *Session) sendStartLocked() error {
	frame, err := protocol.EncodeStart(s.prompt)
	if err != nil {
		return err
	}

	s.snapshot = nil
	s.rawSnapshot = nil
	s.pending = append(s.pending, Notice{Kind: NoticeSnapshot, Status: s.status})

	e := newLogEntry("STATUS: Sending prompt to Foundry...")
	e.Separator = true
	s.appendLogLocked(e)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.transport.Write(ctx, frame); err != nil {
		s.appendLogLocked(newLogEntry("ERROR: Failed to send prompt: " + err.Error()))
		return fmt.Errorf("send prompt: %w", err)
	}
	if s.opts.OnFrame != nil {
		s.opts.OnFrame("out", frame)
	}

	s.setStatusLocked(StatusRunning)
	return nil
}

// Close is the deterministic teardown: after it returns no reconnect or
// deferred send will fire. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.teardown {
		s.mu.Unlock()
		return nil
	}
	s.teardown = true
	s.gen++ // invalidate in-flight dials and read loops
	s.stopTimersLocked()
	t := s.transport
	s.transport = nil
	s.mu.Unlock()

	if t != nil {
		return t.Close()
	}
	return nil
}

func (s *Session) stopTimersLocked() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.reconnTimer != nil {
		s.reconnTimer.Stop()
		s.reconnTimer = nil
	}
	s.pendingRetry = false
}

func (s *Session) setStatusLocked(st Status) {
	if s.status == st {
		return
	}
	s.status = st
	s.pending = append(s.pending, Notice{Kind: NoticeStatus, Status: st})
}

func (s *Session) appendLogLocked(e LogEntry) {
	s.log = append(s.log, e)
	kind := NoticeLog
	if e.Alert {
		kind = NoticeAlert
	}
	s.pending = append(s.pending, Notice{Kind: kind, Status: s.status, Entry: e})
}

func (s *Session) appendPlaceholderLocked(text string) {
	e := newLogEntry(text)
	e.placeholder = true
	s.appendLogLocked(e)
}

// dropPlaceholdersLocked removes "Connecting..." placeholders once the
// connection opens.
func (s *Session) dropPlaceholdersLocked() {
	kept := s.log[:0]
	for _, e := range s.log {
		if !e.placeholder {
			kept = append(kept, e)
		}
	}
	s.log = kept
}

func (s *Session) takeNoticesLocked() []Notice {
	out := s.pending
	s.pending = nil
	return out
}

func (s *Session) deliver(notices []Notice) {
	if s.opts.Notify == nil {
		return
	}
	for _, n := range notices {
		s.opts.Notify(n)
	}
}
