// Package transcript records raw stream frames to newline-delimited JSON
// files, one file per run, for replay and debugging.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// record is one NDJSON line.
type record struct {
	Time  time.Time       `json:"ts"`
	Dir   string          `json:"dir"`
	Event string          `json:"event,omitempty"`
	Node  string          `json:"node,omitempty"`
	Frame json.RawMessage `json:"frame,omitempty"`
	Text  string          `json:"text,omitempty"`
}

// frameHead is the sniffable part of a stream frame.
type frameHead struct {
	Event string `json:"event"`
	Node  string `json:"node"`
}

// Recorder writes frames asynchronously so the read loop never blocks on
// disk. When the queue is full frames are dropped and counted rather than
// stalling the stream.
//
// The queue channel is never closed: a read-loop frame can race Close, so
// shutdown is signalled through stop instead and late frames are counted
// as dropped.
type Recorder struct {
	runID   string
	file    *os.File
	w       *bufio.Writer
	queue   chan record
	stop    chan struct{}
	done    chan struct{}
	dropped atomic.Int64

	closeOnce sync.Once
	closeErr  error
}

// New opens <dir>/<runID>.ndjson and starts the drain goroutine.
func New(dir, runID string, queueSize int) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript directory: %w", err)
	}

	path := filepath.Join(dir, runID+".ndjson")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript file: %w", err)
	}

	r := &Recorder{
		runID: runID,
		file:  file,
		w:     bufio.NewWriter(file),
		queue: make(chan record, queueSize),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go r.drain()
	return r, nil
}

// Path returns the transcript file location.
func (r *Recorder) Path() string {
	return r.file.Name()
}

// Frame enqueues one raw stream frame. dir is "in" for frames received
// from the server and "out" for frames sent to it. Never blocks.
func (r *Recorder) Frame(dir string, raw []byte) {
	rec := record{Time: time.Now(), Dir: dir}

	if json.Valid(raw) {
		var head frameHead
		if err := json.Unmarshal(raw, &head); err == nil {
			rec.Event = head.Event
			rec.Node = head.Node
		}
		rec.Frame = append(json.RawMessage(nil), raw...)
	} else {
		rec.Text = string(raw)
	}

	select {
	case <-r.stop:
		// Close already ran; the frame arrived too late to record.
		r.dropped.Add(1)
		return
	default:
	}

	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
	}
}

// Dropped reports how many frames were discarded, either because the
// queue was full or because they arrived after Close.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

func (r *Recorder) drain() {
	defer close(r.done)
	for {
		select {
		case rec := <-r.queue:
			r.writeRecord(rec)
		case <-r.stop:
			// Flush whatever was queued before the stop signal.
			for {
				select {
				case rec := <-r.queue:
					r.writeRecord(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) writeRecord(rec record) {
	line, err := json.Marshal(rec)
	if err != nil {
		slog.Warn("failed to marshal transcript record", "error", err)
		return
	}
	if _, err := r.w.Write(line); err != nil {
		slog.Warn("failed to write transcript record", "error", err)
		return
	}
	if err := r.w.WriteByte('\n'); err != nil {
		slog.Warn("failed to write transcript record", "error", err)
	}
}

// Close drains the queue, flushes buffered lines, and closes the file.
// Frame remains safe to call afterwards; late frames are counted as
// dropped.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done

		if dropped := r.dropped.Load(); dropped > 0 {
			slog.Warn("transcript dropped frames", "run_id", r.runID, "count", dropped)
		}
		if err := r.w.Flush(); err != nil {
			r.closeErr = fmt.Errorf("flush transcript: %w", err)
			r.file.Close()
			return
		}
		if err := r.file.Close(); err != nil {
			r.closeErr = fmt.Errorf("close transcript: %w", err)
		}
	})
	return r.closeErr
}
