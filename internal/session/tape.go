package session

import "sync"

// FrameTape keeps the newest window of raw wire traffic for diagnostics.
// Bounded so a chatty backend (or a huge landing page frame) cannot grow
// memory without limit.
type FrameTape struct {
	mu    sync.Mutex
	buf   []byte
	w     int   // next write offset
	n     int   // bytes currently held
	total int64 // lifetime bytes written
}

// NewFrameTape creates a tape holding at most size bytes. Sizes <= 0 fall
// back to 64KB.
func NewFrameTape(size int) *FrameTape {
	if size <= 0 {
		size = 64 * 1024
	}
	return &FrameTape{buf: make([]byte, size)}
}

// Write appends p, discarding the oldest bytes once the tape is full.
// Implements io.Writer; never fails.
func (t *FrameTape) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total += int64(len(p))

	// Only the newest cap(t.buf) bytes can survive anyway.
	if len(p) >= len(t.buf) {
		copy(t.buf, p[len(p)-len(t.buf):])
		t.w = 0
		t.n = len(t.buf)
		return len(p), nil
	}

	end := copy(t.buf[t.w:], p)
	copy(t.buf, p[end:])
	t.w = (t.w + len(p)) % len(t.buf)
	t.n += len(p)
	if t.n > len(t.buf) {
		t.n = len(t.buf)
	}
	return len(p), nil
}

// Bytes returns the retained window, oldest first.
func (t *FrameTape) Bytes() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]byte, t.n)
	start := (t.w - t.n + len(t.buf)) % len(t.buf)
	m := copy(out, t.buf[start:])
	if m < t.n {
		copy(out[m:], t.buf[:t.w])
	}
	return out
}

// Len returns the number of retained bytes.
func (t *FrameTape) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Total returns lifetime bytes written, including discarded ones.
func (t *FrameTape) Total() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Reset drops the retained window but keeps the lifetime counter.
func (t *FrameTape) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w = 0
	t.n = 0
}
