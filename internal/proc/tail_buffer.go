package proc

import "sync"

// tailBuffer holds the end of a child's stderr so a failing run can be
// logged with its last diagnostic lines. Writes never fail, so a full
// buffer cannot stall the child.
type tailBuffer struct {
	mu sync.Mutex

	maxBytes  int64
	buf       []byte
	truncated bool
}

func newTailBuffer(maxBytes int64) *tailBuffer {
	if maxBytes < 0 {
		maxBytes = 0
	}
	return &tailBuffer{maxBytes: maxBytes}
}

func (tb *tailBuffer) Write(p []byte) (int, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.maxBytes <= 0 {
		tb.truncated = true
		return len(p), nil
	}
	if int64(len(p)) >= tb.maxBytes {
		tb.buf = append(tb.buf[:0], p[int64(len(p))-tb.maxBytes:]...)
		tb.truncated = true
		return len(p), nil
	}
	tb.buf = append(tb.buf, p...)
	if int64(len(tb.buf)) > tb.maxBytes {
		over := int64(len(tb.buf)) - tb.maxBytes
		tb.buf = append(tb.buf[:0], tb.buf[over:]...)
		tb.truncated = true
	}
	return len(p), nil
}

// Snapshot copies the retained bytes and reports whether earlier output was
// dropped.
func (tb *tailBuffer) Snapshot() (b []byte, truncated bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if len(tb.buf) == 0 {
		return nil, tb.truncated
	}
	out := make([]byte, len(tb.buf))
	copy(out, tb.buf)
	return out, tb.truncated
}
