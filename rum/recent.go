package rum

import (
	"context"
	"sync"
)

// recentSink keeps the last n dispatched records in memory for the status
// tools. It is always wired, independent of configured sinks.
type recentSink struct {
	mu   sync.Mutex
	buf  []Record
	next int
	full bool
}

func newRecentSink(n int) *recentSink {
	if n <= 0 {
		n = 100
	}
	return &recentSink{buf: make([]Record, n)}
}

func (r *recentSink) Send(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

func (r *recentSink) Close() error { return nil }

// Recent returns up to limit records, newest first.
func (r *recentSink) Recent(limit int) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.buf)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]Record, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out
}
