package dispatch

import (
	"sync"
	"time"
)

// limiter is a fixed-window counter: at most max sends per window. A page
// stuck in a mutation loop or an intersection storm cannot flood the
// collector; excess checkpoints are dropped, never queued.
type limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	count   int
	resetAt time.Time
}

func newLimiter(max int, window time.Duration) *limiter {
	if max <= 0 {
		max = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return &limiter{max: max, window: window}
}

// allow consumes one slot. Returns false when the window is exhausted.
func (l *limiter) allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.resetAt) {
		l.count = 0
		l.resetAt = now.Add(l.window)
	}
	if l.count >= l.max {
		return false
	}
	l.count++
	return true
}
