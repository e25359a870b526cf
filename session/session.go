// Package session holds the per-page collection state shared between the host
// embedding and the dispatch pipeline: the session identifiers, the sampling
// decision, and the FIFO queue of checkpoints recorded before a dispatcher
// installed itself.
//
// The sampling decision itself is computed elsewhere (1-in-weight, opt-out,
// whatever policy the embedder runs) — session only stores the outcome.
package session

import (
	"fmt"
	"sync"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/idgen"
)

// Collector consumes checkpoints. The dispatch package provides the real
// implementation; tests install callback collectors.
type Collector interface {
	Dispatch(kind checkpoint.Kind, data checkpoint.Data, timestamp int64)
}

// Session is the process-wide collection state for one page lifetime.
type Session struct {
	weight  int
	id      string
	sampled bool

	mu         sync.Mutex
	pending    []checkpoint.Checkpoint
	collector  Collector
	installing bool
}

// Option configures a Session.
type Option func(*Session)

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New creates a Session. weight is the sampling denominator the collector
// endpoint is derived from; sampled is the externally computed decision.
func New(weight int, sampled bool, opts ...Option) *Session {
	if weight <= 0 {
		weight = 100
	}
	s := &Session{
		weight:  weight,
		id:      idgen.NanoID(8)(),
		sampled: sampled,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Weight returns the sampling denominator.
func (s *Session) Weight() int { return s.weight }

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Sampled reports the externally computed sampling decision.
func (s *Session) Sampled() bool { return s.sampled }

// Record delivers a checkpoint to the installed collector, or buffers it in
// FIFO order when no collector has installed yet. Buffering happens regardless
// of the sampling decision — the gate belongs to the dispatcher, so a late
// policy change still sees the full queue.
func (s *Session) Record(cp checkpoint.Checkpoint) {
	s.mu.Lock()
	c := s.collector
	if c == nil {
		s.pending = append(s.pending, cp)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	c.Dispatch(cp.Kind, cp.Data, cp.Timestamp)
}

// Install sets the active collector exactly once and drains the pending queue
// through it in the order the checkpoints were recorded. The collector is
// published only after the drain finishes, so a Record arriving mid-drain is
// buffered behind the older checkpoints instead of overtaking them. A second
// install is an error — the first collector stays active.
func (s *Session) Install(c Collector) error {
	s.mu.Lock()
	if s.collector != nil || s.installing {
		s.mu.Unlock()
		return fmt.Errorf("session: collector already installed")
	}
	s.installing = true
	for len(s.pending) > 0 {
		queued := s.pending
		s.pending = nil
		s.mu.Unlock()
		for _, cp := range queued {
			c.Dispatch(cp.Kind, cp.Data, cp.Timestamp)
		}
		s.mu.Lock()
	}
	s.collector = c
	s.mu.Unlock()
	return nil
}

// PendingLen returns the number of buffered checkpoints. Mostly useful in
// tests and status surfaces.
func (s *Session) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
