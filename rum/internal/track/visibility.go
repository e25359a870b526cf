package track

import (
	"context"
	"log/slog"
	"sync"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

// visibilityThreshold is the intersection ratio an element must reach.
const visibilityThreshold = 0.25

// Visibility fires a checkpoint the first time a watched element becomes at
// least 25% visible, then never again for that element. The page-side
// observer already unobserves after delivery, but intersection toggles,
// re-arms after content loads and relay replays can all hand the same node
// back — the fired set makes at-most-once hold regardless.
type Visibility struct {
	enabled checkpoint.Set
	emit    Emit
	logger  *slog.Logger

	mu    sync.Mutex
	fired map[string]bool // watch kind + node path → terminal
}

// NewVisibility creates the tracker. Only kinds present in enabled ever emit.
func NewVisibility(enabled checkpoint.Set, emit Emit, logger *slog.Logger) *Visibility {
	if logger == nil {
		logger = slog.Default()
	}
	return &Visibility{
		enabled: enabled,
		emit:    emit,
		logger:  logger,
		fired:   make(map[string]bool),
	}
}

// Run consumes intersection batches until ctx ends or the channel closes.
func (v *Visibility) Run(ctx context.Context, entries <-chan []instrument.IntersectionEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-entries:
			if !ok {
				return
			}
			v.Process(batch)
		}
	}
}

// Process handles one observer callback batch in delivery order.
func (v *Visibility) Process(batch []instrument.IntersectionEntry) {
	for _, e := range batch {
		v.process(e)
	}
}

func (v *Visibility) process(e instrument.IntersectionEntry) {
	var kind checkpoint.Kind
	switch e.Watch {
	case instrument.WatchBlock:
		kind = checkpoint.KindViewBlock
	case instrument.WatchMedia:
		kind = checkpoint.KindViewMedia
	default:
		v.logger.Debug("visibility: unknown watch kind", "watch", e.Watch)
		return
	}
	if !v.enabled.Enabled(kind) {
		return
	}
	if e.Ratio < visibilityThreshold {
		return
	}
	if e.Node.Detached || e.Node.Path == "" {
		// Gone from the document before processing: no checkpoint, no error.
		v.logger.Debug("visibility: stale target dropped", "path", e.Node.Path)
		return
	}

	key := string(e.Watch) + "|" + e.Node.Path
	v.mu.Lock()
	if v.fired[key] {
		v.mu.Unlock()
		return
	}
	v.fired[key] = true
	v.mu.Unlock()

	data := checkpoint.Data{}
	if target, ok := ResolveTarget(e.Node); ok {
		data["target"] = target
	}
	if source, ok := ResolveSource(e.Node); ok {
		data["source"] = source
	}
	v.emit(checkpoint.At(kind, data, e.At))
}

// FiredCount returns how many targets have reached the terminal state.
func (v *Visibility) FiredCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.fired)
}
