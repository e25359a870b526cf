package track

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

// loadedValue is the attribute value signalling a block is ready for
// observation.
const loadedValue = "loaded"

// LoadWatch is the content-mutation watcher: a single per-page instance that
// reacts to load-status attribute changes. When a block reports "loaded" the
// page-side observers are re-armed against that subtree, so lazily injected
// content becomes observable without re-running full-page setup. Re-arming is
// idempotent on both sides (observer.observe and the fired set), so
// re-entrant mutation batches are harmless.
type LoadWatch struct {
	enabled  checkpoint.Set
	rearm    instrument.Rearmer
	logger   *slog.Logger
	attached atomic.Bool
}

// NewLoadWatch creates the watcher. Nothing happens until Attach.
func NewLoadWatch(enabled checkpoint.Set, rearm instrument.Rearmer, logger *slog.Logger) *LoadWatch {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoadWatch{enabled: enabled, rearm: rearm, logger: logger}
}

// Attach marks the watcher active. Returns false if it was already attached —
// the watcher is attached at most once per page lifetime, lazily, by the
// first component that needs re-scanning.
func (w *LoadWatch) Attach() bool {
	return w.attached.CompareAndSwap(false, true)
}

// Attached reports whether Attach has run.
func (w *LoadWatch) Attached() bool { return w.attached.Load() }

// Run consumes load-status batches until ctx ends or the channel closes.
func (w *LoadWatch) Run(ctx context.Context, entries <-chan []instrument.LoadStatusEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-entries:
			if !ok {
				return
			}
			w.Process(ctx, batch)
		}
	}
}

// Process re-arms observers for every entry in the batch whose new value is
// "loaded", restricted to checkpoint kinds present in the enabled set.
// Per-entry failures are logged and the batch continues.
func (w *LoadWatch) Process(ctx context.Context, batch []instrument.LoadStatusEntry) {
	if !w.attached.Load() {
		return
	}
	for _, e := range batch {
		if e.Value != loadedValue {
			continue
		}
		path := e.Node.Path
		if path == "" {
			continue
		}

		if w.enabled.Enabled(checkpoint.KindFormSubmit) || w.enabled.Enabled(checkpoint.KindClick) {
			if err := w.rearm.RearmForms(ctx, path); err != nil {
				w.logger.Debug("loadwatch: rearm forms", "path", path, "error", err)
			}
		}
		if w.enabled.Enabled(checkpoint.KindViewBlock) {
			if err := w.rearm.RearmBlock(ctx, path); err != nil {
				w.logger.Debug("loadwatch: rearm block", "path", path, "error", err)
			}
		}
		if w.enabled.Enabled(checkpoint.KindViewMedia) {
			if err := w.rearm.RearmMedia(ctx, path); err != nil {
				w.logger.Debug("loadwatch: rearm media", "path", path, "error", err)
			}
		}
	}
}
