package track

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

// Interaction reports clicks and form submissions. The content-mutation
// watcher re-arms its page-side listeners when new blocks finish loading.
type Interaction struct {
	enabled checkpoint.Set
	emit    Emit
	logger  *slog.Logger
}

// NewInteraction creates the tracker.
func NewInteraction(enabled checkpoint.Set, emit Emit, logger *slog.Logger) *Interaction {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interaction{enabled: enabled, emit: emit, logger: logger}
}

// Run consumes interaction entries until ctx ends or the channel closes.
func (t *Interaction) Run(ctx context.Context, entries <-chan instrument.InteractionEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			t.Process(e)
		}
	}
}

// Process emits the matching interaction checkpoint, if enabled.
func (t *Interaction) Process(e instrument.InteractionEntry) {
	var kind checkpoint.Kind
	switch e.Type {
	case "click":
		kind = checkpoint.KindClick
	case "formsubmit":
		kind = checkpoint.KindFormSubmit
	default:
		t.logger.Debug("interaction: unknown type dropped", "type", e.Type)
		return
	}
	if !t.enabled.Enabled(kind) {
		return
	}

	data := checkpoint.Data{}
	if target, ok := ResolveTarget(e.Node); ok {
		data["target"] = target
	}
	if source, ok := ResolveSource(e.Node); ok {
		data["source"] = source
	}
	t.emit(checkpoint.At(kind, data, e.At))
}
