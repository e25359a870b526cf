package track

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
	"github.com/hazyhaar/rumwatch/sanitize"
)

// ClassifyEntry maps the page entry inputs onto a checkpoint kind:
//
//  1. navigation type "reload" or self-referral → reload
//  2. any other non-"navigate" navigation type → that type verbatim
//     (back_forward restores, prerender activation)
//  3. same-origin referrer → navigate
//  4. otherwise → enter
func ClassifyEntry(referrer, currentURL, navType string) checkpoint.Kind {
	if navType == "reload" || referrer == currentURL {
		return checkpoint.KindReload
	}
	if navType != "" && navType != "navigate" {
		return checkpoint.Kind(navType)
	}
	if referrer != "" && sanitize.SameOrigin(referrer, currentURL) {
		return checkpoint.KindNavigate
	}
	return checkpoint.KindEnter
}

// Lifecycle classifies page entry and guards the single leave event. The left
// flag is the page-lifetime singleton: set once, never reset, so however many
// exit signals arrive (hidden and pagehide can both fire, in any order),
// exactly one leave checkpoint is emitted. Kinds outside the enabled set are
// never emitted; verbatim navigation types follow the navigate switch.
type Lifecycle struct {
	enabled checkpoint.Set
	emit    Emit
	logger  *slog.Logger
	left    atomic.Bool
}

// NewLifecycle creates the tracker. Only kinds present in enabled ever emit.
func NewLifecycle(enabled checkpoint.Set, emit Emit, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{enabled: enabled, emit: emit, logger: logger}
}

// Run consumes the one-shot page info and exit signals until ctx ends.
func (l *Lifecycle) Run(ctx context.Context, page <-chan instrument.PageInfo, signals <-chan instrument.LifecycleSignal) {
	for {
		select {
		case <-ctx.Done():
			return
		case info, ok := <-page:
			if !ok {
				page = nil
				continue
			}
			l.ProcessEntry(info)
		case sig, ok := <-signals:
			if !ok {
				return
			}
			l.ProcessExit(sig)
		}
	}
}

// ProcessEntry emits the entry-classification checkpoint. Every variant
// carries the referrer as source and the visibility state as target.
func (l *Lifecycle) ProcessEntry(info instrument.PageInfo) {
	kind := ClassifyEntry(info.Referrer, info.URL, info.NavigationType)
	gate := kind
	if !checkpoint.Known(kind) {
		// Verbatim navigation types (back_forward, prerender) cannot be
		// configured individually; they follow the navigate switch.
		gate = checkpoint.KindNavigate
	}
	if !l.enabled.Enabled(gate) {
		return
	}
	l.emit(checkpoint.New(kind, checkpoint.Data{
		"source": info.Referrer,
		"target": info.VisibilityState,
	}))
}

// ProcessExit fires the guarded leave checkpoint. Must never fail during
// unload: the gate, the flag flip and the emit are the whole body.
func (l *Lifecycle) ProcessExit(sig instrument.LifecycleSignal) {
	if !l.enabled.Enabled(checkpoint.KindLeave) {
		return
	}
	if !l.left.CompareAndSwap(false, true) {
		return
	}
	l.emit(checkpoint.At(checkpoint.KindLeave, nil, sig.At))
}

// Left reports whether the leave checkpoint already fired.
func (l *Lifecycle) Left() bool { return l.left.Load() }
