package track

import (
	"context"
	"log/slog"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
	"github.com/hazyhaar/rumwatch/sanitize"
)

// largestPaintMetric is the metric that carries element attribution.
const largestPaintMetric = "LCP"

// Vitals forwards Core Web Vitals measurements as cwv checkpoints, one per
// measurement. The deferred script loading, double-injection check and eager
// reporting flag live page-side; this tracker only shapes and emits. The whole
// path is best-effort: a measurement that cannot be shaped is dropped.
type Vitals struct {
	enabled checkpoint.Set
	emit    Emit
	logger  *slog.Logger
}

// NewVitals creates the tracker.
func NewVitals(enabled checkpoint.Set, emit Emit, logger *slog.Logger) *Vitals {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vitals{enabled: enabled, emit: emit, logger: logger}
}

// Run consumes measurements until ctx ends or the channel closes.
func (v *Vitals) Run(ctx context.Context, entries <-chan instrument.VitalEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-entries:
			if !ok {
				return
			}
			v.Process(e)
		}
	}
}

// Process emits one cwv checkpoint for the measurement. For the
// largest-paint metric with attribution, the responsible element is named
// via target/source; when source resolution yields nothing, a sanitised
// snippet label stands in.
func (v *Vitals) Process(e instrument.VitalEntry) {
	if !v.enabled.Enabled(checkpoint.KindCWV) {
		return
	}
	if e.Name == "" {
		v.logger.Debug("vitals: unnamed measurement dropped")
		return
	}

	data := checkpoint.Data{
		"cwv": map[string]float64{e.Name: e.Value},
	}

	if e.Name == largestPaintMetric && e.Attribution != nil {
		node := *e.Attribution
		if target, ok := ResolveTarget(node); ok {
			data["target"] = target
		}
		if source, ok := ResolveSource(node); ok {
			data["source"] = source
		} else if label := SnippetLabel(sanitize.Snippet(node.Snippet, 100)); label != "" {
			data["source"] = label
		}
	}

	v.emit(checkpoint.At(checkpoint.KindCWV, data, e.At))
}
