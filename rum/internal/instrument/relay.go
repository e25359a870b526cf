package instrument

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed instrument.js
var instrumentJS []byte

const bindingName = "__rumwatch_relay"

// Options selects which page-side observers the relay installs. Derived from
// the enabled checkpoint set by the orchestrator.
type Options struct {
	Attr              string        `json:"attr"` // block load-status attribute
	WatchBlocks       bool          `json:"watch_blocks"`
	WatchMedia        bool          `json:"watch_media"`
	WatchLoadStatus   bool          `json:"watch_load_status"`
	WatchResources    bool          `json:"watch_resources"`
	WatchLifecycle    bool          `json:"watch_lifecycle"`
	WatchInteractions bool          `json:"watch_interactions"`
	Vitals            VitalsOptions `json:"vitals"`
}

// VitalsOptions controls the deferred web-vitals loader.
type VitalsOptions struct {
	Enabled bool   `json:"enabled"`
	Src     string `json:"src"`
	DelayMs int    `json:"delay_ms"`
	Eager   bool   `json:"eager"` // report all intermediate CLS/LCP changes
}

// Relay wires one page's binding calls into Sources and implements Rearmer
// by script evaluation.
type Relay struct {
	page   *rod.Page
	src    *Sources
	opts   Options
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRelay creates a Relay for the given page.
func NewRelay(page *rod.Page, src *Sources, opts Options, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Attr == "" {
		opts.Attr = "data-block-status"
	}
	return &Relay{page: page, src: src, opts: opts, logger: logger}
}

// Start registers the binding, begins listening, and injects the page script
// into the current document. Call it after navigation: an Eval'd script lives
// in the current execution context and does not survive a document swap, only
// the binding does. The script is additionally registered to evaluate on new
// documents, so a page that navigates itself re-installs the instrumentation.
func (r *Relay) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})

	if err := (proto.RuntimeAddBinding{Name: bindingName}.Call(r.page)); err != nil {
		r.logger.Warn("instrument: addBinding failed (may already exist)", "error", err)
	}

	go r.listen()

	src, err := r.bootstrap()
	if err != nil {
		return err
	}
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: src}.Call(r.page)); err != nil {
		r.logger.Warn("instrument: register on-new-document script failed", "error", err)
	}
	// Eval needs a function form; the raw script form above runs as-is in
	// every new document.
	if _, err := r.page.Eval("() => {\n" + src + "\n}"); err != nil {
		return fmt.Errorf("instrument: inject relay script: %w", err)
	}

	r.logger.Debug("instrument: relay injected")
	return nil
}

// bootstrap composes the options assignment and the relay script into one
// plain-script source, so options are always set in the same execution
// context the script reads them from.
func (r *Relay) bootstrap() (string, error) {
	optsJSON, err := json.Marshal(r.opts)
	if err != nil {
		return "", fmt.Errorf("instrument: marshal options: %w", err)
	}
	return fmt.Sprintf("window.__rumwatch_options = %s;\n%s", optsJSON, instrumentJS), nil
}

// Stop cancels the listener and waits for it to exit, so the caller may close
// the source channels afterwards without racing a payload mid-flight. The
// page-side script stays installed; it fails silently once the binding
// disconnects.
func (r *Relay) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}

// listen receives binding calls and routes payloads to the source channels.
func (r *Relay) listen() {
	defer close(r.done)
	r.page.Context(r.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		if err := dispatchPayload(r.ctx, []byte(e.Payload), r.src, r.logger); err != nil {
			r.logger.Warn("instrument: relay payload dropped", "error", err)
		}
	})()
}

// RearmBlock re-arms the loaded-block visibility observer under path.
func (r *Relay) RearmBlock(ctx context.Context, path string) error {
	return r.rearm(ctx, "rearmBlock", path)
}

// RearmMedia re-arms the media visibility observer under path.
func (r *Relay) RearmMedia(ctx context.Context, path string) error {
	return r.rearm(ctx, "rearmMedia", path)
}

// RearmForms re-arms interaction listeners under path.
func (r *Relay) RearmForms(ctx context.Context, path string) error {
	return r.rearm(ctx, "rearmForms", path)
}

func (r *Relay) rearm(ctx context.Context, fn, path string) error {
	js := fmt.Sprintf(`(p) => window.__rumwatch && window.__rumwatch.%s(p)`, fn)
	if _, err := r.page.Context(ctx).Eval(js, path); err != nil {
		return fmt.Errorf("instrument: %s: %w", fn, err)
	}
	return nil
}
