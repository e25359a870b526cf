// Package rum runs real-user-monitoring collection against a live page. It
// drives Chrome through Rod, installs a thin page-side relay that forwards
// raw observer entries, and keeps every decision that matters — at-most-once
// visibility, entry classification, sampling, the outbound record shape — in
// the Go trackers, where it is testable without a browser.
package rum

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/browser"
	"github.com/hazyhaar/rumwatch/rum/internal/config"
	"github.com/hazyhaar/rumwatch/rum/internal/dispatch"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
	"github.com/hazyhaar/rumwatch/rum/internal/track"
	"github.com/hazyhaar/rumwatch/sanitize"
	"github.com/hazyhaar/rumwatch/session"
)

// Agent is the top-level orchestrator. Create one per instrumented page.
type Agent struct {
	cfg     *config.Config
	enabled checkpoint.Set
	logger  *slog.Logger
	sinks   []dispatch.Sink

	transport dispatch.Transport // test override; nil means beacon
	sessionID string
	recent    *recentSink

	mgr     *browser.Manager
	tab     *browser.Tab
	relay   *instrument.Relay
	sources *instrument.Sources
	pipe    *pipeline

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started atomic.Bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithTransport overrides the beacon transport.
func WithTransport(t dispatch.Transport) Option {
	return func(a *Agent) { a.transport = t }
}

// WithSessionID fixes the session identifier instead of generating one.
func WithSessionID(id string) Option {
	return func(a *Agent) { a.sessionID = id }
}

// New creates an Agent from configuration. Sinks mirror every dispatched
// record locally.
func New(cfg *config.Config, logger *slog.Logger, sinks []dispatch.Sink, opts ...Option) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.ApplyDefaults()

	enabled := checkpoint.ParseSet(cfg.Checkpoint.Enabled)
	if enabled.Len() == 0 {
		enabled = checkpoint.ParseSet(kindNames(checkpoint.Kinds()))
	}

	a := &Agent{
		cfg:     cfg,
		enabled: enabled,
		logger:  logger,
		sinks:   sinks,
		recent:  newRecentSink(100),
		mgr: browser.NewManager(browser.Config{
			RemoteURL: cfg.Browser.Remote,
			Headless:  cfg.Browser.Headless,
			Stealth:   cfg.Browser.Stealth,
			Logger:    logger,
		}),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Start launches the browser, navigates, injects the relay into the loaded
// page, and begins collection. It returns once the pipeline is running.
func (a *Agent) Start(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return fmt.Errorf("rum: agent already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if _, err := a.mgr.Start(); err != nil {
		return fmt.Errorf("rum: %w", err)
	}

	tab, err := browser.OpenTab(a.mgr)
	if err != nil {
		a.mgr.Close()
		return fmt.Errorf("rum: %w", err)
	}
	a.tab = tab

	// Navigate first: an Eval'd script does not survive the document swap.
	// The relay injects into the loaded page, whose script reads navigation
	// state post hoc (buffered performance entries, document.referrer).
	if err := tab.Navigate(runCtx, a.cfg.Page.URL, a.cfg.Page.LoadWait); err != nil {
		a.shutdownBrowser()
		return fmt.Errorf("rum: %w", err)
	}

	a.sources = instrument.NewSources()
	a.relay = instrument.NewRelay(tab.Page, a.sources, a.relayOptions(), a.logger)
	if err := a.relay.Start(runCtx); err != nil {
		a.shutdownBrowser()
		return fmt.Errorf("rum: %w", err)
	}

	mirrors := append(append([]dispatch.Sink{}, a.sinks...), a.recent)
	a.pipe = newPipeline(a.cfg, a.enabled, a.relay, a.transport, a.logger, mirrors, a.sessionID)
	a.pipe.run(runCtx, a.sources, &a.wg)
	if err := a.pipe.install(); err != nil {
		return fmt.Errorf("rum: %w", err)
	}

	a.logger.Info("rum: collecting",
		"url", a.cfg.Page.URL,
		"session", a.pipe.sess.ID(),
		"sampled", a.pipe.sess.Sampled(),
		"endpoint", a.pipe.disp.Endpoint())
	return nil
}

// Stop shuts collection down: relay first, then trackers, then the browser.
func (a *Agent) Stop() {
	if !a.started.Load() {
		return
	}
	if a.relay != nil {
		a.relay.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.sources != nil {
		a.sources.Close()
	}
	if a.pipe != nil {
		a.pipe.disp.Close()
	}
	a.shutdownBrowser()
}

func (a *Agent) shutdownBrowser() {
	if a.tab != nil {
		a.tab.Close()
	}
	a.mgr.Close()
}

// Status is a point-in-time view for diagnostics.
type Status struct {
	SessionID   string         `json:"session_id"`
	Sampled     bool           `json:"sampled"`
	Weight      int            `json:"weight"`
	Endpoint    string         `json:"endpoint"`
	Enabled     []string       `json:"enabled"`
	Left        bool           `json:"left"`
	FiredBlocks int            `json:"fired_blocks"`
	Dispatch    dispatch.Stats `json:"dispatch"`
}

// Status returns the current collection state. Zero value before Start.
func (a *Agent) Status() Status {
	if a.pipe == nil {
		return Status{}
	}
	return Status{
		SessionID:   a.pipe.sess.ID(),
		Sampled:     a.pipe.sess.Sampled(),
		Weight:      a.pipe.sess.Weight(),
		Endpoint:    a.pipe.disp.Endpoint(),
		Enabled:     kindNames(a.enabled.Kinds()),
		Left:        a.pipe.lifecycle.Left(),
		FiredBlocks: a.pipe.visibility.FiredCount(),
		Dispatch:    a.pipe.disp.Stats(),
	}
}

// Recent returns the most recently mirrored records, newest first.
func (a *Agent) Recent(limit int) []Record {
	return a.recent.Recent(limit)
}

// relayOptions derives the page-side observer set from the enabled kinds.
// Load-status watching is on whenever any observer needs re-arming after
// deferred content loads.
func (a *Agent) relayOptions() instrument.Options {
	e := a.enabled
	rearmable := e.Enabled(checkpoint.KindViewBlock) ||
		e.Enabled(checkpoint.KindViewMedia) ||
		e.Enabled(checkpoint.KindClick) ||
		e.Enabled(checkpoint.KindFormSubmit)
	lifecycle := e.Enabled(checkpoint.KindEnter) ||
		e.Enabled(checkpoint.KindNavigate) ||
		e.Enabled(checkpoint.KindReload) ||
		e.Enabled(checkpoint.KindLeave)

	return instrument.Options{
		Attr:            a.cfg.Page.Attr,
		WatchBlocks:     e.Enabled(checkpoint.KindViewBlock),
		WatchMedia:      e.Enabled(checkpoint.KindViewMedia),
		WatchLoadStatus: rearmable,
		WatchResources: e.Enabled(checkpoint.KindLoadResource) ||
			e.Enabled(checkpoint.KindMissingResource),
		WatchLifecycle: lifecycle,
		WatchInteractions: e.Enabled(checkpoint.KindClick) ||
			e.Enabled(checkpoint.KindFormSubmit),
		Vitals: instrument.VitalsOptions{
			Enabled: a.cfg.Vitals.Enabled && e.Enabled(checkpoint.KindCWV),
			Src:     a.cfg.Vitals.Src,
			DelayMs: int(a.cfg.Vitals.Delay / time.Millisecond),
			Eager:   eagerVitals(a.cfg.Page.URL, a.cfg.Vitals.FlagHosts),
		},
	}
}

// pipeline bundles the session, dispatcher and trackers. It has no browser
// dependency: tests drive it with synthetic source channels and a fake
// re-armer.
type pipeline struct {
	sess        *session.Session
	disp        *dispatch.Dispatcher
	lifecycle   *track.Lifecycle
	visibility  *track.Visibility
	loadwatch   *track.LoadWatch
	resource    *track.Resource
	vitals      *track.Vitals
	interaction *track.Interaction
}

func newPipeline(cfg *config.Config, enabled checkpoint.Set, rearm instrument.Rearmer,
	transport dispatch.Transport, logger *slog.Logger, sinks []dispatch.Sink, sessionID string) *pipeline {

	var sessOpts []session.Option
	if sessionID != "" {
		sessOpts = append(sessOpts, session.WithID(sessionID))
	}
	sess := session.New(cfg.Sampling.Weight, decideSampling(cfg.Sampling), sessOpts...)

	policy := sanitize.URLPolicy(cfg.Dispatch.RefererPolicy)
	disp := dispatch.New(dispatch.Config{
		Session:       sess,
		PageURL:       cfg.Page.URL,
		BaseURL:       cfg.Dispatch.BaseURL,
		RefererPolicy: policy,
		RateMax:       cfg.Dispatch.RateMax,
		RateWindow:    cfg.Dispatch.RateWindow,
		Transport:     transport,
		Logger:        logger,
	}, sinks...)

	emit := func(cp checkpoint.Checkpoint) { sess.Record(cp) }

	return &pipeline{
		sess:        sess,
		disp:        disp,
		lifecycle:   track.NewLifecycle(enabled, emit, logger),
		visibility:  track.NewVisibility(enabled, emit, logger),
		loadwatch:   track.NewLoadWatch(enabled, rearm, logger),
		resource:    track.NewResource(enabled, cfg.Page.URL, emit, logger),
		vitals:      track.NewVitals(enabled, emit, logger),
		interaction: track.NewInteraction(enabled, emit, logger),
	}
}

// run starts one goroutine per source channel. The load watcher attaches
// immediately: the page relay only starts reporting attribute flips after
// injection, so there is no pre-attach window to miss.
func (p *pipeline) run(ctx context.Context, src *instrument.Sources, wg *sync.WaitGroup) {
	p.loadwatch.Attach()

	wg.Add(5)
	go func() { defer wg.Done(); p.lifecycle.Run(ctx, src.Page, src.Lifecycle) }()
	go func() { defer wg.Done(); p.visibility.Run(ctx, src.Intersections) }()
	go func() { defer wg.Done(); p.loadwatch.Run(ctx, src.LoadStatus) }()
	go func() { defer wg.Done(); p.resource.Run(ctx, src.Resources) }()
	go func() {
		defer wg.Done()
		var inner sync.WaitGroup
		inner.Add(2)
		go func() { defer inner.Done(); p.vitals.Run(ctx, src.Vitals) }()
		go func() { defer inner.Done(); p.interaction.Run(ctx, src.Interactions) }()
		inner.Wait()
	}()
}

// install wires the dispatcher as the session collector, draining anything
// the trackers recorded while the page was still loading.
func (p *pipeline) install() error {
	return p.disp.Install()
}

// eagerVitals reports whether the page host carries the eager-reporting
// flag: CLS and LCP then report every intermediate change.
func eagerVitals(pageURL string, hosts []string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return false
	}
	for _, h := range hosts {
		if strings.EqualFold(h, u.Host) || strings.EqualFold(h, u.Hostname()) {
			return true
		}
	}
	return false
}

// decideSampling draws the 1-in-weight collection decision, unless forced.
func decideSampling(cfg config.SamplingConfig) bool {
	switch cfg.Force {
	case "on":
		return true
	case "off":
		return false
	}
	weight := cfg.Weight
	if weight <= 0 {
		weight = 100
	}
	return rand.IntN(weight) == 0
}

func kindNames(kinds []checkpoint.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
