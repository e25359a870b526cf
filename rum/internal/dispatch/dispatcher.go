package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/sanitize"
	"github.com/hazyhaar/rumwatch/session"
)

// Config for creating a Dispatcher.
type Config struct {
	Session *session.Session
	// PageURL is the document URL; it becomes the sanitised referer field.
	PageURL string
	// BaseURL is the collector origin. Empty means the page's own origin.
	BaseURL string
	// RefererPolicy defaults to path-only.
	RefererPolicy sanitize.URLPolicy
	// RateMax per RateWindow. Defaults: 100 per minute.
	RateMax    int
	RateWindow time.Duration
	Transport  Transport
	Logger     *slog.Logger
}

// Dispatcher assembles, gates and transmits checkpoints. It implements
// session.Collector; Install wires it as the session's active collector and
// drains the pre-dispatcher queue.
type Dispatcher struct {
	sess      *session.Session
	endpoint  string
	typed     bool // endpoint shares the page's origin
	referer   string
	limiter   *limiter
	transport Transport
	sinks     *Router
	logger    *slog.Logger

	dispatched atomic.Int64
	gated      atomic.Int64
	limited    atomic.Int64
}

// New creates a Dispatcher. Mirror sinks receive every gated-through record,
// rate limit or not — they are local and cheap, the limit protects the
// collector.
func New(cfg Config, sinks ...Sink) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Transport == nil {
		cfg.Transport = NewBeacon(cfg.Logger)
	}
	if !cfg.RefererPolicy.Valid() {
		cfg.RefererPolicy = sanitize.PolicyPath
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = sanitize.URL(cfg.PageURL, sanitize.PolicyOrigin)
	}
	endpoint := fmt.Sprintf("%s/.rum/%d", base, cfg.Session.Weight())

	return &Dispatcher{
		sess:      cfg.Session,
		endpoint:  endpoint,
		typed:     sanitize.SameOrigin(endpoint, cfg.PageURL),
		referer:   sanitize.URL(cfg.PageURL, cfg.RefererPolicy),
		limiter:   newLimiter(cfg.RateMax, cfg.RateWindow),
		transport: cfg.Transport,
		sinks:     NewRouter(cfg.Logger, sinks...),
		logger:    cfg.Logger,
	}
}

// Install registers the dispatcher as the session's active collector. The
// session drains its pending queue through Dispatch in FIFO order, so nothing
// recorded before the dispatcher existed is lost or reordered.
func (d *Dispatcher) Install() error {
	return d.sess.Install(d)
}

// Dispatch implements session.Collector.
func (d *Dispatcher) Dispatch(kind checkpoint.Kind, data checkpoint.Data, timestamp int64) {
	if !d.sess.Sampled() {
		// No payload, no transport call, no mirror.
		d.gated.Add(1)
		return
	}

	rec := buildRecord(d.sess.Weight(), d.sess.ID(), d.referer, string(kind), data, timestamp)
	d.sinks.Send(context.Background(), rec)

	if !d.limiter.allow() {
		d.limited.Add(1)
		d.logger.Debug("dispatch: rate limited", "checkpoint", kind)
		return
	}

	body, err := rec.Marshal()
	if err != nil {
		d.logger.Debug("dispatch: marshal failed", "checkpoint", kind, "error", err)
		return
	}

	d.transport.Send(context.Background(), d.endpoint, body, d.typed)
	d.dispatched.Add(1)
}

// Endpoint returns the derived collector endpoint.
func (d *Dispatcher) Endpoint() string { return d.endpoint }

// Close shuts the mirror sinks down.
func (d *Dispatcher) Close() error { return d.sinks.Close() }

// Stats are point-in-time counters.
type Stats struct {
	Dispatched int64 `json:"dispatched"`
	Gated      int64 `json:"gated"`
	Limited    int64 `json:"limited"`
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched: d.dispatched.Load(),
		Gated:      d.gated.Load(),
		Limited:    d.limited.Load(),
	}
}
