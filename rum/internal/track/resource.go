package track

import (
	"context"
	"log/slog"
	"math"
	"net/url"
	"regexp"

	"github.com/hazyhaar/rumwatch/checkpoint"
	"github.com/hazyhaar/rumwatch/rum/internal/instrument"
)

// resourceAllowPattern matches the content- and API-shaped paths worth
// reporting on the success path.
var resourceAllowPattern = regexp.MustCompile(`\.plain\.html$|\.json$|/api/|/media_`)

// Resource inspects completed network timing entries: slow or notable
// same-host content fetches become loadresource checkpoints, 404s become
// missingresource checkpoints. The two filters are mutually exclusive by
// construction — the 404 branch returns before the success filter runs, so
// one entry emits at most one checkpoint whatever its status code.
type Resource struct {
	enabled  checkpoint.Set
	pageHost string
	emit     Emit
	logger   *slog.Logger
}

// NewResource creates the tracker. pageURL is the document URL; entries on
// other hosts never match the success filter.
func NewResource(enabled checkpoint.Set, pageURL string, emit Emit, logger *slog.Logger) *Resource {
	if logger == nil {
		logger = slog.Default()
	}
	host := ""
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Host
	}
	return &Resource{enabled: enabled, pageHost: host, emit: emit, logger: logger}
}

// SetPageURL updates the document host, for agents created before the page
// info arrived.
func (r *Resource) SetPageURL(pageURL string) {
	if u, err := url.Parse(pageURL); err == nil {
		r.pageHost = u.Host
	}
}

// Run consumes resource batches until ctx ends or the channel closes.
func (r *Resource) Run(ctx context.Context, entries <-chan []instrument.ResourceEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-entries:
			if !ok {
				return
			}
			r.Process(batch)
		}
	}
}

// Process runs both filters over the batch. A malformed entry is dropped and
// the rest of the batch continues.
func (r *Resource) Process(batch []instrument.ResourceEntry) {
	for _, e := range batch {
		r.process(e)
	}
}

func (r *Resource) process(e instrument.ResourceEntry) {
	u, err := url.Parse(e.URL)
	if err != nil || u.Host == "" {
		r.logger.Debug("resource: unparsable entry dropped", "url", e.URL)
		return
	}

	if e.Status == 404 {
		if r.enabled.Enabled(checkpoint.KindMissingResource) {
			r.emit(checkpoint.At(checkpoint.KindMissingResource, checkpoint.Data{
				"source": e.URL,
				"target": u.Hostname(),
			}, e.At))
		}
		return
	}

	if e.Status >= 400 {
		return
	}
	if !r.enabled.Enabled(checkpoint.KindLoadResource) {
		return
	}
	if u.Host != r.pageHost {
		return
	}
	if !resourceAllowPattern.MatchString(u.Path) {
		return
	}
	r.emit(checkpoint.At(checkpoint.KindLoadResource, checkpoint.Data{
		"source": e.URL,
		"target": int64(math.Round(e.Duration)),
	}, e.At))
}
