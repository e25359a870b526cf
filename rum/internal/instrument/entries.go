// Package instrument defines the typed observation entries relayed from the
// injected page script, and the binding listener that decodes them into
// per-source channels.
//
// instrument observes, it does not decide. Whether an entry becomes a
// checkpoint — at-most-once firing, enabled-kind gating, classification —
// is the track package's job.
package instrument

// Node describes the DOM element responsible for an entry. The page relay
// serialises it at observation time; trackers treat it as an immutable value,
// so a node vanishing from the document between detection and processing can
// never fault the pipeline.
type Node struct {
	Tag         string            `json:"tag"`
	ID          string            `json:"id,omitempty"`
	Classes     []string          `json:"classes,omitempty"`
	Attrs       map[string]string `json:"attrs,omitempty"` // href, src, alt, action, ...
	Path        string            `json:"path"`            // structural selector path, stable identity
	Block       string            `json:"block,omitempty"` // nearest content-block name
	BlockStatus string            `json:"block_status,omitempty"`
	Snippet     string            `json:"snippet,omitempty"`  // truncated outerHTML
	Detached    bool              `json:"detached,omitempty"` // left the document before relay
}

// WatchKind distinguishes the two visibility observation variants.
type WatchKind string

const (
	WatchBlock WatchKind = "block" // a single already-loaded content block
	WatchMedia WatchKind = "media" // media elements outside unloaded blocks
)

// IntersectionEntry is one IntersectionObserver record delivered at the 25%
// threshold. Entries arrive in observer-callback batches.
type IntersectionEntry struct {
	Watch WatchKind `json:"watch"`
	Node  Node      `json:"node"`
	Ratio float64   `json:"ratio"`
	At    int64     `json:"at"` // epoch milliseconds
}

// LoadStatusEntry is an attribute-change record on the block load-status
// attribute. Value carries the new attribute value.
type LoadStatusEntry struct {
	Node  Node   `json:"node"`
	Value string `json:"value"`
	At    int64  `json:"at"`
}

// ResourceEntry is a completed network timing entry.
type ResourceEntry struct {
	URL      string  `json:"url"`
	Status   int     `json:"status"`   // 0 when the browser withholds it
	Duration float64 `json:"duration"` // milliseconds
	At       int64   `json:"at"`
}

// PageInfo carries the entry-classification inputs, relayed once after load.
type PageInfo struct {
	URL             string `json:"url"`
	Referrer        string `json:"referrer"`
	NavigationType  string `json:"navigation_type"` // navigate, reload, back_forward, prerender
	VisibilityState string `json:"visibility_state"`
}

// LifecycleSignal is an exit signal. Both variants can fire for one unload,
// in either order.
type LifecycleSignal struct {
	Type string `json:"type"` // "hidden" | "pagehide"
	At   int64  `json:"at"`
}

// VitalEntry is one Core Web Vitals measurement. Attribution is set for the
// largest-paint metric when the page can name the responsible element.
type VitalEntry struct {
	Name        string  `json:"name"` // CLS, LCP, INP, TTFB, FCP
	Value       float64 `json:"value"`
	Attribution *Node   `json:"attribution,omitempty"`
	At          int64   `json:"at"`
}

// InteractionEntry is a click or form submission.
type InteractionEntry struct {
	Type string `json:"type"` // "click" | "formsubmit"
	Node Node   `json:"node"`
	At   int64  `json:"at"`
}
