// Package checkpoint defines the structured event records emitted by rumwatch.
// These are the public API contract: any consumer (collector, custom sinks,
// dispatch pipelines) imports this package to receive and process checkpoints.
package checkpoint

import "time"

// Kind is the name of a checkpoint event. The set of kinds is fixed; every
// tracker emits one or more of these and nothing else. Lifecycle restores
// (back_forward, prerender) reuse the browser's navigation type verbatim;
// they are not Known and cannot be configured individually — the navigate
// switch controls them.
type Kind string

const (
	// Lifecycle kinds.
	KindEnter    Kind = "enter"    // external entry, no usable referrer
	KindNavigate Kind = "navigate" // internal same-origin navigation
	KindReload   Kind = "reload"   // reload or self-referral
	KindLeave    Kind = "leave"    // page unload, at most once per page

	// Visibility kinds.
	KindViewBlock Kind = "viewblock" // a loaded content block became >=25% visible
	KindViewMedia Kind = "viewmedia" // a media element became >=25% visible

	// Interaction kinds.
	KindClick      Kind = "click"
	KindFormSubmit Kind = "formsubmit"

	// Measurement kinds.
	KindCWV             Kind = "cwv"             // one Core Web Vitals measurement
	KindLoadResource    Kind = "loadresource"    // slow same-host content/API fetch
	KindMissingResource Kind = "missingresource" // fetch that resolved to 404
)

// kinds lists every fixed kind in activation order.
var kinds = []Kind{
	KindEnter, KindNavigate, KindReload, KindLeave,
	KindViewBlock, KindViewMedia,
	KindClick, KindFormSubmit,
	KindCWV, KindLoadResource, KindMissingResource,
}

// Kinds returns the fixed kind list. The slice is a copy.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

// Known reports whether k is one of the fixed checkpoint kinds.
func Known(k Kind) bool {
	_, ok := registry[k]
	return ok
}

// Data carries the kind-specific fields of a checkpoint. Keys outside the
// dispatcher's allow-list are dropped at serialisation time, so trackers may
// attach what they like without risking leakage on the wire.
type Data map[string]any

// Checkpoint is a single named, timestamped event. Created by a tracker at
// detection time, consumed exactly once by the dispatcher, never mutated.
type Checkpoint struct {
	Kind      Kind  `json:"checkpoint"`
	Data      Data  `json:"data,omitempty"`
	Timestamp int64 `json:"timestamp"` // epoch milliseconds at detection
}

// New creates a checkpoint stamped with the current time.
func New(kind Kind, data Data) Checkpoint {
	return Checkpoint{Kind: kind, Data: data, Timestamp: time.Now().UnixMilli()}
}

// At creates a checkpoint with an explicit timestamp. Used when the detection
// source carries its own clock (performance entries, replayed queues).
func At(kind Kind, data Data, ts int64) Checkpoint {
	return Checkpoint{Kind: kind, Data: data, Timestamp: ts}
}
