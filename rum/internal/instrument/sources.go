package instrument

import "context"

// Sources bundles the per-source entry channels trackers consume. Batch-shaped
// sources (intersection, load status, resources) deliver whole observer
// callbacks so in-batch ordering survives the relay; the rest deliver single
// entries.
type Sources struct {
	Page          chan PageInfo
	Intersections chan []IntersectionEntry
	LoadStatus    chan []LoadStatusEntry
	Resources     chan []ResourceEntry
	Lifecycle     chan LifecycleSignal
	Vitals        chan VitalEntry
	Interactions  chan InteractionEntry
}

// NewSources creates buffered source channels. The buffers absorb relay
// bursts; a full channel drops the oldest pressure onto the relay goroutine,
// never onto the page.
func NewSources() *Sources {
	return &Sources{
		Page:          make(chan PageInfo, 1),
		Intersections: make(chan []IntersectionEntry, 256),
		LoadStatus:    make(chan []LoadStatusEntry, 256),
		Resources:     make(chan []ResourceEntry, 256),
		Lifecycle:     make(chan LifecycleSignal, 8),
		Vitals:        make(chan VitalEntry, 64),
		Interactions:  make(chan InteractionEntry, 256),
	}
}

// Close closes every channel. Call only after the relay goroutine stopped.
func (s *Sources) Close() {
	close(s.Page)
	close(s.Intersections)
	close(s.LoadStatus)
	close(s.Resources)
	close(s.Lifecycle)
	close(s.Vitals)
	close(s.Interactions)
}

// Rearmer re-arms page-side observers against a subtree after new content
// finishes loading. The browser-backed controller implements it with script
// evaluation; tests install recording fakes.
type Rearmer interface {
	RearmBlock(ctx context.Context, path string) error
	RearmMedia(ctx context.Context, path string) error
	RearmForms(ctx context.Context, path string) error
}
