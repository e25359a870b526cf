package checkpoint

// Domain classifies how a checkpoint kind is detected. The orchestrator
// activates one tracker per domain; a kind outside the registry activates
// nothing.
type Domain int

const (
	DomainLifecycle Domain = iota
	DomainVisibility
	DomainInteraction
	DomainResource
	DomainVitals
)

// registry is the static kind → domain table. Keeping it literal (rather than
// computed) means a new kind must be placed here deliberately, and tests can
// assert the table covers every declared kind.
var registry = map[Kind]Domain{
	KindEnter:    DomainLifecycle,
	KindNavigate: DomainLifecycle,
	KindReload:   DomainLifecycle,
	KindLeave:    DomainLifecycle,

	KindViewBlock: DomainVisibility,
	KindViewMedia: DomainVisibility,

	KindClick:      DomainInteraction,
	KindFormSubmit: DomainInteraction,

	KindCWV:             DomainVitals,
	KindLoadResource:    DomainResource,
	KindMissingResource: DomainResource,
}

// DomainOf returns the detection domain for a kind. ok is false for unknown
// kinds — callers must treat those as "activate nothing", never as an error.
func DomainOf(k Kind) (Domain, bool) {
	d, ok := registry[k]
	return d, ok
}
