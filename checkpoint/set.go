package checkpoint

// Set is the ordered collection of enabled checkpoint kinds, read once from
// configuration at initialisation. Immutable after construction: trackers for
// kinds outside the set are never activated, and the dispatcher never sees
// their checkpoints.
type Set struct {
	order   []Kind
	members map[Kind]bool
}

// ParseSet builds a Set from configured names. Unknown names are ignored
// (forward compatibility with collectors that enable kinds this agent does
// not implement). Duplicates keep their first position.
func ParseSet(names []string) Set {
	s := Set{members: make(map[Kind]bool, len(names))}
	for _, name := range names {
		k := Kind(name)
		if !Known(k) || s.members[k] {
			continue
		}
		s.members[k] = true
		s.order = append(s.order, k)
	}
	return s
}

// Enabled reports whether kind k was configured.
func (s Set) Enabled(k Kind) bool { return s.members[k] }

// Kinds returns the enabled kinds in configuration order.
func (s Set) Kinds() []Kind {
	out := make([]Kind, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of enabled kinds.
func (s Set) Len() int { return len(s.order) }
