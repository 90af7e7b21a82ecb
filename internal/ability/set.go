package ability

import "sort"

// Set is an unordered collection of ability strings.
type Set map[string]struct{}

// NewSet builds a set from the given abilities, skipping empty strings.
func NewSet(abilities ...string) Set {
	s := make(Set, len(abilities))
	s.Add(abilities...)
	return s
}

// Add inserts abilities, ignoring empty strings.
func (s Set) Add(abilities ...string) {
	for _, a := range abilities {
		if a == "" {
			continue
		}
		s[a] = struct{}{}
	}
}

// Has reports membership.
func (s Set) Has(a string) bool {
	_, ok := s[a]
	return ok
}

// Union adds every member of other to s.
func (s Set) Union(other Set) {
	for a := range other {
		s[a] = struct{}{}
	}
}

// Intersect returns the members of s that are also in other.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for a := range s {
		if other.Has(a) {
			out[a] = struct{}{}
		}
	}
	return out
}

// Clone returns a copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.Union(s)
	return out
}

// Equal reports whether both sets contain the same abilities.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for a := range s {
		if !other.Has(a) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
