package processor

import (
	"sort"
	"strings"
)

// Wildcard is the pattern that matches every annotation.
const Wildcard = "*"

// Set is a set of strings: annotation patterns or option keys. It has no
// order; use Sorted when a stable order is needed for output.
type Set map[string]struct{}

// NewSet returns a set holding the given values.
func NewSet(vals ...string) Set {
	s := make(Set, len(vals))
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

// Add adds v to the set.
func (s Set) Add(v string) {
	s[v] = struct{}{}
}

// AddAll adds every value of other to the set.
func (s Set) AddAll(other Set) {
	for v := range other {
		s.Add(v)
	}
}

// Contains returns true if v is in the set.
func (s Set) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the values in lexical order.
func (s Set) Sorted() []string {
	vals := make([]string, 0, len(s))
	for v := range s {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals
}

// Clone returns a copy of the set.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	c.AddAll(s)
	return c
}

// Matches returns true if any pattern in the set matches the qualified
// annotation name.
func (s Set) Matches(annotationName string) bool {
	for p := range s {
		if MatchPattern(p, annotationName) {
			return true
		}
	}
	return false
}

// MatchPattern reports whether a supported-annotation pattern matches a
// qualified annotation name such as "example.com/pkg.Name". The pattern "*"
// matches everything, "example.com/pkg.*" matches every annotation type
// declared in that package (but not in its sub-packages), and any other
// pattern must equal the name.
func MatchPattern(pattern, annotationName string) bool {
	if pattern == Wildcard {
		return true
	}
	if pkg := strings.TrimSuffix(pattern, ".*"); pkg != pattern {
		i := strings.LastIndexByte(annotationName, '.')
		return i >= 0 && annotationName[:i] == pkg
	}
	return pattern == annotationName
}
