package processor

import "github.com/jhump/annoinject/model"

// Round is one batch of work handed to processors. The first round holds the
// packages being compiled, each later one holds what processors generated in
// the round before it, and the final round is empty and Over.
type Round struct {
	number      int
	roots       []*model.Element
	annotations Set
	over        bool
	errorRaised bool
}

// NewRound creates a round. The roots are top-level elements; their children
// are part of the round too.
func NewRound(number int, roots []*model.Element, over, errorRaised bool) *Round {
	return &Round{number: number, roots: roots, over: over, errorRaised: errorRaised}
}

// WithAnnotations returns a copy of the round that offers the given
// annotation names to a processor.
func (r *Round) WithAnnotations(names Set) *Round {
	c := *r
	c.annotations = names
	return &c
}

// Number returns the round's number, starting at 1.
func (r *Round) Number() int {
	return r.number
}

// Over returns true for the final round, in which processors get no elements
// but may write out anything they aggregated.
func (r *Round) Over() bool {
	return r.over
}

// ErrorRaised returns true if an error was reported before this round
// started, by processors in earlier rounds or while loading the packages and
// the files they generated.
func (r *Round) ErrorRaised() bool {
	return r.errorRaised
}

// RootElements returns the round's top-level elements.
func (r *Round) RootElements() []*model.Element {
	return r.roots
}

// Elements returns every element of the round, parents before children.
func (r *Round) Elements() []*model.Element {
	var all []*model.Element
	for _, root := range r.roots {
		root.Walk(func(el *model.Element) bool {
			all = append(all, el)
			return true
		})
	}
	return all
}

// ElementsAnnotatedWith returns the elements that are directly annotated with
// the named annotation.
func (r *Round) ElementsAnnotatedWith(name string) []*model.Element {
	var found []*model.Element
	for _, el := range r.Elements() {
		if len(el.FindAnnotations(name)) > 0 {
			found = append(found, el)
		}
	}
	return found
}

// Annotations returns the names of the annotations offered to the processor
// in this round. When the round was not narrowed for a processor, it returns
// every annotation present on the round's elements.
func (r *Round) Annotations() Set {
	if r.annotations != nil {
		return r.annotations.Clone()
	}
	return AnnotationNames(r.roots)
}

// AnnotationNames returns the names of all annotations on the given elements
// and their children.
func AnnotationNames(roots []*model.Element) Set {
	names := Set{}
	for _, root := range roots {
		root.Walk(func(el *model.Element) bool {
			for _, a := range el.Annotations {
				names.Add(a.Name)
			}
			return true
		})
	}
	return names
}
