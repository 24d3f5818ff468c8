package metadata

import (
	"go/token"
	"sort"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/jhump/annoinject/model"
)

// ValueMember is the member name under which a positional value, as in
// @inject.Named("x"), is stored.
const ValueMember = "value"

// Annotation is an evaluated annotation.
type Annotation struct {
	// Name is the qualified annotation type name.
	Name string
	// Values holds the annotation's members. A positional value is stored
	// under ValueMember.
	Values map[string]cty.Value
	// Pos is the location of the annotation that was written in source. For
	// derived annotations it is the location of the one they came from.
	Pos token.Position
	// Source is the name of the annotation this one was derived from, through
	// a Mapper or a stereotype. It is empty for annotations written in source.
	Source string
}

// IsDerived returns true if the annotation was not written in source but
// produced by a mapper or a stereotype.
func (a Annotation) IsDerived() bool {
	return a.Source != ""
}

// Member returns the named member, if present and not null.
func (a Annotation) Member(name string) (cty.Value, bool) {
	v, ok := a.Values[name]
	if !ok || v.IsNull() || !v.IsKnown() {
		return cty.NilVal, false
	}
	return v, true
}

// String returns the named member converted to a string. Numbers and bools
// are converted; other types are reported as absent.
func (a Annotation) String(name string) (string, bool) {
	v, ok := a.Member(name)
	if !ok {
		return "", false
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", false
	}
	return s.AsString(), true
}

// Bool returns the named member as a bool.
func (a Annotation) Bool(name string) (bool, bool) {
	v, ok := a.Member(name)
	if !ok {
		return false, false
	}
	var b bool
	if err := gocty.FromCtyValue(v, &b); err != nil {
		return false, false
	}
	return b, true
}

// Int returns the named member as an integer.
func (a Annotation) Int(name string) (int64, bool) {
	v, ok := a.Member(name)
	if !ok {
		return 0, false
	}
	var i int64
	if err := gocty.FromCtyValue(v, &i); err != nil {
		return 0, false
	}
	return i, true
}

// Strings returns the named member as a list of strings. A single string is
// returned as a list of one.
func (a Annotation) Strings(name string) ([]string, bool) {
	v, ok := a.Member(name)
	if !ok {
		return nil, false
	}
	if v.Type() == cty.String {
		return []string{v.AsString()}, true
	}
	if !v.CanIterateElements() {
		return nil, false
	}
	var strs []string
	for it := v.ElementIterator(); it.Next(); {
		_, ev := it.Element()
		s, err := convert.Convert(ev, cty.String)
		if err != nil || s.IsNull() {
			return nil, false
		}
		strs = append(strs, s.AsString())
	}
	return strs, true
}

// AnnotationMetadata is the annotation metadata of one element: the
// annotations declared on it, followed by the annotations derived from them.
type AnnotationMetadata struct {
	element     *model.Element
	annotations []Annotation
}

// Element returns the element the metadata describes.
func (m *AnnotationMetadata) Element() *model.Element {
	return m.element
}

// Annotations returns all annotations, declared ones first.
func (m *AnnotationMetadata) Annotations() []Annotation {
	return m.annotations
}

// Declared returns only the annotations written in source.
func (m *AnnotationMetadata) Declared() []Annotation {
	var declared []Annotation
	for _, a := range m.annotations {
		if !a.IsDerived() {
			declared = append(declared, a)
		}
	}
	return declared
}

// IsEmpty returns true if there are no annotations at all.
func (m *AnnotationMetadata) IsEmpty() bool {
	return m == nil || len(m.annotations) == 0
}

// HasAnnotation returns true if an annotation with the given qualified name
// is declared or derived.
func (m *AnnotationMetadata) HasAnnotation(name string) bool {
	_, ok := m.FindAnnotation(name)
	return ok
}

// HasDeclaredAnnotation returns true if an annotation with the given name was
// written in source.
func (m *AnnotationMetadata) HasDeclaredAnnotation(name string) bool {
	for _, a := range m.annotations {
		if a.Name == name && !a.IsDerived() {
			return true
		}
	}
	return false
}

// FindAnnotation returns the first annotation with the given name. Declared
// annotations win over derived ones.
func (m *AnnotationMetadata) FindAnnotation(name string) (Annotation, bool) {
	if m == nil {
		return Annotation{}, false
	}
	for _, a := range m.annotations {
		if a.Name == name {
			return a, true
		}
	}
	return Annotation{}, false
}

// FindAnnotations returns every annotation with the given name.
func (m *AnnotationMetadata) FindAnnotations(name string) []Annotation {
	var found []Annotation
	for _, a := range m.annotations {
		if a.Name == name {
			found = append(found, a)
		}
	}
	return found
}

// StringValue returns a member of the first annotation with the given name.
func (m *AnnotationMetadata) StringValue(name, member string) (string, bool) {
	a, ok := m.FindAnnotation(name)
	if !ok {
		return "", false
	}
	return a.String(member)
}

// BoolValue returns a member of the first annotation with the given name.
func (m *AnnotationMetadata) BoolValue(name, member string) (bool, bool) {
	a, ok := m.FindAnnotation(name)
	if !ok {
		return false, false
	}
	return a.Bool(member)
}

// Names returns the distinct annotation names, sorted.
func (m *AnnotationMetadata) Names() []string {
	seen := map[string]struct{}{}
	var names []string
	for _, a := range m.annotations {
		if _, ok := seen[a.Name]; ok {
			continue
		}
		seen[a.Name] = struct{}{}
		names = append(names, a.Name)
	}
	sort.Strings(names)
	return names
}
