package metadata

import (
	"go/ast"
	"go/types"
	"strings"

	"github.com/zclconf/go-cty/cty"

	"github.com/jhump/annoinject"
	"github.com/jhump/annoinject/model"
)

// AnnotationMarker is the qualified name of the meta-annotation that marks
// annotation types.
const AnnotationMarker = FrameworkPackage + ".Annotation"

// cacheAttribute is the key of the metadata cache in the attribute bag.
const cacheAttribute = "annoinject.metadata.cache"

// Diagnostics is where the builder reports problems with annotations. They
// are user errors, so the builder keeps going after reporting one.
type Diagnostics interface {
	Errorf(el *model.Element, format string, args ...interface{})
	Warnf(el *model.Element, format string, args ...interface{})
}

// annotationType is what the builder learned from an annotation type's
// declaration.
type annotationType struct {
	marked      bool
	allowed     []annoinject.ElementType
	stereotypes []Annotation
}

// Builder builds AnnotationMetadata for elements. Results are cached in the
// attribute bag, so every visitor asking about the same element gets the same
// metadata and sees each problem reported only once.
type Builder struct {
	diags   Diagnostics
	types   *model.TypeUtils
	attrs   *model.Attributes
	mappers map[string][]Mapper
	annos   map[string]*annotationType
}

// NewBuilder creates a builder. It uses the mappers registered at the time it
// is created.
func NewBuilder(diags Diagnostics, tu *model.TypeUtils, attrs *model.Attributes) *Builder {
	return &Builder{
		diags:   diags,
		types:   tu,
		attrs:   attrs,
		mappers: registeredMappers(),
		annos:   map[string]*annotationType{},
	}
}

// AddMapper adds a mapper to this builder only.
func (b *Builder) AddMapper(m Mapper) {
	b.mappers[m.AnnotationName()] = append(b.mappers[m.AnnotationName()], m)
}

// MappedAnnotationNames returns the names of all annotations that mappers
// apply to.
func (b *Builder) MappedAnnotationNames() []string {
	return sortedNames(b.mappers)
}

func (b *Builder) cache() map[*model.Element]*AnnotationMetadata {
	return model.AttrOrInit(b.attrs, cacheAttribute, func() map[*model.Element]*AnnotationMetadata {
		return map[*model.Element]*AnnotationMetadata{}
	})
}

// Build returns the annotation metadata of el. Annotation values that cannot
// be evaluated, annotations whose type is not an annotation, and annotations
// used on the wrong kind of element are reported and left out.
func (b *Builder) Build(el *model.Element) *AnnotationMetadata {
	cache := b.cache()
	if md, ok := cache[el]; ok {
		return md
	}
	md := &AnnotationMetadata{element: el}
	for _, ref := range el.Annotations {
		a, ok := b.evaluate(el, ref)
		if !ok {
			continue
		}
		at := b.annotationType(a.Name)
		if at != nil {
			if !at.marked {
				b.diags.Errorf(el, "%s is not an annotation type; its declaration must be annotated with @annoinject.Annotation", a.Name)
				continue
			}
			if !allows(at.allowed, el) {
				b.diags.Errorf(el, "annotation @%s cannot be used on %s", a.Name, el.Kind())
				continue
			}
		}
		md.annotations = append(md.annotations, a)
	}

	// an annotation that is declared, or derived more than once, is kept once
	declared := len(md.annotations)
	seen := map[string]bool{}
	for _, a := range md.annotations {
		seen[a.Name] = true
	}
	for i := 0; i < declared; i++ {
		md.annotations = b.expand(md.annotations, md.annotations[i], seen)
	}
	cache[el] = md
	return md
}

// expand appends what a maps to and, recursively, what that maps to.
func (b *Builder) expand(annos []Annotation, a Annotation, seen map[string]bool) []Annotation {
	var derived []Annotation
	for _, m := range b.mappers[a.Name] {
		derived = append(derived, m.Map(a)...)
	}
	if at := b.annotationType(a.Name); at != nil {
		derived = append(derived, at.stereotypes...)
	}
	for _, d := range derived {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		d.Source = a.Name
		d.Pos = a.Pos
		annos = append(annos, d)
		annos = b.expand(annos, d, seen)
	}
	return annos
}

func (b *Builder) evaluate(el *model.Element, ref model.AnnotationRef) (Annotation, bool) {
	a := Annotation{Name: ref.Name, Pos: ref.Pos, Values: map[string]cty.Value{}}
	if ref.Expr == nil {
		return a, true
	}
	v, diags := ref.Expr.Value(nil)
	if diags.HasErrors() {
		b.diags.Errorf(el, "invalid value for annotation @%s: %s", ref.Name, diagSummary(diags))
		return a, false
	}
	if ref.Positional {
		a.Values[ValueMember] = v
		return a, true
	}
	if !v.Type().IsObjectType() {
		b.diags.Errorf(el, "annotation @%s must have attributes in braces", ref.Name)
		return a, false
	}
	for k, av := range v.AsValueMap() {
		a.Values[k] = av
	}
	return a, true
}

// annotationType reads the declaration of the named annotation type. It
// returns nil when the declaration is not available from source, in which
// case the annotation is accepted as is.
func (b *Builder) annotationType(name string) *annotationType {
	if at, ok := b.annos[name]; ok {
		return at
	}
	// guard against stereotype cycles while this one is being read
	b.annos[name] = nil

	tn := b.types.LookupTypeName(name)
	var at *annotationType
	if tn != nil {
		if doc := b.types.DocFor(tn); doc != nil {
			at = b.readAnnotationType(tn, doc)
		} else if b.types.Source(tn.Pkg().Path()) != nil {
			at = &annotationType{}
		}
	}
	b.annos[name] = at
	return at
}

// readAnnotationType collects the meta-annotations of an annotation type.
// Problems in them are ignored: they belong to the package declaring the
// type, not to the code being processed.
func (b *Builder) readAnnotationType(tn *types.TypeName, doc *ast.CommentGroup) *annotationType {
	refs, _ := ParseComment(doc, b.types.Fset(), FileImports(b.types.FileFor(tn), tn.Pkg()))
	at := &annotationType{}
	for _, ref := range refs {
		var a Annotation
		a.Name = ref.Name
		a.Pos = ref.Pos
		a.Values = map[string]cty.Value{}
		if ref.Expr != nil {
			v, diags := ref.Expr.Value(nil)
			if diags.HasErrors() {
				continue
			}
			if ref.Positional {
				a.Values[ValueMember] = v
			} else if v.Type().IsObjectType() {
				a.Values = v.AsValueMap()
			}
		}
		if a.Name == AnnotationMarker {
			at.marked = true
			if allowed, ok := a.Strings("allowed"); ok {
				at.allowed = parseElementTypes(allowed)
			}
			continue
		}
		at.stereotypes = append(at.stereotypes, a)
	}
	return at
}

func parseElementTypes(names []string) []annoinject.ElementType {
	var ets []annoinject.ElementType
	for _, n := range names {
		for et := annoinject.Types; et <= annoinject.Constants; et++ {
			if strings.EqualFold(et.String(), strings.TrimSpace(n)) {
				ets = append(ets, et)
			}
		}
	}
	return ets
}

func allows(allowed []annoinject.ElementType, el *model.Element) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, et := range allowed {
		if el.IsElementType(et) {
			return true
		}
	}
	return false
}
