// Package model contains the representation of annotated Go program elements
// that the host hands to processors, along with type-resolution helpers that
// processors use to inspect them.
package model

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"

	"github.com/hashicorp/hcl/v2"

	"github.com/jhump/annoinject"
)

// AnnotationRef is an annotation as written in source, before its value is
// evaluated. The host collects these while scanning declarations so that it
// can decide which processors should see an element.
type AnnotationRef struct {
	// Name is the qualified annotation type name: the import path of the
	// package that declares the type, a dot, and the type name.
	Name string
	// Alias is the qualifier as written in source, empty when the annotation
	// was unqualified.
	Alias string
	// Expr is the annotation's value expression, or nil if no value was given.
	Expr hcl.Expression
	// Positional is true when the value was given in parentheses, as in
	// @inject.Named("x"). Otherwise the value, if any, is an object of named
	// attributes given in braces.
	Positional bool
	// Pos is the location of the "@".
	Pos token.Position
}

func (a AnnotationRef) String() string {
	return "@" + a.Name
}

// SplitQualifiedName splits "example.com/pkg.Name" into its package path and
// name. Names without a dot have an empty package path.
func SplitQualifiedName(name string) (pkgPath, typeName string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// QualifiedName joins a package path and a name.
func QualifiedName(pkgPath, name string) string {
	if pkgPath == "" {
		return name
	}
	return pkgPath + "." + name
}

// Element is a view of a declaration in Go source. It can represent any Go
// source element on which annotations are allowed: a type, a struct field, an
// interface method, a function or method, a parameter, a variable, or a
// constant.
type Element struct {
	// The actual source element, as a types.Object.
	Obj types.Object
	// The element's name/identifier in the source AST. Nil for unnamed
	// parameters.
	Ident *ast.Ident
	// The comment group the annotations were read from. May be nil.
	Doc *ast.CommentGroup
	// The AST for the file in which this element is defined.
	File *ast.File
	// The package that declares the element.
	Pkg *types.Package
	// Position of the element's name (or of the parameter when unnamed).
	Position token.Position

	// Child elements. The children of structs are fields. The children of
	// interfaces are methods. The children of functions and methods are their
	// annotated parameters.
	Children []*Element
	// The element's parent, nil for top-level elements.
	Parent *Element

	// The element types that apply to this element.
	ApplicableTypes []annoinject.ElementType
	// The annotations defined on this element, in source order.
	Annotations []AnnotationRef
}

// Pos returns the position of the element in source.
func (e *Element) Pos() token.Position {
	return e.Position
}

// Name returns the element's identifier.
func (e *Element) Name() string {
	if e.Obj != nil {
		return e.Obj.Name()
	}
	if e.Ident != nil {
		return e.Ident.Name
	}
	return "_"
}

// Kind returns the most specific element type of this element.
func (e *Element) Kind() annoinject.ElementType {
	if len(e.ApplicableTypes) == 0 {
		return annoinject.Types
	}
	return e.ApplicableTypes[len(e.ApplicableTypes)-1]
}

// IsElementType returns true if this element is the given element type. It is
// considered to be the given type if the given type appears in the element's
// set of applicable types.
func (e *Element) IsElementType(et annoinject.ElementType) bool {
	for _, t := range e.ApplicableTypes {
		if t == et {
			return true
		}
	}
	return false
}

// HasAnnotations returns true if the element has at least one annotation.
func (e *Element) HasAnnotations() bool {
	return len(e.Annotations) > 0
}

// FindAnnotations returns the annotations, as written, whose qualified type
// name is the given name.
func (e *Element) FindAnnotations(name string) []AnnotationRef {
	var matches []AnnotationRef
	for _, a := range e.Annotations {
		if a.Name == name {
			matches = append(matches, a)
		}
	}
	return matches
}

// Walk calls fn for e and then for every descendant, depth first. If fn
// returns false the element's children are skipped.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// QualifiedName returns the name of the element qualified by its package and,
// for members, by the enclosing element:
// "example.com/pkg.Store.DB".
func (e *Element) QualifiedName() string {
	if e.Parent != nil {
		return e.Parent.QualifiedName() + "." + e.Name()
	}
	if e.Pkg == nil {
		return e.Name()
	}
	return QualifiedName(e.Pkg.Path(), e.Name())
}

// GetDeclaringFilename gets the name of the file that declared this element.
func (e *Element) GetDeclaringFilename() string {
	return e.Position.Filename
}

func (e *Element) String() string {
	return fmt.Sprintf("%s %s", strings.TrimSuffix(e.Kind().String(), "s"), e.QualifiedName())
}

// NewChild adds a child element to e, inheriting its file and package.
func (e *Element) NewChild(obj types.Object, id *ast.Ident, doc *ast.CommentGroup, pos token.Position, ets ...annoinject.ElementType) *Element {
	c := &Element{
		Obj:             obj,
		Ident:           id,
		Doc:             doc,
		File:            e.File,
		Pkg:             e.Pkg,
		Position:        pos,
		Parent:          e,
		ApplicableTypes: ets,
	}
	e.Children = append(e.Children, c)
	return c
}
