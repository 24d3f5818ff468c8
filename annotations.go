// Package annoinject is the runtime library for dependency-injection
// descriptors generated by the injectapt annotation processor.
//
// Annotations are written in the doc comments of Go declarations, one per
// line, starting with an "@" and a (possibly package-qualified) type name:
//
//    // Store persists orders.
//    //
//    // @inject.Singleton
//    // @inject.Named("orders")
//    type Store struct {
//        // @inject.Inject
//        DB *sql.DB
//    }
//
// An annotation may carry a single value in parentheses or a set of named
// attributes in braces:
//
//    // @inject.Named("primary")
//    // @example.Retry{attempts = 3, backoff = "1s"}
//
// Values use HCL expression syntax (strings, numbers, bools, lists, objects).
//
// Running the processor (see cmd/injectapt) on a package emits a file that
// registers one BeanDescriptor per bean found in that package. The descriptors
// can be queried at runtime with Beans.
package annoinject

import "fmt"

// Annotation is a meta-annotation. Types that will be used as annotations
// should be annotated with it:
//
//    // @annoinject.Annotation
//    type Audited struct {
//        Category string
//    }
//
// When an annotation type is itself annotated with other annotations (other
// than this one), those become stereotypes: every element carrying the
// annotation also behaves as if it carried the stereotype annotations. This is
// how a package can define its own "@app.Service" that means
// "@inject.Singleton".
//
// @Annotation{allowed = ["types"]}
type Annotation struct {
	// AllowedElements indicates the kinds of elements that can be annotated.
	// If it is empty, the annotation can be used on any kind of element.
	AllowedElements []ElementType
}

// ElementType is an enumeration of the kinds of elements that can be annotated.
type ElementType int

const (
	// Types are named type declarations. This is the union of ConcreteTypes
	// and Interfaces.
	//
	// Only top-level, named types can be annotated. Types defined inside of
	// functions and methods cannot be annotated.
	Types ElementType = iota

	// ConcreteTypes are type elements that are *not* interfaces.
	ConcreteTypes

	// Interfaces are type elements that are defined to be interfaces.
	Interfaces

	// Fields are fields of struct type elements. Only fields of top-level,
	// named types can be annotated.
	Fields

	// Methods are methods with bodies declared on top-level, named types.
	Methods

	// InterfaceMethods are the methods that comprise an interface.
	InterfaceMethods

	// Functions are top-level, named functions.
	Functions

	// Parameters are parameters of top-level functions and methods. They are
	// annotated with a block comment in front of the parameter:
	//
	//    func NewStore(/* @inject.Named("primary") */ db *sql.DB) *Store
	Parameters

	// Variables are top-level (e.g. package-level) variables.
	Variables

	// Constants are top-level (e.g. package-level) constants.
	Constants
)

func (et ElementType) String() string {
	switch et {
	case Types:
		return "types"
	case ConcreteTypes:
		return "concrete types"
	case Interfaces:
		return "interfaces"
	case Fields:
		return "fields"
	case Methods:
		return "methods"
	case InterfaceMethods:
		return "interface methods"
	case Functions:
		return "functions"
	case Parameters:
		return "parameters"
	case Variables:
		return "variables"
	case Constants:
		return "constants"
	default:
		return fmt.Sprintf("?%d?", int(et))
	}
}
