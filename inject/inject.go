// Package inject defines the dependency-injection marker annotations
// recognized by the bean processors.
//
// The types in this package are never instantiated; they exist so that
// annotations such as "@inject.Singleton" resolve to a real declaration and
// so that their documentation is one click away in an editor.
package inject

// Singleton marks a type as a bean with a single instance per container.
//
// @annoinject.Annotation{allowed = ["concrete types", "functions"]}
type Singleton struct{}

// Prototype marks a type as a bean that is created every time it is
// resolved.
//
// @annoinject.Annotation{allowed = ["concrete types", "functions"]}
type Prototype struct{}

// Named qualifies a bean or an injection point:
//
//    // @inject.Named("primary")
//
// @annoinject.Annotation{allowed = ["concrete types", "functions", "fields", "parameters"]}
type Named struct {
	Value string
}

// Primary marks the bean that wins when several beans have the same type and
// an injection point has no qualifier.
//
// @annoinject.Annotation{allowed = ["concrete types", "functions"]}
type Primary struct{}

// Inject marks a struct field that the container sets after construction.
//
// @annoinject.Annotation{allowed = ["fields"]}
type Inject struct{}

// Factory marks a top-level function whose first result is a bean. Its
// parameters are injected.
//
// @annoinject.Annotation{allowed = ["functions"]}
type Factory struct{}

// PostConstruct marks a method, taking no arguments and returning nothing or
// an error, that is called once the bean's fields have been injected.
//
// @annoinject.Annotation{allowed = ["methods"]}
type PostConstruct struct{}

// PreDestroy marks a method, taking no arguments and returning nothing or an
// error, that is called when the container releases the bean.
//
// @annoinject.Annotation{allowed = ["methods"]}
type PreDestroy struct{}

// Nullable marks an injection point that may be left unset when no bean
// matches.
//
// @annoinject.Annotation{allowed = ["fields", "parameters"]}
type Nullable struct{}
