// Package compat declares annotations with the names other dependency
// injection tools use, so that code annotated for them can be processed
// without rewriting. Each one is mapped to the equivalent inject marker.
package compat

// Component is the same as @inject.Singleton.
//
// @annoinject.Annotation{allowed = ["concrete types", "functions"]}
type Component struct{}

// Service is the same as @inject.Singleton.
//
// @annoinject.Annotation{allowed = ["concrete types", "functions"]}
type Service struct{}

// Autowired is the same as @inject.Inject.
//
// @annoinject.Annotation{allowed = ["fields"]}
type Autowired struct{}

// Qualifier is the same as @inject.Named.
//
// @annoinject.Annotation{allowed = ["concrete types", "functions", "fields", "parameters"]}
type Qualifier struct {
	Value string
}

// Nullable is the same as @inject.Nullable.
//
// @annoinject.Annotation{allowed = ["fields", "parameters"]}
type Nullable struct{}

// NotNull is accepted and ignored: injection points are required unless
// marked nullable.
//
// @annoinject.Annotation{allowed = ["fields", "parameters"]}
type NotNull struct{}
