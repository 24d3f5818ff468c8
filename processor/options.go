package processor

import "strings"

const (
	// OptionIncremental turns on incremental processing when set to "true".
	OptionIncremental = "annoinject.processing.incremental"
	// OptionAnnotations is a comma-separated list of extra annotation
	// patterns that incremental processors claim.
	OptionAnnotations = "annoinject.processing.annotations"
)

// Options are the key/value options given to the processors by the build.
type Options map[string]string

// Get returns the value of an option and whether it was set.
func (o Options) Get(key string) (string, bool) {
	v, ok := o[key]
	return v, ok
}

// IsIncremental returns true if the options turn on incremental processing.
// Incremental processing is an optimization, so anything but a
// case-insensitive "true" leaves it off instead of failing the build.
func IsIncremental(opts Options) bool {
	v, ok := opts.Get(OptionIncremental)
	if !ok {
		return false
	}
	return strings.EqualFold(v, "true")
}

// annotationPatterns returns the extra patterns configured with
// OptionAnnotations. Entries are taken literally, without trimming. An empty
// entry is kept too; it matches no annotation.
func annotationPatterns(opts Options) Set {
	patterns := Set{}
	v, ok := opts.Get(OptionAnnotations)
	if !ok {
		return patterns
	}
	for _, p := range strings.Split(v, ",") {
		patterns.Add(p)
	}
	return patterns
}
