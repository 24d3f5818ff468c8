package processor

import "fmt"

// IncrementalKind tells the build how a processor's outputs depend on its
// inputs, so that it knows what to re-run when sources change. Declaring the
// wrong kind leads to stale outputs or needless work, never to a failure.
type IncrementalKind int

const (
	// Isolating processors generate output for a package from that package
	// alone, so only changed packages need to be processed again.
	Isolating IncrementalKind = iota
	// Aggregating processors generate output from many packages at once, so
	// any change means processing everything again.
	Aggregating
)

const (
	optionIsolating   = "annoinject.processing.isolating"
	optionAggregating = "annoinject.processing.aggregating"
)

// Key returns the option key through which a processor declares its kind.
func (k IncrementalKind) Key() string {
	if k == Aggregating {
		return optionAggregating
	}
	return optionIsolating
}

func (k IncrementalKind) String() string {
	switch k {
	case Isolating:
		return "isolating"
	case Aggregating:
		return "aggregating"
	default:
		return fmt.Sprintf("?%d?", int(k))
	}
}

// KindForKey is the inverse of IncrementalKind.Key.
func KindForKey(key string) (IncrementalKind, bool) {
	switch key {
	case optionIsolating:
		return Isolating, true
	case optionAggregating:
		return Aggregating, true
	default:
		return 0, false
	}
}

// Config is what a processor derives from its options when it is
// initialized. It does not change for the rest of the compilation.
type Config struct {
	incremental bool
	patterns    Set
	kind        IncrementalKind
}

// NewConfig derives the configuration from the given options. Extra
// annotation patterns are only read when incremental processing is on.
func NewConfig(opts Options, kind IncrementalKind) Config {
	cfg := Config{incremental: IsIncremental(opts), kind: kind, patterns: Set{}}
	if cfg.incremental {
		cfg.patterns = annotationPatterns(opts)
	}
	return cfg
}

// Incremental returns true if incremental processing is on.
func (c Config) Incremental() bool {
	return c.incremental
}

// ExtraPatterns returns a copy of the configured extra annotation patterns.
func (c Config) ExtraPatterns() Set {
	return c.patterns.Clone()
}

// Kind returns the processor's declared incremental kind.
func (c Config) Kind() IncrementalKind {
	return c.kind
}
