package processor

import (
	"strings"

	"github.com/jhump/annoinject/metadata"
)

// basePatterns are always claimed by incremental processors: the dependency
// injection markers and the framework's own annotations.
var basePatterns = []string{
	metadata.InjectPackage + ".*",
	metadata.FrameworkPackage + ".*",
}

// excludedMappedNames keep nullability annotations out of the supported set.
// They are everywhere, so claiming them would make the processor run on nearly
// every source file.
var excludedMappedNames = []string{"Nullable", "NotNull"}

// MappedNames knows the names of annotations that are mapped to other
// annotations. *metadata.Builder implements it.
type MappedNames interface {
	MappedAnnotationNames() []string
}

// SupportedAnnotationTypes computes the annotation patterns a processor
// claims. Without incremental processing it claims everything ("*").
// Otherwise it claims the base namespaces, the extra configured patterns, and
// every mapped annotation name except nullability markers. The build must
// know this set before any source is seen, so it errs on the side of
// including too much.
func SupportedAnnotationTypes(cfg Config, mapped MappedNames) Set {
	if !cfg.Incremental() {
		return NewSet(Wildcard)
	}
	supported := NewSet(basePatterns...)
	supported.AddAll(cfg.ExtraPatterns())
	if mapped == nil {
		return supported
	}
	for _, name := range mapped.MappedAnnotationNames() {
		if !isExcludedMappedName(name) {
			supported.Add(name)
		}
	}
	return supported
}

func isExcludedMappedName(name string) bool {
	for _, ex := range excludedMappedNames {
		if strings.Contains(name, ex) {
			return true
		}
	}
	return false
}
