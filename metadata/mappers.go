package metadata

import (
	"sort"
	"sync"
)

// CompatPackage holds annotation names other DI tools use. They are mapped to
// the equivalent inject markers by the builtin mappers.
const CompatPackage = "github.com/jhump/annoinject/compat"

// Mapper derives annotations from another annotation. Mappers let a program
// use annotations the processors do not know about directly: a mapper for
// "compat.Component" produces an "inject.Singleton", so processors only ever
// look for the latter.
type Mapper interface {
	// AnnotationName is the qualified name of the annotation this mapper
	// applies to.
	AnnotationName() string
	// Map returns the annotations equivalent to a. It may return none.
	Map(a Annotation) []Annotation
}

// MapperFunc adapts a function to the Mapper interface.
type MapperFunc struct {
	Name string
	Fn   func(a Annotation) []Annotation
}

// AnnotationName implements Mapper.
func (m MapperFunc) AnnotationName() string { return m.Name }

// Map implements Mapper.
func (m MapperFunc) Map(a Annotation) []Annotation { return m.Fn(a) }

// Rename returns a mapper that maps annotation from to annotation to, keeping
// all values.
func Rename(from, to string) Mapper {
	return MapperFunc{Name: from, Fn: func(a Annotation) []Annotation {
		return []Annotation{{Name: to, Values: a.Values, Pos: a.Pos}}
	}}
}

// Marker returns a mapper for an annotation that is recognized but produces
// nothing.
func Marker(name string) Mapper {
	return MapperFunc{Name: name, Fn: func(Annotation) []Annotation { return nil }}
}

var (
	mapperLock sync.Mutex
	mappers    = map[string][]Mapper{}
)

// RegisterMapper registers a mapper. Builders created afterwards use it, and
// its annotation name becomes one of the mapped annotation names that
// incremental processors claim.
func RegisterMapper(m Mapper) {
	mapperLock.Lock()
	defer mapperLock.Unlock()
	mappers[m.AnnotationName()] = append(mappers[m.AnnotationName()], m)
}

// registeredMappers returns a copy of the registry.
func registeredMappers() map[string][]Mapper {
	mapperLock.Lock()
	defer mapperLock.Unlock()
	snapshot := make(map[string][]Mapper, len(mappers))
	for name, ms := range mappers {
		snapshot[name] = append([]Mapper(nil), ms...)
	}
	return snapshot
}

func sortedNames(ms map[string][]Mapper) []string {
	names := make([]string, 0, len(ms))
	for n := range ms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	RegisterMapper(Rename(CompatPackage+".Component", InjectPackage+".Singleton"))
	RegisterMapper(Rename(CompatPackage+".Service", InjectPackage+".Singleton"))
	RegisterMapper(Rename(CompatPackage+".Autowired", InjectPackage+".Inject"))
	RegisterMapper(Rename(CompatPackage+".Qualifier", InjectPackage+".Named"))
	RegisterMapper(Rename(CompatPackage+".Nullable", InjectPackage+".Nullable"))
	RegisterMapper(Marker(CompatPackage + ".NotNull"))
}
