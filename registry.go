package annoinject

import (
	"fmt"
	"reflect"
	"sync"
)

// Scope controls how many instances of a bean a container creates.
type Scope int

const (
	// Singleton beans are created once per container.
	Singleton Scope = iota
	// Prototype beans are created every time they are resolved.
	Prototype
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Prototype:
		return "prototype"
	default:
		return fmt.Sprintf("?%d?", int(s))
	}
}

// Resolver is implemented by containers. Generated factories use it to look
// up the dependencies of the bean they create. An empty name matches the
// primary (or only) bean of the given type.
type Resolver interface {
	Resolve(t reflect.Type, name string) (interface{}, error)
}

// BeanDescriptor describes a bean declared with annotations. Generated code
// creates these and registers them with RegisterBean.
type BeanDescriptor struct {
	// Type is the type of the value produced by Factory.
	Type reflect.Type
	// Name is the bean's qualifier, from @inject.Named. May be empty.
	Name    string
	Scope   Scope
	Primary bool
	// Origin is the qualified name of the declaration the descriptor was
	// generated from, e.g. "example.com/app/store.NewStore".
	Origin string
	// Factory creates a new instance, resolving dependencies with r.
	Factory func(r Resolver) (interface{}, error)
	// Destroy, if not nil, releases the given instance.
	Destroy func(instance interface{}) error
}

var (
	registryLock sync.Mutex
	registered   []BeanDescriptor
)

// RegisterBean registers the given descriptor. It panics if the descriptor has
// no type or factory since that indicates broken generated code.
func RegisterBean(d BeanDescriptor) {
	if d.Type == nil || d.Factory == nil {
		panic(fmt.Sprintf("invalid bean descriptor from %s: type and factory are required", d.Origin))
	}
	registryLock.Lock()
	defer registryLock.Unlock()
	registered = append(registered, d)
}

// Beans returns all registered descriptors, in registration order.
func Beans() []BeanDescriptor {
	registryLock.Lock()
	defer registryLock.Unlock()
	beans := make([]BeanDescriptor, len(registered))
	copy(beans, registered)
	return beans
}

// BeansOfType returns the registered descriptors whose type is assignable to
// t. For interface types this includes every implementation.
func BeansOfType(t reflect.Type) []BeanDescriptor {
	var matches []BeanDescriptor
	for _, d := range Beans() {
		if d.Type == t || (t.Kind() == reflect.Interface && d.Type.Implements(t)) {
			matches = append(matches, d)
		}
	}
	return matches
}
