package processor

import "sync"

// NewProcessorFunc creates a processor. Processors hold per-compilation
// state, so the registry keeps constructors rather than instances.
type NewProcessorFunc func() Processor

type registration struct {
	name   string
	create NewProcessorFunc
}

var (
	registryLock      sync.Mutex
	registeredPlugins []registration
)

// RegisterProcessor registers an annotation processor under the given name.
// Registering a name again replaces the earlier registration.
func RegisterProcessor(name string, create NewProcessorFunc) {
	registryLock.Lock()
	defer registryLock.Unlock()
	for i := range registeredPlugins {
		if registeredPlugins[i].name == name {
			registeredPlugins[i].create = create
			return
		}
	}
	registeredPlugins = append(registeredPlugins, registration{name: name, create: create})
}

// AllRegisteredProcessors returns a new instance of every registered
// processor, in registration order.
func AllRegisteredProcessors() []Processor {
	registryLock.Lock()
	regs := make([]registration, len(registeredPlugins))
	copy(regs, registeredPlugins)
	registryLock.Unlock()

	procs := make([]Processor, len(regs))
	for i, r := range regs {
		procs[i] = r.create()
	}
	return procs
}

// RegisteredProcessorNames returns the names of the registered processors, in
// registration order.
func RegisteredProcessorNames() []string {
	registryLock.Lock()
	defer registryLock.Unlock()
	names := make([]string, len(registeredPlugins))
	for i, r := range registeredPlugins {
		names[i] = r.name
	}
	return names
}
