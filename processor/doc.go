// Package processor contains the runtime library used by code that processes
// annotations.
//
// This package defines an interface, Processor, which is implemented by things
// that can process annotations. The host (see the host package) creates each
// processor once per compilation and drives it through its lifecycle:
//
//	Init(env)                  // once, before anything else
//	SupportedAnnotationTypes() // which annotations to offer it
//	SupportedOptions()         // which options it understands
//	SupportedSourceVersion()   // the newest Go version it understands
//	Process(round)             // once per round, the last one is Over()
//
// Most processors embed Driver (or Base, for more control). Base.Init builds
// the Context that is shared by all of a processor's visitors for the whole
// compilation. It holds the diagnostic Reporter, the OutputWriter for
// generated files, helpers for type and generics resolution, the annotation
// metadata builder, and a mutable attribute bag through which visitors pass
// state from one round to the next.
//
// # Diagnostics
//
// Problems in user code are reported through the Reporter and never stop
// processing: an error marks the compilation as failed, and the remaining
// elements are still processed so that every error in a round is reported.
// Reporting before the processor was initialized is a bug in the host, and
// panics with ErrNotInitialized.
//
// # Incremental processing
//
// Processing is incremental when the option "annoinject.processing.incremental"
// is "true" (in any case). Without it, processors claim every annotation
// ("*"). With it, they claim only the inject and framework namespaces, the
// patterns listed in "annoinject.processing.annotations", and the names of all
// mapped annotations. They also declare through SupportedOptions whether they
// are isolating or aggregating, which tells the host's cache what to re-run
// when sources change.
//
// # Processor Registration
//
// Processor implementations can be registered with this package using the
// RegisterProcessor function. All registered processors can later be created
// with the AllRegisteredProcessors function. The injectapt program (included
// in this repo) runs all registered processors.
//
// # Generated Output
//
// The OutputWriter in the Context creates outputs whose paths include both the
// Go import path and the source file name. Its WriteGoFiles method renders
// files built with the github.com/jhump/gopoet package.
package processor
