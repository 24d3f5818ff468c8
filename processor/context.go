package processor

import (
	"errors"
	"go/token"
	"io"
	"log/slog"

	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
)

var (
	// ErrNotInitialized is the panic value when a processor reports a
	// diagnostic or processes a round before the host initialized it.
	ErrNotInitialized = errors.New("processor not initialized")
	// ErrNilEnvironment is returned when a processor is initialized without
	// an environment.
	ErrNilEnvironment = errors.New("processor initialized with nil environment")
	// ErrAlreadyInitialized is returned when a processor is initialized a
	// second time.
	ErrAlreadyInitialized = errors.New("processor already initialized")
	// ErrOutputExists is returned when an output path is created a second
	// time in the same compilation.
	ErrOutputExists = errors.New("output already created")
)

// Environment is what the host hands to a processor when it initializes it.
// It lives as long as the compilation.
type Environment struct {
	// Options are the processor options given to the build.
	Options Options
	// Messager receives diagnostics.
	Messager Messager
	// Output creates generated files.
	Output OutputFactory
	// Fset holds positions for all loaded sources.
	Fset *token.FileSet
	// Sources are the type-checked packages of the compilation, including
	// dependencies that were loaded from source.
	Sources []*model.Source
	// SourceVersion is the Go language version of the code being compiled,
	// like "go1.21".
	SourceVersion string
	// Logger is for the processor's own logging. Diagnostics about user code
	// go to the Messager instead. If nil, nothing is logged.
	Logger *slog.Logger
}

// Context is shared by everything that takes part in processing for one
// processor: it is built once, when the processor is initialized, and handed
// to every visitor in every round.
//
// Processing is single-threaded, so nothing here is synchronized. The
// Attributes bag is the one part that is meant to be written after
// initialization: visitors use it to carry state from one round to the next.
type Context struct {
	Reporter   *Reporter
	Output     *OutputWriter
	Types      *model.TypeUtils
	Generics   *model.GenericUtils
	Metadata   *metadata.Builder
	Attributes *model.Attributes
	Options    Options
	Logger     *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
