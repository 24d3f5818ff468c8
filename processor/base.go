package processor

import (
	"go/version"
	"strings"

	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
)

const (
	// MinSourceVersion is the oldest Go version processors claim to support.
	MinSourceVersion = "go1.18"
	// MaxSourceVersion is the newest Go version processors claim to support.
	MaxSourceVersion = "go1.23"
)

// Processor is implemented by annotation processors. The host creates one
// for each compilation, calls Init once, asks which annotations and options
// it supports, and then calls Process once per round.
type Processor interface {
	// Name identifies the processor in logs and in the incremental cache.
	Name() string
	// Init prepares the processor for a compilation.
	Init(env *Environment) error
	// SupportedAnnotationTypes returns patterns for the annotations that the
	// processor handles.
	SupportedAnnotationTypes() Set
	// SupportedOptions returns the option keys that the processor reads.
	SupportedOptions() Set
	// SupportedSourceVersion returns the newest Go version the processor
	// understands.
	SupportedSourceVersion() string
	// Process handles one round. It returns true to claim the round's
	// annotations, so that later processors are not offered them.
	Process(round *Round) bool
}

// Base does the work common to all processors: it builds the Context when
// the processor is initialized and answers the host's questions about what
// the processor supports. Processors embed it.
type Base struct {
	// Kind declares how the processor's outputs depend on its inputs.
	Kind IncrementalKind
	// ExtraOptions are option keys the processor reads in addition to the
	// common ones.
	ExtraOptions []string

	ctx           *Context
	cfg           Config
	sourceVersion string
}

// Init builds the processor's Context from env. It may only be called once.
func (b *Base) Init(env *Environment) error {
	if env == nil {
		return ErrNilEnvironment
	}
	if b.ctx != nil {
		return ErrAlreadyInitialized
	}

	reporter := NewReporter(env.Messager)
	output := NewOutputWriter(env.Output)
	// generics resolution is built on type resolution
	tu := model.NewTypeUtils(env.Fset, env.Sources...)
	gu := model.NewGenericUtils(tu)
	attrs := model.NewAttributes()
	md := metadata.NewBuilder(reporter, tu, attrs)

	logger := env.Logger
	if logger == nil {
		logger = discardLogger()
	}
	b.ctx = &Context{
		Reporter:   reporter,
		Output:     output,
		Types:      tu,
		Generics:   gu,
		Metadata:   md,
		Attributes: attrs,
		Options:    env.Options,
		Logger:     logger,
	}
	b.cfg = NewConfig(env.Options, b.Kind)
	b.sourceVersion = env.SourceVersion
	return nil
}

// Context returns the processor's context. It panics if the processor has not
// been initialized.
func (b *Base) Context() *Context {
	if b.ctx == nil {
		panic(ErrNotInitialized)
	}
	return b.ctx
}

// Initialized returns true once Init has succeeded.
func (b *Base) Initialized() bool {
	return b.ctx != nil
}

// Config returns the configuration derived during Init.
func (b *Base) Config() Config {
	return b.cfg
}

// IncrementalProcessorType returns the kind the processor declared.
func (b *Base) IncrementalProcessorType() IncrementalKind {
	return b.Kind
}

// SupportedAnnotationTypes returns "*" unless incremental processing is on,
// in which case it narrows the claim as described for the package-level
// SupportedAnnotationTypes.
func (b *Base) SupportedAnnotationTypes() Set {
	if b.ctx == nil || b.ctx.Metadata == nil {
		return SupportedAnnotationTypes(b.cfg, nil)
	}
	return SupportedAnnotationTypes(b.cfg, b.ctx.Metadata)
}

// SupportedOptions returns the common options, the processor's own, and,
// when incremental processing is on, the key declaring its kind.
func (b *Base) SupportedOptions() Set {
	opts := NewSet(OptionIncremental, OptionAnnotations)
	for _, o := range b.ExtraOptions {
		opts.Add(o)
	}
	if b.cfg.Incremental() {
		opts.Add(b.cfg.Kind().Key())
	}
	return opts
}

// SupportedSourceVersion returns the source version the host reported,
// clamped to the range of versions processors are known to work with.
func (b *Base) SupportedSourceVersion() string {
	return ClampSourceVersion(b.sourceVersion)
}

// ClampSourceVersion clamps a Go version to [MinSourceVersion,
// MaxSourceVersion]. Release and patch suffixes are dropped, the "go" prefix
// is optional, and anything that is not a valid version yields the minimum.
func ClampSourceVersion(v string) string {
	if !strings.HasPrefix(v, "go") {
		v = "go" + v
	}
	lang := version.Lang(v)
	switch {
	case lang == "" || version.Compare(lang, MinSourceVersion) < 0:
		return MinSourceVersion
	case version.Compare(lang, MaxSourceVersion) > 0:
		return MaxSourceVersion
	default:
		return lang
	}
}

// Errorf reports an error about el. See Reporter.
func (b *Base) Errorf(el *model.Element, format string, args ...interface{}) {
	b.reporter().Errorf(el, format, args...)
}

// Warnf reports a warning about el.
func (b *Base) Warnf(el *model.Element, format string, args ...interface{}) {
	b.reporter().Warnf(el, format, args...)
}

// Notef reports a note about el.
func (b *Base) Notef(el *model.Element, format string, args ...interface{}) {
	b.reporter().Notef(el, format, args...)
}

// GlobalErrorf reports an error that is not about any element.
func (b *Base) GlobalErrorf(format string, args ...interface{}) {
	b.reporter().GlobalErrorf(format, args...)
}

// GlobalWarnf reports a warning that is not about any element.
func (b *Base) GlobalWarnf(format string, args ...interface{}) {
	b.reporter().GlobalWarnf(format, args...)
}

// GlobalNotef reports a note that is not about any element.
func (b *Base) GlobalNotef(format string, args ...interface{}) {
	b.reporter().GlobalNotef(format, args...)
}

// reporter returns nil before Init, and a nil *Reporter panics when used.
func (b *Base) reporter() *Reporter {
	if b.ctx == nil {
		return nil
	}
	return b.ctx.Reporter
}
