// Package beans contains the annotation processors that turn
// dependency-injection annotations into bean descriptors.
//
// The "beans" processor is isolating: for every package that declares beans
// it generates a file named "<package>_beans.go" whose init function
// registers one annoinject.BeanDescriptor per bean. A bean is declared by
// annotating a concrete type with @inject.Singleton, @inject.Prototype,
// @inject.Named or @inject.Primary, or by annotating a top-level function
// with @inject.Factory.
//
// The "beans-index" processor is aggregating: it collects every package that
// received a generated bean file and, when the "annoinject.beans.index"
// option names a package, writes a file into it that links all of those
// packages into any program that imports the index package.
package beans

import (
	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/processor"
)

// Names of the annotations the processors act on.
const (
	Singleton     = metadata.InjectPackage + ".Singleton"
	Prototype     = metadata.InjectPackage + ".Prototype"
	Named         = metadata.InjectPackage + ".Named"
	Primary       = metadata.InjectPackage + ".Primary"
	Inject        = metadata.InjectPackage + ".Inject"
	Factory       = metadata.InjectPackage + ".Factory"
	PostConstruct = metadata.InjectPackage + ".PostConstruct"
	PreDestroy    = metadata.InjectPackage + ".PreDestroy"
	Nullable      = metadata.InjectPackage + ".Nullable"
)

// OptionIndexPackage names the import path of the package that receives the
// bean index.
const OptionIndexPackage = "annoinject.beans.index"

// MarkerFunc is the exported function every generated bean file declares.
// The bean index references it so that importing the index package links in
// the bean packages.
const MarkerFunc = "AnnoinjectBeans"

// NewProcessor returns the processor that generates bean descriptors.
func NewProcessor() *processor.Driver {
	return processor.NewDriver("beans", processor.Isolating, &DefinitionVisitor{})
}

// NewIndexProcessor returns the processor that writes the bean index.
func NewIndexProcessor() *processor.Driver {
	d := processor.NewDriver("beans-index", processor.Aggregating, &IndexVisitor{})
	d.ExtraOptions = []string{OptionIndexPackage}
	return d
}

// Register registers both processors with the processor registry.
func Register() {
	processor.RegisterProcessor("beans", func() processor.Processor { return NewProcessor() })
	processor.RegisterProcessor("beans-index", func() processor.Processor { return NewIndexProcessor() })
}
