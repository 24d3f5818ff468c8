package processor

import (
	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
)

// Visitor does the actual work of a processor built on Driver. All of its
// methods run on the host's goroutine, one at a time.
type Visitor interface {
	// VisitElement is called for every element of a round along with its
	// annotation metadata.
	VisitElement(ctx *Context, el *model.Element, md *metadata.AnnotationMetadata) error
	// RoundDone is called after all elements of a round were visited.
	RoundDone(ctx *Context, round *Round) error
	// Finish is called in the final round, after which there is no more
	// input. Visitors that aggregate across rounds write their output here.
	Finish(ctx *Context) error
}

// NopVisitor can be embedded by visitors that do not need every callback.
type NopVisitor struct{}

func (NopVisitor) VisitElement(*Context, *model.Element, *metadata.AnnotationMetadata) error {
	return nil
}

func (NopVisitor) RoundDone(*Context, *Round) error {
	return nil
}

func (NopVisitor) Finish(*Context) error {
	return nil
}

// Driver is a Processor that walks each round's elements and hands them to
// its visitors. Errors returned by visitors are reported as diagnostics, so
// one bad element never stops the others from being processed.
type Driver struct {
	Base
	// Visitors are called in order for every element.
	Visitors []Visitor
	// Claim is what Process returns. Drivers do not claim annotations unless
	// told to, so other processors still see them.
	Claim bool

	name string
}

var _ Processor = (*Driver)(nil)

// NewDriver returns a driver with the given name, incremental kind and
// visitors.
func NewDriver(name string, kind IncrementalKind, visitors ...Visitor) *Driver {
	d := &Driver{Visitors: visitors, name: name}
	d.Kind = kind
	return d
}

// Name returns the name the driver was created with.
func (d *Driver) Name() string {
	return d.name
}

// Process visits every element of the round. In the final round the visitors
// are told to finish.
func (d *Driver) Process(round *Round) bool {
	ctx := d.Context()
	elements := round.Elements()
	ctx.Logger.Debug("processing round", "round", round.Number(), "elements", len(elements), "over", round.Over())

	for _, el := range elements {
		md := ctx.Metadata.Build(el)
		for _, v := range d.Visitors {
			if err := v.VisitElement(ctx, el, md); err != nil {
				ctx.Reporter.ReportError(el, err)
			}
		}
	}
	for _, v := range d.Visitors {
		if err := v.RoundDone(ctx, round); err != nil {
			ctx.Reporter.ReportError(nil, err)
		}
	}
	if round.Over() {
		for _, v := range d.Visitors {
			if err := v.Finish(ctx); err != nil {
				ctx.Reporter.ReportError(nil, err)
			}
		}
		ctx.Logger.Debug("processing finished", "outputs", len(ctx.Output.Created()))
	}
	return d.Claim
}
