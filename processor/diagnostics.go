package processor

import (
	"fmt"

	"github.com/jhump/annoinject/model"
)

// DiagnosticKind is the severity of a diagnostic.
type DiagnosticKind int

const (
	Error DiagnosticKind = iota
	Warning
	Note
)

func (k DiagnosticKind) String() string {
	switch k {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Note:
		return "note"
	default:
		return fmt.Sprintf("?%d?", int(k))
	}
}

// Messager is the host's channel for diagnostics. The element is nil for
// diagnostics that are not about any particular element.
type Messager interface {
	PrintMessage(kind DiagnosticKind, msg string, el *model.Element)
}

// Reporter formats diagnostics and hands them to the host's Messager.
//
// Diagnostics about user code never stop processing: reporting an error only
// records that the compilation failed, so that all errors in a round get
// reported instead of just the first. Using a reporter that was never given a
// Messager is a bug in the host integration, so it panics with
// ErrNotInitialized.
type Reporter struct {
	messager    Messager
	errorRaised bool
}

// NewReporter returns a reporter that prints to m.
func NewReporter(m Messager) *Reporter {
	return &Reporter{messager: m}
}

func (r *Reporter) print(kind DiagnosticKind, el *model.Element, format string, args []interface{}) {
	if r == nil || r.messager == nil {
		panic(ErrNotInitialized)
	}
	if kind == Error {
		r.errorRaised = true
	}
	r.messager.PrintMessage(kind, fmt.Sprintf(format, args...), el)
}

// Errorf reports an error about el.
func (r *Reporter) Errorf(el *model.Element, format string, args ...interface{}) {
	r.print(Error, el, format, args)
}

// Warnf reports a warning about el.
func (r *Reporter) Warnf(el *model.Element, format string, args ...interface{}) {
	r.print(Warning, el, format, args)
}

// Notef reports a note about el.
func (r *Reporter) Notef(el *model.Element, format string, args ...interface{}) {
	r.print(Note, el, format, args)
}

// GlobalErrorf reports an error that is not about any element.
func (r *Reporter) GlobalErrorf(format string, args ...interface{}) {
	r.print(Error, nil, format, args)
}

// GlobalWarnf reports a warning that is not about any element.
func (r *Reporter) GlobalWarnf(format string, args ...interface{}) {
	r.print(Warning, nil, format, args)
}

// GlobalNotef reports a note that is not about any element.
func (r *Reporter) GlobalNotef(format string, args ...interface{}) {
	r.print(Note, nil, format, args)
}

// ErrorRaised returns true if an error has been reported.
func (r *Reporter) ErrorRaised() bool {
	return r != nil && r.errorRaised
}

// ReportError reports err about el, or globally when el is nil. A
// *model.ErrorWithPosition keeps its position in the message.
func (r *Reporter) ReportError(el *model.Element, err error) {
	r.Errorf(el, "%v", err)
}
