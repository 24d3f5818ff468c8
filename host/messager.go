package host

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/jhump/annoinject/model"
	"github.com/jhump/annoinject/processor"
)

// ConsoleMessager prints diagnostics the way the Go compiler does, one per
// line, prefixed with the element's position:
//
//    store/store.go:12:6: error: interfaces cannot be beans
//
// It counts what it prints so that the caller can decide the exit status.
type ConsoleMessager struct {
	w io.Writer

	errorColor, warningColor, noteColor, posColor *color.Color

	mu       sync.Mutex
	errors   int
	warnings int
}

// NewConsoleMessager returns a messager that writes to w, with colors when
// useColor is true.
func NewConsoleMessager(w io.Writer, useColor bool) *ConsoleMessager {
	m := &ConsoleMessager{
		w:            w,
		errorColor:   color.New(color.FgRed, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		noteColor:    color.New(color.FgCyan),
		posColor:     color.New(color.Bold),
	}
	// the decision is made by the caller, not by sniffing os.Stdout
	for _, c := range []*color.Color{m.errorColor, m.warningColor, m.noteColor, m.posColor} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return m
}

// PrintMessage implements processor.Messager.
func (m *ConsoleMessager) PrintMessage(kind processor.DiagnosticKind, msg string, el *model.Element) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var c *color.Color
	switch kind {
	case processor.Error:
		m.errors++
		c = m.errorColor
	case processor.Warning:
		m.warnings++
		c = m.warningColor
	default:
		c = m.noteColor
	}
	label := c.Sprint(kind.String() + ":")
	if el != nil {
		pos := m.posColor.Sprint(el.Pos().String())
		_, _ = fmt.Fprintf(m.w, "%s: %s %s\n", pos, label, msg)
		return
	}
	_, _ = fmt.Fprintf(m.w, "%s %s\n", label, msg)
}

// Errors returns the number of errors printed so far.
func (m *ConsoleMessager) Errors() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors
}

// Warnings returns the number of warnings printed so far.
func (m *ConsoleMessager) Warnings() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warnings
}

// countingMessager forwards to another messager and counts errors, so the
// compiler knows whether a round raised any.
type countingMessager struct {
	processor.Messager
	errors int
}

func (m *countingMessager) PrintMessage(kind processor.DiagnosticKind, msg string, el *model.Element) {
	if kind == processor.Error {
		m.errors++
	}
	if m.Messager != nil {
		m.Messager.PrintMessage(kind, msg, el)
	}
}
