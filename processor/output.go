package processor

import (
	"fmt"
	"io"
	"sort"

	"github.com/jhump/gopoet"
)

// OutputFactory is a function that creates a writer to an output for the
// given location. The path is a package import path followed by a file name,
// like "example.com/foo/foo_beans.go". Output factories typically use
// os.OpenFile to create files but this function allows the behavior to be
// customized.
type OutputFactory func(path string) (io.WriteCloser, error)

// OutputWriter is how processors write generated files. Each path may only
// be created once per compilation, so two processors (or two rounds) cannot
// silently clobber each other's output.
type OutputWriter struct {
	factory OutputFactory
	created map[string]struct{}
}

// NewOutputWriter returns a writer that creates outputs with the given factory.
func NewOutputWriter(factory OutputFactory) *OutputWriter {
	return &OutputWriter{factory: factory, created: map[string]struct{}{}}
}

// Create opens the output at the given path.
func (w *OutputWriter) Create(path string) (io.WriteCloser, error) {
	if w.factory == nil {
		return nil, fmt.Errorf("cannot create %s: no output configured", path)
	}
	if _, ok := w.created[path]; ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, path)
	}
	out, err := w.factory(path)
	if err != nil {
		return nil, err
	}
	w.created[path] = struct{}{}
	return out, nil
}

// WriteGoFiles renders the given files and writes each one to the output
// named by its package path and file name.
func (w *OutputWriter) WriteGoFiles(files ...*gopoet.GoFile) error {
	return gopoet.WriteGoFiles(w.Create, files...)
}

// Created returns the paths of all outputs created so far, sorted.
func (w *OutputWriter) Created() []string {
	paths := make([]string, 0, len(w.created))
	for p := range w.created {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
