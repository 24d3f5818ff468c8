package beans

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/annoinject/host"
	"github.com/jhump/annoinject/model"
	"github.com/jhump/annoinject/processor"
)

// testRun feeds packages to processors the way the host does, collecting
// diagnostics and generated files in memory.
type testRun struct {
	t        *testing.T
	fset     *token.FileSet
	sources  []*model.Source
	messages []string
	files    map[string]string
}

func newTestRun(t *testing.T) *testRun {
	return &testRun{t: t, fset: token.NewFileSet(), files: map[string]string{}}
}

// load type-checks a single-file package and returns its elements.
func (r *testRun) load(pkgPath, fileName, src string) []*model.Element {
	r.t.Helper()
	return r.loadFiles(pkgPath, fileName, src)
}

// loadFiles type-checks a package made of the given file names and sources,
// passed in pairs.
func (r *testRun) loadFiles(pkgPath string, namesAndSources ...string) []*model.Element {
	r.t.Helper()
	var files []*ast.File
	for i := 0; i+1 < len(namesAndSources); i += 2 {
		f, err := parser.ParseFile(r.fset, pkgPath+"/"+namesAndSources[i], namesAndSources[i+1], parser.ParseComments)
		require.NoError(r.t, err)
		files = append(files, f)
	}
	info := &types.Info{Defs: map[*ast.Ident]types.Object{}, Uses: map[*ast.Ident]types.Object{}}
	pkg, err := (&types.Config{}).Check(pkgPath, r.fset, files, info)
	require.NoError(r.t, err)
	s := &model.Source{Types: pkg, Info: info, Files: files}
	r.sources = append(r.sources, s)
	roots, errs := host.NewScanner(r.fset).ScanPackage(s)
	require.Empty(r.t, errs)
	return roots
}

func (r *testRun) PrintMessage(kind processor.DiagnosticKind, msg string, _ *model.Element) {
	r.messages = append(r.messages, kind.String()+": "+msg)
}

type memFile struct {
	bytes.Buffer
	close func(string)
}

func (f *memFile) Close() error {
	f.close(f.String())
	return nil
}

func (r *testRun) create(path string) (io.WriteCloser, error) {
	return &memFile{close: func(s string) { r.files[path] = s }}, nil
}

func (r *testRun) setup(opts processor.Options, procs ...*processor.Driver) {
	r.t.Helper()
	for _, p := range procs {
		require.NoError(r.t, p.Init(&processor.Environment{
			Options:  opts,
			Messager: r,
			Output:   r.create,
			Fset:     r.fset,
			Sources:  r.sources,
		}))
	}
}

// process runs one round per element set, then the final round.
func (r *testRun) process(opts processor.Options, procs []*processor.Driver, rounds ...[]*model.Element) {
	r.t.Helper()
	r.setup(opts, procs...)
	for i, roots := range rounds {
		for _, p := range procs {
			p.Process(processor.NewRound(i+1, roots, false, false))
		}
	}
	for _, p := range procs {
		p.Process(processor.NewRound(len(rounds)+1, nil, true, false))
	}
}

// squash collapses runs of white space so that assertions do not depend on
// how generated code is formatted.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func assertContainsCode(t *testing.T, code string, fragments ...string) {
	t.Helper()
	code = squash(code)
	for _, f := range fragments {
		assert.Contains(t, code, squash(f))
	}
}

func TestProcessors(t *testing.T) {
	d := NewProcessor()
	assert.Equal(t, "beans", d.Name())
	assert.Equal(t, processor.Isolating, d.IncrementalProcessorType())
	require.Len(t, d.Visitors, 1)
	assert.IsType(t, &DefinitionVisitor{}, d.Visitors[0])

	idx := NewIndexProcessor()
	assert.Equal(t, "beans-index", idx.Name())
	assert.Equal(t, processor.Aggregating, idx.IncrementalProcessorType())
	assert.True(t, idx.SupportedOptions().Contains(OptionIndexPackage))
	assert.False(t, d.SupportedOptions().Contains(OptionIndexPackage))
	assert.False(t, idx.Claim)

	Register()
	names := processor.RegisteredProcessorNames()
	assert.Contains(t, names, "beans")
	assert.Contains(t, names, "beans-index")
}
