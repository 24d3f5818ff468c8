package processor

import (
	"bytes"
	"errors"
	"go/token"
	"io"
	"strings"
	"testing"

	"github.com/jhump/gopoet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
)

type message struct {
	kind DiagnosticKind
	msg  string
	el   *model.Element
}

type recordingMessager struct {
	messages []message
}

func (m *recordingMessager) PrintMessage(kind DiagnosticKind, msg string, el *model.Element) {
	m.messages = append(m.messages, message{kind: kind, msg: msg, el: el})
}

type memFile struct {
	bytes.Buffer
	closed bool
}

func (f *memFile) Close() error {
	f.closed = true
	return nil
}

type memOutput map[string]*memFile

func (m memOutput) create(path string) (io.WriteCloser, error) {
	f := &memFile{}
	m[path] = f
	return f, nil
}

func newEnv(opts Options) (*Environment, *recordingMessager, memOutput) {
	msgr := &recordingMessager{}
	out := memOutput{}
	return &Environment{
		Options:       opts,
		Messager:      msgr,
		Output:        out.create,
		Fset:          token.NewFileSet(),
		SourceVersion: "go1.21",
	}, msgr, out
}

func TestBase_Init(t *testing.T) {
	var b Base
	assert.False(t, b.Initialized())
	env, _, _ := newEnv(Options{OptionIncremental: "true", OptionAnnotations: "a.B"})
	require.NoError(t, b.Init(env))
	assert.True(t, b.Initialized())

	ctx := b.Context()
	assert.NotNil(t, ctx.Reporter)
	assert.NotNil(t, ctx.Output)
	assert.NotNil(t, ctx.Types)
	assert.NotNil(t, ctx.Generics)
	assert.NotNil(t, ctx.Metadata)
	assert.NotNil(t, ctx.Attributes)
	assert.NotNil(t, ctx.Logger)
	assert.Same(t, env.Fset, ctx.Types.Fset())
	assert.True(t, b.Config().Incremental())
	assert.Equal(t, []string{"a.B"}, b.Config().ExtraPatterns().Sorted())

	assert.ErrorIs(t, b.Init(env), ErrAlreadyInitialized)
	assert.Same(t, ctx, b.Context(), "second Init must not replace the context")
}

func TestBase_InitNil(t *testing.T) {
	var b Base
	assert.ErrorIs(t, b.Init(nil), ErrNilEnvironment)
	assert.False(t, b.Initialized())
	assert.PanicsWithValue(t, ErrNotInitialized, func() {
		b.Errorf(nil, "boom")
	})
}

func TestBase_IncrementalProcessorType(t *testing.T) {
	var b Base
	assert.Equal(t, Isolating, b.IncrementalProcessorType())
	b.Kind = Aggregating
	assert.Equal(t, Aggregating, b.IncrementalProcessorType())
}

func TestBase_SupportedAnnotationTypes(t *testing.T) {
	var b Base
	assert.Equal(t, NewSet("*"), b.SupportedAnnotationTypes())

	env, _, _ := newEnv(Options{OptionIncremental: "true"})
	require.NoError(t, b.Init(env))
	got := b.SupportedAnnotationTypes()
	assert.True(t, got.Contains(injectNamespace))
	assert.True(t, got.Contains(frameworkNamespace))
	// builtin compat mappings are mapped names, minus nullability markers
	assert.True(t, got.Contains(metadata.CompatPackage+".Component"))
	assert.False(t, got.Contains(metadata.CompatPackage+".Nullable"))
	assert.False(t, got.Contains(metadata.CompatPackage+".NotNull"))
}

func TestBase_SupportedOptions(t *testing.T) {
	b := Base{Kind: Aggregating, ExtraOptions: []string{"my.option"}}
	env, _, _ := newEnv(nil)
	require.NoError(t, b.Init(env))
	assert.Equal(t, NewSet(OptionIncremental, OptionAnnotations, "my.option"), b.SupportedOptions())

	b = Base{Kind: Aggregating}
	env, _, _ = newEnv(Options{OptionIncremental: "true"})
	require.NoError(t, b.Init(env))
	assert.Equal(t, NewSet(OptionIncremental, OptionAnnotations, Aggregating.Key()), b.SupportedOptions())

	b = Base{}
	require.NoError(t, b.Init(env))
	assert.True(t, b.SupportedOptions().Contains(Isolating.Key()))
}

func TestClampSourceVersion(t *testing.T) {
	testCases := map[string]string{
		"go1.21":     "go1.21",
		"1.21":       "go1.21",
		"go1.21.5":   "go1.21",
		"go1.23rc1":  "go1.23",
		"go1.25":     "go1.23",
		"go2.0":      "go1.23",
		"go1.16":     "go1.18",
		"":           "go1.18",
		"not-a-vers": "go1.18",
	}
	for in, want := range testCases {
		assert.Equal(t, want, ClampSourceVersion(in), in)
	}

	b := Base{}
	env, _, _ := newEnv(nil)
	env.SourceVersion = "go1.30"
	require.NoError(t, b.Init(env))
	assert.Equal(t, MaxSourceVersion, b.SupportedSourceVersion())
}

func TestReporter(t *testing.T) {
	msgr := &recordingMessager{}
	r := NewReporter(msgr)
	el := &model.Element{Ident: nil}

	r.Notef(el, "note %d", 1)
	r.Warnf(el, "warn %s", "two")
	assert.False(t, r.ErrorRaised())
	r.Errorf(el, "error %v", 3)
	assert.True(t, r.ErrorRaised())
	r.GlobalNotef("g note")
	r.GlobalWarnf("g warn")
	r.GlobalErrorf("g error")
	r.ReportError(nil, model.NewErrorWithPosition(token.Position{Filename: "a.go", Line: 3, Column: 4}, errors.New("bad")))

	require.Len(t, msgr.messages, 7)
	assert.Equal(t, message{Note, "note 1", el}, msgr.messages[0])
	assert.Equal(t, message{Warning, "warn two", el}, msgr.messages[1])
	assert.Equal(t, message{Error, "error 3", el}, msgr.messages[2])
	assert.Equal(t, message{Note, "g note", nil}, msgr.messages[3])
	assert.Equal(t, message{Warning, "g warn", nil}, msgr.messages[4])
	assert.Equal(t, message{Error, "g error", nil}, msgr.messages[5])
	assert.Equal(t, "a.go:3:4: bad", msgr.messages[6].msg)
}

func TestReporter_NotInitialized(t *testing.T) {
	var nilReporter *Reporter
	noMessager := NewReporter(nil)
	for _, r := range []*Reporter{nilReporter, noMessager} {
		calls := []func(){
			func() { r.Errorf(&model.Element{}, "x") },
			func() { r.Warnf(&model.Element{}, "x") },
			func() { r.Notef(&model.Element{}, "x") },
			func() { r.GlobalErrorf("x") },
			func() { r.GlobalWarnf("x") },
			func() { r.GlobalNotef("x") },
		}
		for _, call := range calls {
			assert.PanicsWithValue(t, ErrNotInitialized, call)
		}
	}
	assert.False(t, nilReporter.ErrorRaised())
}

func TestBase_ReportsThroughMessager(t *testing.T) {
	var b Base
	env, msgr, _ := newEnv(nil)
	require.NoError(t, b.Init(env))

	el := &model.Element{}
	b.Errorf(el, "first")
	b.Errorf(el, "second")
	b.Warnf(el, "w")
	b.Notef(el, "n")
	b.GlobalErrorf("ge")
	b.GlobalWarnf("gw")
	b.GlobalNotef("gn")
	assert.Len(t, msgr.messages, 7, "errors must not stop later reports")
	assert.True(t, b.Context().Reporter.ErrorRaised())
}

func TestOutputWriter(t *testing.T) {
	out := memOutput{}
	w := NewOutputWriter(out.create)

	f := gopoet.NewGoFile("foo_gen.go", "example.com/foo", "foo")
	fn := gopoet.NewFunc("init")
	fn.Println("println(\"hello\")")
	f.AddElement(fn)
	require.NoError(t, w.WriteGoFiles(f))

	created := w.Created()
	require.Len(t, created, 1)
	assert.True(t, strings.HasSuffix(created[0], "foo_gen.go"))
	src := out[created[0]].String()
	assert.Contains(t, src, "package foo")
	assert.Contains(t, src, "func init()")

	_, err := w.Create(created[0])
	assert.ErrorIs(t, err, ErrOutputExists)

	_, err = NewOutputWriter(nil).Create("x/y.go")
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	before := len(RegisteredProcessorNames())
	RegisterProcessor("test-registry", func() Processor { return NewDriver("test-registry", Isolating) })
	RegisterProcessor("test-registry", func() Processor { return NewDriver("test-registry-2", Isolating) })
	names := RegisteredProcessorNames()
	assert.Len(t, names, before+1)
	assert.Contains(t, names, "test-registry")

	procs := AllRegisteredProcessors()
	var found []string
	for _, p := range procs {
		found = append(found, p.Name())
	}
	assert.Contains(t, found, "test-registry-2")

	// every call creates fresh processors
	again := AllRegisteredProcessors()
	assert.NotSame(t, procs[len(procs)-1], again[len(again)-1])
}
