package beans

import (
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/annoinject"
	"github.com/jhump/annoinject/processor"
)

const storeSrc = `package store

// Store keeps orders.
//
// @inject.Singleton
// @inject.Named("orders")
// @inject.Primary
type Store struct {
	// @inject.Inject
	// @inject.Named("cache")
	// @inject.Nullable
	Cache *Cache

	// @inject.Inject
	Clock Clock

	name string
}

func NewStore(
	// @inject.Named("dsn")
	dsn string,
	limits ...int,
) (*Store, error) {
	return &Store{name: dsn}, nil
}

// @inject.PostConstruct
func (s *Store) Open() error { return nil }

// @inject.PreDestroy
func (s *Store) Close() {}

// @inject.Named("cache")
type Cache struct{}

type Clock interface{ Now() int64 }

// @inject.Factory
// @inject.Singleton
func NewClock() Clock { return nil }
`

func analyzeSource(t *testing.T, r *testRun, pkgPath, src string) []*Bean {
	t.Helper()
	roots := r.load(pkgPath, "src.go", src)
	d := NewProcessor()
	r.setup(nil, d)
	ctx := d.Context()
	v := d.Visitors[0].(*DefinitionVisitor)
	for _, el := range processor.NewRound(1, roots, false, false).Elements() {
		require.NoError(t, v.VisitElement(ctx, el, ctx.Metadata.Build(el)))
	}
	require.Contains(t, v.pending, pkgPath)
	return analyze(ctx, v.pending[pkgPath])
}

func TestAnalyze(t *testing.T) {
	r := newTestRun(t)
	beans := analyzeSource(t, r, "example.com/store", storeSrc)
	assert.Empty(t, r.messages)
	require.Len(t, beans, 3)

	store := beans[0]
	assert.Equal(t, "example.com/store.Store", store.Origin())
	assert.Equal(t, "*example.com/store.Store", store.Type.String())
	assert.Equal(t, "orders", store.Name)
	assert.Equal(t, annoinject.Singleton, store.Scope)
	assert.True(t, store.Primary)
	require.NotNil(t, store.Factory)
	assert.Equal(t, "NewStore", store.Factory.Name())
	assert.True(t, store.FactoryReturnsError)
	assert.True(t, store.Variadic)
	require.Len(t, store.Params, 2)
	assert.Equal(t, Dependency{Name: "dsn", Type: types.Typ[types.String], Qualifier: "dsn"}, store.Params[0])
	assert.Equal(t, "limits", store.Params[1].Name)
	assert.Equal(t, "[]int", store.Params[1].Type.String())
	assert.Empty(t, store.Params[1].Qualifier)

	require.Len(t, store.Fields, 2)
	assert.Equal(t, "Cache", store.Fields[0].Name)
	assert.Equal(t, "cache", store.Fields[0].Qualifier)
	assert.True(t, store.Fields[0].Nullable)
	assert.Equal(t, "Clock", store.Fields[1].Name)
	assert.False(t, store.Fields[1].Nullable)

	assert.Equal(t, []Lifecycle{{Method: "Open", ReturnsError: true}}, store.PostConstruct)
	assert.Equal(t, []Lifecycle{{Method: "Close"}}, store.PreDestroy)

	cache := beans[1]
	assert.Equal(t, "cache", cache.Name)
	assert.Equal(t, annoinject.Prototype, cache.Scope, "beans without a scope are prototypes")
	assert.Nil(t, cache.Factory)
	assert.Equal(t, "*example.com/store.Cache", cache.Type.String())

	clock := beans[2]
	assert.Equal(t, "example.com/store.NewClock", clock.Origin())
	assert.Equal(t, annoinject.Singleton, clock.Scope)
	assert.Equal(t, "example.com/store.Clock", clock.Type.String())
	assert.False(t, clock.FactoryReturnsError)
	assert.Empty(t, clock.Params)
}

const badSrc = `package bad

// @inject.Singleton
type Repo interface{ Get() string }

// @inject.Prototype
type Box[T any] struct{ v T }

// @inject.Singleton
// @inject.Prototype
type Both struct{}

// @inject.Factory
func Broken() {}

// @inject.Factory
func OnlyErr() error { return nil }

type Thing struct{}

// @inject.Factory
func (Thing) Make() *Thing { return nil }

// @inject.PostConstruct
func (Thing) Start() {}

// @inject.PreDestroy
func (b *Both) Stop(force bool) {}

// @inject.Primary
type Value struct {
	// @inject.Inject
	Dep *Thing
}

func NewValue() Value { return Value{} }
`

func TestAnalyze_Problems(t *testing.T) {
	r := newTestRun(t)
	beans := analyzeSource(t, r, "example.com/bad", badSrc)

	assert.Equal(t, []string{
		"error: factory Make must be a top-level function, not a method",
		"error: interface Repo cannot be a bean; annotate an implementation or a factory function instead",
		"error: generic type Box cannot be a bean",
		"warning: bean Both is annotated as both singleton and prototype; using singleton",
		"error: field Dep cannot be injected because bean Value is not a pointer",
		"error: factory Broken must return a value, optionally followed by an error",
		"error: factory OnlyErr must return a value, optionally followed by an error",
		"error: lifecycle method Stop must take no arguments and return nothing or an error",
		"warning: lifecycle method Start is ignored because Thing is not a bean",
	}, r.messages)

	require.Len(t, beans, 2)
	assert.Equal(t, "example.com/bad.Both", beans[0].Origin())
	assert.Equal(t, annoinject.Singleton, beans[0].Scope)
	assert.Empty(t, beans[0].PreDestroy)

	assert.Equal(t, "example.com/bad.Value", beans[1].Type.String(), "constructors may return values")
	assert.Equal(t, "NewValue", beans[1].Factory.Name())
	assert.Empty(t, beans[1].Fields)
}

func TestAnalyze_AnnotatedConstructor(t *testing.T) {
	r := newTestRun(t)
	beans := analyzeSource(t, r, "example.com/svc", `package svc

// @inject.Singleton
type Service struct{}

// @inject.Factory
// @inject.Named("ignored")
func NewService() *Service { return &Service{} }
`)
	assert.Equal(t, []string{"warning: factory NewService is already the constructor of bean Service"}, r.messages)
	require.Len(t, beans, 1)
	assert.Empty(t, beans[0].Name)
}

func TestDefinitionVisitor_TestFiles(t *testing.T) {
	r := newTestRun(t)
	roots := r.load("example.com/store", "store_test.go", storeSrc)
	r.process(nil, []*processor.Driver{NewProcessor()}, roots)
	assert.Empty(t, r.files, "test files cannot declare beans")
	assert.Empty(t, r.messages)
}
