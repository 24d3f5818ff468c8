package beans

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhump/annoinject/processor"
)

func TestGenerate(t *testing.T) {
	r := newTestRun(t)
	roots := r.load("example.com/store", "src.go", storeSrc)
	r.process(nil, []*processor.Driver{NewProcessor()}, roots)
	assert.Empty(t, r.messages)

	require.Contains(t, r.files, "example.com/store/store_beans.go")
	require.Len(t, r.files, 1)
	code := r.files["example.com/store/store_beans.go"]

	f, err := parser.ParseFile(token.NewFileSet(), "store_beans.go", code, 0)
	require.NoError(t, err, code)
	assert.Equal(t, "store", f.Name.Name)
	var imports []string
	for _, imp := range f.Imports {
		imports = append(imports, imp.Path.Value)
	}
	assert.ElementsMatch(t, []string{`"github.com/jhump/annoinject"`, `"reflect"`}, imports)
	assert.True(t, strings.HasPrefix(code, "// "+generatedComment+"\n"), code)

	assertContainsCode(t, code,
		`// AnnoinjectBeans marks the package as declaring beans.`,
		`func AnnoinjectBeans() {`,
		// Store
		`annoinject.RegisterBean(annoinject.BeanDescriptor{
			Type: reflect.TypeOf((**Store)(nil)).Elem(),
			Name: "orders",
			Scope: annoinject.Singleton,
			Primary: true,
			Origin: "example.com/store.Store",
			Factory: func(r annoinject.Resolver) (interface{}, error) {
				arg0Res, err := r.Resolve(reflect.TypeOf((*string)(nil)).Elem(), "dsn")
				if err != nil {
					return nil, err
				}
				arg0, _ := arg0Res.(string)`,
		`arg1, _ := arg1Res.([]int)
				bean, err := NewStore(arg0, arg1...)
				if err != nil {
					return nil, err
				}
				var field0 *Cache
				if res, err := r.Resolve(reflect.TypeOf((**Cache)(nil)).Elem(), "cache"); err == nil {
					field0, _ = res.(*Cache)
				}
				bean.Cache = field0`,
		`bean.Clock = field1
				if err := bean.Open(); err != nil {
					return nil, err
				}
				return bean, nil
			},
			Destroy: func(instance interface{}) error {
				bean, ok := instance.(*Store)
				if !ok {
					return nil
				}
				bean.Close()
				return nil
			},
		})`,
		// Cache
		`Type: reflect.TypeOf((**Cache)(nil)).Elem(),
			Name: "cache",
			Scope: annoinject.Prototype,
			Origin: "example.com/store.Cache",
			Factory: func(r annoinject.Resolver) (interface{}, error) {
				bean := new(Cache)
				return bean, nil
			},
		})`,
		// NewClock
		`Type: reflect.TypeOf((*Clock)(nil)).Elem(),
			Scope: annoinject.Singleton,
			Origin: "example.com/store.NewClock",
			Factory: func(r annoinject.Resolver) (interface{}, error) {
				bean := NewClock()
				return bean, nil
			},
		})`,
	)
	assert.Equal(t, 1, strings.Count(code, "Destroy:"))
}

func TestGenerate_NothingToDo(t *testing.T) {
	r := newTestRun(t)
	first := r.load("example.com/plain", "src.go", `package plain

// @inject.Inject
type NotABean struct{}
`)
	second := r.load("example.com/store", "src.go", storeSrc)
	r.process(nil, []*processor.Driver{NewProcessor()}, first, second)
	assert.Empty(t, r.messages)
	assert.Equal(t, []string{"example.com/store/store_beans.go"}, keys(r.files),
		"packages without beans get no file, and each round starts afresh")
}

const staleBeans = `// Code generated by injectapt. DO NOT EDIT.

package store

func init() {}

func AnnoinjectBeans() {}
`

func TestGenerate_StaleFile(t *testing.T) {
	r := newTestRun(t)
	roots := r.loadFiles("example.com/store",
		"store.go", "package store\n\ntype Store struct{}\n",
		"store_beans.go", staleBeans)
	// a marker outside the bean file is not a bean file
	roots = append(roots, r.load("example.com/hand", "hand.go", "package hand\n\nfunc AnnoinjectBeans() {}\n")...)
	r.process(nil, []*processor.Driver{NewProcessor()}, roots)
	assert.Empty(t, r.messages)

	require.Equal(t, []string{"example.com/store/store_beans.go"}, keys(r.files))
	code := r.files["example.com/store/store_beans.go"]
	f, err := parser.ParseFile(token.NewFileSet(), "store_beans.go", code, parser.ParseComments)
	require.NoError(t, err, code)
	assert.Equal(t, "store", f.Name.Name)
	assert.Empty(t, f.Decls, "the emptied file declares nothing")
	assert.True(t, strings.HasPrefix(code, "// "+generatedComment+"\n"), code)
}

func keys(m map[string]string) []string {
	var ks []string
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
