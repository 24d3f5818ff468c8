package metadata

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/jhump/annoinject/model"
)

func parseFile(t *testing.T, fset *token.FileSet, src string) *ast.File {
	t.Helper()
	f, err := parser.ParseFile(fset, "test.go", src, parser.ParseComments)
	require.NoError(t, err)
	return f
}

func docOf(f *ast.File, name string) *ast.CommentGroup {
	for _, decl := range f.Decls {
		switch decl := decl.(type) {
		case *ast.FuncDecl:
			if decl.Name.Name == name {
				return decl.Doc
			}
		case *ast.GenDecl:
			for _, spec := range decl.Specs {
				if ts, ok := spec.(*ast.TypeSpec); ok && ts.Name.Name == name {
					if ts.Doc != nil {
						return ts.Doc
					}
					return decl.Doc
				}
			}
		}
	}
	return nil
}

func TestParseComment(t *testing.T) {
	src := `package foo

import (
	di "github.com/jhump/annoinject/inject"
	"example.com/other/v2"
)

// Store keeps things.
//
// @di.Singleton
// @inject.Named("primary")
// @other.Config{
//   name = "store"
//   size = 10
// }
// @Local
// @inject.Primary trailing words are documentation
type Store struct{}
`
	fset := token.NewFileSet()
	f := parseFile(t, fset, src)
	pkg := types.NewPackage("example.com/foo", "foo")
	annos, errs := ParseComment(docOf(f, "Store"), fset, FileImports(f, pkg))
	require.Empty(t, errs)
	require.Len(t, annos, 5)

	assert.Equal(t, "github.com/jhump/annoinject/inject.Singleton", annos[0].Name)
	assert.Equal(t, "di", annos[0].Alias)
	assert.Nil(t, annos[0].Expr)
	assert.Equal(t, 10, annos[0].Pos.Line)
	assert.Equal(t, 4, annos[0].Pos.Column)

	assert.Equal(t, "github.com/jhump/annoinject/inject.Named", annos[1].Name)
	assert.True(t, annos[1].Positional)
	v, diags := annos[1].Expr.Value(nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, cty.StringVal("primary"), v)

	assert.Equal(t, "example.com/other/v2.Config", annos[2].Name)
	assert.False(t, annos[2].Positional)
	v, diags = annos[2].Expr.Value(nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, cty.StringVal("store"), v.GetAttr("name"))
	size, _ := v.GetAttr("size").AsBigFloat().Int64()
	assert.Equal(t, int64(10), size)

	assert.Equal(t, "example.com/foo.Local", annos[3].Name)
	assert.Equal(t, "github.com/jhump/annoinject/inject.Primary", annos[4].Name)
}

func TestParseComment_Errors(t *testing.T) {
	src := `package foo

// @nope.Thing
// @inject.Named("x"
// @inject.Named()
// @inject.Named("a") extra
// @inject.Named(1 +)
// @
// @inject.Singleton!
// @inject.Primary
type Store struct{}
`
	fset := token.NewFileSet()
	f := parseFile(t, fset, src)
	pkg := types.NewPackage("example.com/foo", "foo")
	annos, errs := ParseComment(docOf(f, "Store"), fset, FileImports(f, pkg))

	// the unbalanced one swallows the rest of the comment
	require.Len(t, errs, 2)
	assert.Empty(t, annos)
	for _, err := range errs {
		var ewp *model.ErrorWithPosition
		require.ErrorAs(t, err, &ewp)
		assert.Equal(t, "test.go", ewp.Pos().Filename)
	}
	assert.Contains(t, errs[0].Error(), `unknown package "nope"`)
	assert.Contains(t, errs[1].Error(), "unbalanced")

	src = `package foo

// @inject.Named()
// @inject.Named("a") extra
// @inject.Named(1 +)
// @
// @inject.Singleton!
// @inject.Primary
type Store struct{}
`
	f = parseFile(t, fset, src)
	annos, errs = ParseComment(docOf(f, "Store"), fset, FileImports(f, pkg))
	require.Len(t, errs, 5)
	assert.Contains(t, errs[0].Error(), "empty value")
	assert.Contains(t, errs[1].Error(), `unexpected "extra"`)
	assert.Contains(t, errs[2].Error(), "invalid value")
	assert.Contains(t, errs[3].Error(), "must start with a type name")
	assert.Contains(t, errs[4].Error(), `unexpected "!"`)
	require.Len(t, annos, 1)
	assert.Equal(t, "github.com/jhump/annoinject/inject.Primary", annos[0].Name)
}

func TestParseComment_BlockComment(t *testing.T) {
	src := `package foo

/*
Store keeps things.
	@inject.Named(
		"multi"
	)
*/
type Store struct{}
`
	fset := token.NewFileSet()
	f := parseFile(t, fset, src)
	annos, errs := ParseComment(docOf(f, "Store"), fset, FileImports(f, nil))
	require.Empty(t, errs)
	require.Len(t, annos, 1)
	v, diags := annos[0].Expr.Value(nil)
	require.False(t, diags.HasErrors())
	assert.Equal(t, cty.StringVal("multi"), v)
	assert.Equal(t, 5, annos[0].Pos.Line)
}

func TestHasAnnotations(t *testing.T) {
	src := `package foo

// Plain docs, with an email@example.com.
type A struct{}

//   @inject.Singleton
type B struct{}
`
	fset := token.NewFileSet()
	f := parseFile(t, fset, src)
	assert.False(t, HasAnnotations(docOf(f, "A")))
	assert.True(t, HasAnnotations(docOf(f, "B")))
	assert.False(t, HasAnnotations(nil))
}

func TestFileImports(t *testing.T) {
	src := `package foo

import (
	"strings"
	alias "example.com/a"
	_ "example.com/blank"
	"example.com/mod/v3"
	"example.com/dashed-name"
)
`
	fset := token.NewFileSet()
	f := parseFile(t, fset, src)
	pkg := types.NewPackage("example.com/foo", "foo")
	pkg.SetImports([]*types.Package{types.NewPackage("example.com/dashed-name", "realname")})
	resolve := FileImports(f, pkg)

	testCases := []struct {
		qualifier string
		want      string
		ok        bool
	}{
		{"", "example.com/foo", true},
		{"foo", "example.com/foo", true},
		{"strings", "strings", true},
		{"alias", "example.com/a", true},
		{"blank", "example.com/blank", true},
		{"mod", "example.com/mod/v3", true},
		{"realname", "example.com/dashed-name", true},
		{"inject", InjectPackage, true},
		{"annoinject", FrameworkPackage, true},
		{"compat", CompatPackage, true},
		{"a", "", false},
		{"unknown", "", false},
	}
	for _, tc := range testCases {
		got, ok := resolve(tc.qualifier)
		assert.Equal(t, tc.ok, ok, tc.qualifier)
		assert.Equal(t, tc.want, got, tc.qualifier)
	}

	_, ok := FileImports(nil, nil)("")
	assert.False(t, ok)
}
