package model

import (
	"go/ast"
	"go/token"
	"go/types"
	"unicode"
	"unicode/utf8"
)

// Source is a type-checked package along with its syntax.
type Source struct {
	Types *types.Package
	Info  *types.Info
	Files []*ast.File
}

// TypeUtils answers questions about the types of the program being processed.
// It only knows about packages it was given (and their imports, for type
// lookups), and it does not type-check anything itself.
type TypeUtils struct {
	fset    *token.FileSet
	sources map[string]*Source
}

// NewTypeUtils creates helpers for the given packages.
func NewTypeUtils(fset *token.FileSet, srcs ...*Source) *TypeUtils {
	tu := &TypeUtils{fset: fset, sources: map[string]*Source{}}
	for _, s := range srcs {
		tu.AddSource(s)
	}
	return tu
}

// AddSource makes another package known, replacing any previous source for
// the same import path. The host calls this when generated files are loaded
// in a later round.
func (tu *TypeUtils) AddSource(s *Source) {
	if s == nil || s.Types == nil {
		return
	}
	tu.sources[s.Types.Path()] = s
}

// Fset returns the file set used to resolve positions.
func (tu *TypeUtils) Fset() *token.FileSet {
	return tu.fset
}

// Position resolves the position of the given object.
func (tu *TypeUtils) Position(obj types.Object) token.Position {
	if obj == nil || tu.fset == nil {
		return token.Position{}
	}
	return tu.fset.Position(obj.Pos())
}

// Source returns the syntax and type information for the given import path,
// or nil if the package was not loaded from source.
func (tu *TypeUtils) Source(pkgPath string) *Source {
	return tu.sources[pkgPath]
}

// Package returns the package with the given import path. Packages that are
// only known as dependencies of loaded packages are found, too.
func (tu *TypeUtils) Package(pkgPath string) *types.Package {
	if s := tu.sources[pkgPath]; s != nil {
		return s.Types
	}
	seen := map[*types.Package]bool{}
	var find func(p *types.Package) *types.Package
	find = func(p *types.Package) *types.Package {
		if seen[p] {
			return nil
		}
		seen[p] = true
		if p.Path() == pkgPath {
			return p
		}
		for _, imp := range p.Imports() {
			if found := find(imp); found != nil {
				return found
			}
		}
		return nil
	}
	for _, s := range tu.sources {
		if p := find(s.Types); p != nil {
			return p
		}
	}
	return nil
}

// LookupTypeName finds the named type with the given qualified name, such as
// "example.com/pkg.Store". It returns nil if the package is unknown or has no
// such type.
func (tu *TypeUtils) LookupTypeName(qualifiedName string) *types.TypeName {
	pkgPath, name := SplitQualifiedName(qualifiedName)
	pkg := tu.Package(pkgPath)
	if pkg == nil {
		return nil
	}
	tn, _ := pkg.Scope().Lookup(name).(*types.TypeName)
	return tn
}

// QualifiedName returns the package-qualified name of obj.
func (tu *TypeUtils) QualifiedName(obj types.Object) string {
	if obj.Pkg() == nil {
		return obj.Name()
	}
	return QualifiedName(obj.Pkg().Path(), obj.Name())
}

// FileFor returns the file that declares obj, or nil if obj's package was not
// loaded from source.
func (tu *TypeUtils) FileFor(obj types.Object) *ast.File {
	if obj == nil || obj.Pkg() == nil {
		return nil
	}
	s := tu.sources[obj.Pkg().Path()]
	if s == nil {
		return nil
	}
	for _, f := range s.Files {
		if f.Pos() <= obj.Pos() && obj.Pos() < f.End() {
			return f
		}
	}
	return nil
}

// DocFor returns the doc comment of a type declaration. When a type spec has
// no comment of its own, the comment of the enclosing declaration is used,
// which is how single-spec declarations are usually documented.
func (tu *TypeUtils) DocFor(tn *types.TypeName) *ast.CommentGroup {
	f := tu.FileFor(tn)
	if f == nil {
		return nil
	}
	for _, d := range f.Decls {
		decl, ok := d.(*ast.GenDecl)
		if !ok || decl.Tok != token.TYPE {
			continue
		}
		for _, s := range decl.Specs {
			spec := s.(*ast.TypeSpec)
			if spec.Name.Pos() != tn.Pos() {
				continue
			}
			if spec.Doc == nil || len(spec.Doc.List) == 0 {
				return decl.Doc
			}
			return spec.Doc
		}
	}
	return nil
}

// Deref strips one level of pointer indirection, if present.
func (tu *TypeUtils) Deref(t types.Type) types.Type {
	if p, ok := t.(*types.Pointer); ok {
		return p.Elem()
	}
	return t
}

// IsInterface returns true if t is an interface type.
func (tu *TypeUtils) IsInterface(t types.Type) bool {
	return types.IsInterface(t)
}

// Implements returns true if t, or a pointer to t, implements iface.
func (tu *TypeUtils) Implements(t types.Type, iface *types.Interface) bool {
	if types.Implements(t, iface) {
		return true
	}
	if _, ok := t.(*types.Pointer); !ok {
		return types.Implements(types.NewPointer(t), iface)
	}
	return false
}

// ConstructorFor looks for the conventional constructor of the named type:
// a function in the same package called "New<Name>" (or "new<Name>" for
// unexported types) whose first result is the type or a pointer to it.
func (tu *TypeUtils) ConstructorFor(tn *types.TypeName) *types.Func {
	if tn.Pkg() == nil {
		return nil
	}
	for _, name := range constructorNames(tn.Name()) {
		fn, ok := tn.Pkg().Scope().Lookup(name).(*types.Func)
		if !ok {
			continue
		}
		sig := fn.Type().(*types.Signature)
		if sig.Results().Len() == 0 {
			continue
		}
		if tu.isTypeOrPointer(sig.Results().At(0).Type(), tn) {
			return fn
		}
	}
	return nil
}

func (tu *TypeUtils) isTypeOrPointer(t types.Type, tn *types.TypeName) bool {
	if n, ok := tu.Deref(t).(*types.Named); ok {
		return n.Obj() == tn
	}
	return false
}

func constructorNames(typeName string) []string {
	r, sz := utf8.DecodeRuneInString(typeName)
	upper := string(unicode.ToUpper(r)) + typeName[sz:]
	return []string{"New" + upper, "new" + upper}
}

// ReturnsError returns true if the last result of sig is the built-in error
// type.
func (tu *TypeUtils) ReturnsError(sig *types.Signature) bool {
	n := sig.Results().Len()
	if n == 0 {
		return false
	}
	return types.Identical(sig.Results().At(n-1).Type(), types.Universe.Lookup("error").Type())
}
