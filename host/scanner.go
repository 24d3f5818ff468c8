package host

import (
	"errors"
	"go/ast"
	"go/token"
	"go/types"

	"github.com/jhump/annoinject"
	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
)

var errMisplacedAnnotation = errors.New("annotations are only allowed on top-level types, functions, variables, and constants, " +
	"on fields and methods of top-level types, and on function parameters")

// Scanner turns the declarations of type-checked files into elements. Every
// top-level declaration becomes an element, annotated or not, so that
// processors can see the whole package. Problems with annotations are
// returned as *model.ErrorWithPosition values and never stop the scan.
type Scanner struct {
	fset *token.FileSet
}

// NewScanner returns a scanner that resolves positions with fset.
func NewScanner(fset *token.FileSet) *Scanner {
	return &Scanner{fset: fset}
}

// ScanPackage scans every file of src.
func (s *Scanner) ScanPackage(src *model.Source) ([]*model.Element, []error) {
	return s.ScanFiles(src, src.Files)
}

// ScanFiles scans the given files, which must belong to src.
func (s *Scanner) ScanFiles(src *model.Source, files []*ast.File) ([]*model.Element, []error) {
	var roots []*model.Element
	var errs []error
	for _, f := range files {
		fs := &fileScan{Scanner: s, src: src, file: f, processed: map[*ast.CommentGroup]bool{}}
		fs.resolve = metadata.FileImports(f, src.Types)
		fs.scan()
		roots = append(roots, fs.roots...)
		errs = append(errs, fs.errs...)
	}
	return roots, errs
}

type fileScan struct {
	*Scanner
	src       *model.Source
	file      *ast.File
	resolve   metadata.ImportResolver
	processed map[*ast.CommentGroup]bool
	roots     []*model.Element
	errs      []error
}

func (fs *fileScan) scan() {
	for _, decl := range fs.file.Decls {
		switch decl := decl.(type) {
		case *ast.GenDecl:
			fs.scanGenDecl(decl)
		case *ast.FuncDecl:
			fs.scanFunc(decl)
		}
	}
	fs.checkMisplaced()
}

func (fs *fileScan) scanGenDecl(decl *ast.GenDecl) {
	for _, s := range decl.Specs {
		switch spec := s.(type) {
		case *ast.ValueSpec:
			doc := docOrDecl(spec.Doc, decl.Doc)
			et := annoinject.Variables
			if decl.Tok == token.CONST {
				et = annoinject.Constants
			}
			for _, id := range spec.Names {
				if id.Name == "_" {
					continue
				}
				if el := fs.newElement(nil, fs.src.Info.Defs[id], id, doc, et); el != nil {
					fs.roots = append(fs.roots, el)
				}
			}
		case *ast.TypeSpec:
			fs.scanType(spec, docOrDecl(spec.Doc, decl.Doc))
		}
	}
}

func (fs *fileScan) scanType(spec *ast.TypeSpec, doc *ast.CommentGroup) {
	obj := fs.src.Info.Defs[spec.Name]
	if obj == nil {
		return
	}
	ets := []annoinject.ElementType{annoinject.Types}
	if types.IsInterface(obj.Type()) {
		ets = append(ets, annoinject.Interfaces)
	} else {
		ets = append(ets, annoinject.ConcreteTypes)
	}
	el := fs.newElement(nil, obj, spec.Name, doc, ets...)
	fs.roots = append(fs.roots, el)

	switch t := spec.Type.(type) {
	case *ast.InterfaceType:
		for _, m := range t.Methods.List {
			// embedded interfaces are not elements
			for _, n := range m.Names {
				fs.newElement(el, fs.src.Info.Defs[n], n, m.Doc, annoinject.InterfaceMethods)
			}
		}
	case *ast.StructType:
		for _, fld := range t.Fields.List {
			names := fld.Names
			if names == nil {
				if id := embeddedIdent(fld.Type); id != nil {
					names = []*ast.Ident{id}
				}
			}
			for _, n := range names {
				fs.newElement(el, fs.src.Info.Defs[n], n, fld.Doc, annoinject.Fields)
			}
		}
	}
}

func (fs *fileScan) scanFunc(decl *ast.FuncDecl) {
	if decl.Recv == nil && decl.Name.Name == "init" {
		// init functions cannot be referred to
		return
	}
	fn, ok := fs.src.Info.Defs[decl.Name].(*types.Func)
	if !ok {
		return
	}
	ets := []annoinject.ElementType{annoinject.Functions}
	if decl.Recv != nil {
		ets = append(ets, annoinject.Methods)
	}
	el := fs.newElement(nil, fn, decl.Name, decl.Doc, ets...)
	fs.roots = append(fs.roots, el)

	params := fn.Type().(*types.Signature).Params()
	docs := fs.paramComments(decl.Type.Params)
	i := 0
	for _, fld := range decl.Type.Params.List {
		names := fld.Names
		if names == nil {
			names = []*ast.Ident{nil}
		}
		for _, n := range names {
			if i >= params.Len() {
				break
			}
			p := params.At(i)
			i++
			if n != nil && n.Name == "_" && docs[fld] == nil {
				continue
			}
			pel := fs.newElement(el, p, n, docs[fld], annoinject.Parameters)
			if n == nil {
				pel.Position = fs.fset.Position(fld.Pos())
			}
		}
	}
}

// paramComments associates the comments inside a parameter list with the
// parameters they annotate. A comment belongs to the parameter that follows
// it, unless it trails a parameter at the end of a line.
func (fs *fileScan) paramComments(params *ast.FieldList) map[*ast.Field]*ast.CommentGroup {
	docs := map[*ast.Field]*ast.CommentGroup{}
	if params == nil || len(params.List) == 0 {
		return docs
	}
	line := func(p token.Pos) int { return fs.fset.Position(p).Line }
	for _, g := range fs.file.Comments {
		if g.Pos() < params.Opening || g.End() > params.Closing {
			continue
		}
		var prev, next *ast.Field
		for _, fld := range params.List {
			if fld.End() <= g.Pos() {
				prev = fld
			} else if next == nil && fld.Pos() >= g.End() {
				next = fld
			}
		}
		var target *ast.Field
		switch {
		case prev != nil && line(prev.End()) == line(g.Pos()) && (next == nil || line(next.Pos()) != line(g.End())):
			target = prev
		case next != nil:
			target = next
		default:
			continue
		}
		if docs[target] == nil {
			docs[target] = g
		} else {
			docs[target] = &ast.CommentGroup{List: append(append([]*ast.Comment(nil), docs[target].List...), g.List...)}
			fs.processed[g] = true
		}
	}
	return docs
}

func (fs *fileScan) newElement(parent *model.Element, obj types.Object, id *ast.Ident, doc *ast.CommentGroup, ets ...annoinject.ElementType) *model.Element {
	if obj == nil {
		return nil
	}
	if doc != nil {
		fs.processed[doc] = true
	}
	var pos token.Position
	if id != nil {
		pos = fs.fset.Position(id.Pos())
	} else {
		pos = fs.fset.Position(obj.Pos())
	}
	var el *model.Element
	if parent != nil {
		el = parent.NewChild(obj, id, doc, pos, ets...)
	} else {
		el = &model.Element{
			Obj:             obj,
			Ident:           id,
			Doc:             doc,
			File:            fs.file,
			Pkg:             fs.src.Types,
			Position:        pos,
			ApplicableTypes: ets,
		}
	}
	if metadata.HasAnnotations(doc) {
		annos, errs := metadata.ParseComment(doc, fs.fset, fs.resolve)
		el.Annotations = annos
		fs.errs = append(fs.errs, errs...)
	}
	return el
}

// checkMisplaced reports annotations in doc comments that did not belong to
// any element.
func (fs *fileScan) checkMisplaced() {
	if metadata.HasAnnotations(fs.file.Doc) {
		fs.errs = append(fs.errs, model.NewErrorWithPosition(fs.fset.Position(fs.file.Doc.Pos()),
			errors.New("package annotations are not supported")))
	}
	ast.Inspect(fs.file, func(node ast.Node) bool {
		var doc *ast.CommentGroup
		switch node := node.(type) {
		case *ast.ImportSpec:
			doc = node.Doc
		case *ast.TypeSpec:
			doc = node.Doc
		case *ast.ValueSpec:
			doc = node.Doc
		case *ast.GenDecl:
			doc = node.Doc
		case *ast.FuncDecl:
			doc = node.Doc
		case *ast.Field:
			doc = node.Doc
		}
		if doc != nil && !fs.processed[doc] && metadata.HasAnnotations(doc) {
			fs.processed[doc] = true
			fs.errs = append(fs.errs, model.NewErrorWithPosition(fs.fset.Position(doc.Pos()), errMisplacedAnnotation))
		}
		return true
	})
}

func docOrDecl(doc, declDoc *ast.CommentGroup) *ast.CommentGroup {
	if doc == nil || len(doc.List) == 0 {
		return declDoc
	}
	return doc
}

// embeddedIdent returns the identifier that names an embedded field.
func embeddedIdent(expr ast.Expr) *ast.Ident {
	switch e := expr.(type) {
	case *ast.Ident:
		return e
	case *ast.StarExpr:
		return embeddedIdent(e.X)
	case *ast.SelectorExpr:
		return e.Sel
	case *ast.IndexExpr:
		return embeddedIdent(e.X)
	case *ast.IndexListExpr:
		return embeddedIdent(e.X)
	default:
		return nil
	}
}
