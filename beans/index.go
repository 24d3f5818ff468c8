package beans

import (
	"go/types"
	"sort"
	"strings"

	"github.com/jhump/gopoet"

	"github.com/jhump/annoinject"
	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
	"github.com/jhump/annoinject/processor"
)

// IndexFile is the name of the file written into the index package.
const IndexFile = "annoinject_index.go"

const indexAttribute = "annoinject.beans.index.packages"

// IndexVisitor finds the packages that received a generated bean file, in
// any round, and links all of them into the package named by the
// "annoinject.beans.index" option when processing is over.
//
// Bean files are recognized by the marker function they declare, so packages
// whose bean files were generated by an earlier build are indexed too.
type IndexVisitor struct {
	processor.NopVisitor
}

var _ processor.Visitor = (*IndexVisitor)(nil)

func (*IndexVisitor) VisitElement(ctx *processor.Context, el *model.Element, _ *metadata.AnnotationMetadata) error {
	if el.Parent != nil || el.Pkg == nil || el.Name() != MarkerFunc ||
		!el.IsElementType(annoinject.Functions) || el.IsElementType(annoinject.Methods) {
		return nil
	}
	pkgs := model.AttrOrInit(ctx.Attributes, indexAttribute, func() map[string]*types.Package {
		return map[string]*types.Package{}
	})
	pkgs[el.Pkg.Path()] = el.Pkg
	return nil
}

func (*IndexVisitor) Finish(ctx *processor.Context) error {
	pkgs, _ := model.Attr[map[string]*types.Package](ctx.Attributes, indexAttribute)
	for path := range pkgs {
		if !declaresMarker(ctx.Types.Package(path)) {
			// its bean file was emptied in a later round
			delete(pkgs, path)
		}
	}
	if len(pkgs) == 0 {
		return nil
	}
	target, _ := ctx.Options.Get(OptionIndexPackage)
	if target == "" {
		ctx.Reporter.GlobalNotef("option %s is not set; %d bean packages were not indexed", OptionIndexPackage, len(pkgs))
		return nil
	}

	paths := make([]string, 0, len(pkgs))
	for path, pkg := range pkgs {
		// main and test packages cannot be imported, and the index package
		// needs no import of itself
		if path == target || pkg.Name() == "main" || strings.HasSuffix(pkg.Name(), "_test") {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)

	file := gopoet.NewGoFile(IndexFile, target, indexPackageName(ctx, target, pkgs))
	file.FileComment = generatedComment
	initFunc := gopoet.NewFunc("init")
	for _, path := range paths {
		initFunc.Printlnf("_ = %s", gopoet.PackageForGoType(pkgs[path]).Symbol(MarkerFunc))
	}
	file.AddElement(initFunc)
	ctx.Logger.Debug("writing bean index", "package", target, "packages", len(paths))
	return ctx.Output.WriteGoFiles(file)
}

// declaresMarker reports whether the latest version of the package still
// declares the marker function. Unknown packages are assumed to.
func declaresMarker(pkg *types.Package) bool {
	if pkg == nil {
		return true
	}
	_, ok := pkg.Scope().Lookup(MarkerFunc).(*types.Func)
	return ok
}

func indexPackageName(ctx *processor.Context, target string, pkgs map[string]*types.Package) string {
	if pkg := pkgs[target]; pkg != nil {
		return pkg.Name()
	}
	if pkg := ctx.Types.Package(target); pkg != nil {
		return pkg.Name()
	}
	return guessPackageName(target)
}

// guessPackageName derives a package name from an import path the way the
// go command names packages by default.
func guessPackageName(importPath string) string {
	elems := strings.Split(importPath, "/")
	name := elems[len(elems)-1]
	if len(elems) > 1 && isMajorVersion(name) {
		name = elems[len(elems)-2]
	}
	name = strings.TrimPrefix(name, "go-")
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return '_'
		}
		return r
	}, name)
	return name
}

func isMajorVersion(s string) bool {
	if len(s) < 2 || s[0] != 'v' {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
