package beans

import (
	"fmt"
	"go/types"
	"strings"

	"github.com/jhump/gopoet"

	"github.com/jhump/annoinject"
	"github.com/jhump/annoinject/metadata"
)

var (
	reflectTypeOf = gopoet.NewPackage("reflect").Symbol("TypeOf")
	frameworkPkg  = gopoet.NewPackage(metadata.FrameworkPackage)
)

// generatedComment marks files written by the processors, so tools and
// reviewers leave them alone.
const generatedComment = "Code generated by injectapt. DO NOT EDIT."

// FileName returns the name of the bean file generated for pkg.
func FileName(pkg *types.Package) string {
	return pkg.Name() + "_beans.go"
}

func generateFile(pkg *types.Package, beans []*Bean) *gopoet.GoFile {
	file := newGeneratedFile(pkg)
	initFunc := gopoet.NewFunc("init")
	for i, b := range beans {
		if i != 0 {
			initFunc.Println("")
		}
		generateDescriptor(&initFunc.CodeBlock, b)
	}
	file.AddElement(initFunc)
	marker := gopoet.NewFunc(MarkerFunc).
		SetComment(MarkerFunc + " marks the package as declaring beans. The bean index refers to it so\nthat linking the index links the package.")
	file.AddElement(marker)
	return file
}

// generateEmptyFile replaces the bean file of a package that no longer
// declares beans. It has no marker, so the package drops out of the index.
func generateEmptyFile(pkg *types.Package) *gopoet.GoFile {
	return newGeneratedFile(pkg)
}

func newGeneratedFile(pkg *types.Package) *gopoet.GoFile {
	file := gopoet.NewGoFile(FileName(pkg), pkg.Path(), pkg.Name())
	file.FileComment = generatedComment
	return file
}

func generateDescriptor(cb *gopoet.CodeBlock, b *Bean) {
	cb.Printlnf("%s(%s{", frameworkPkg.Symbol("RegisterBean"), frameworkPkg.Symbol("BeanDescriptor"))
	cb.Print("Type: ")
	generateReflectType(cb, b.Type)
	cb.Println(",")
	if b.Name != "" {
		cb.Printlnf("Name: %q,", b.Name)
	}
	cb.Printlnf("Scope: %s,", frameworkPkg.Symbol(scopeSymbol(b.Scope)))
	if b.Primary {
		cb.Println("Primary: true,")
	}
	cb.Printlnf("Origin: %q,", b.Origin())

	cb.Printlnf("Factory: func(r %s) (interface{}, error) {", frameworkPkg.Symbol("Resolver"))
	generateFactory(cb, b)
	cb.Println("},")

	if len(b.PreDestroy) > 0 {
		cb.Println("Destroy: func(instance interface{}) error {")
		cb.Printlnf("bean, ok := instance.(%s)", b.Type)
		cb.Println("if !ok {")
		cb.Println("return nil")
		cb.Println("}")
		generateLifecycle(cb, b.PreDestroy, "err")
		cb.Println("return nil")
		cb.Println("},")
	}
	cb.Println("})")
}

func scopeSymbol(s annoinject.Scope) string {
	if s == annoinject.Singleton {
		return "Singleton"
	}
	return "Prototype"
}

func generateFactory(cb *gopoet.CodeBlock, b *Bean) {
	args := make([]string, len(b.Params))
	for i, d := range b.Params {
		args[i] = fmt.Sprintf("arg%d", i)
		generateResolve(cb, args[i], d)
	}
	if b.Variadic && len(args) > 0 {
		args[len(args)-1] += "..."
	}

	switch {
	case b.Factory == nil:
		cb.Printlnf("bean := new(%s)", b.Type.(*types.Pointer).Elem())
	case b.FactoryReturnsError:
		cb.Printlnf("bean, err := %s(%s)", b.Factory, strings.Join(args, ", "))
		cb.Println("if err != nil {")
		cb.Println("return nil, err")
		cb.Println("}")
	default:
		cb.Printlnf("bean := %s(%s)", b.Factory, strings.Join(args, ", "))
	}

	for i, d := range b.Fields {
		v := fmt.Sprintf("field%d", i)
		generateResolve(cb, v, d)
		cb.Printlnf("bean.%s = %s", d.Name, v)
	}
	generateLifecycle(cb, b.PostConstruct, "nil, err")
	cb.Println("return bean, nil")
}

// generateResolve declares a variable named v holding the resolved
// dependency.
func generateResolve(cb *gopoet.CodeBlock, v string, d Dependency) {
	if d.Nullable {
		cb.Printlnf("var %s %s", v, d.Type)
		cb.Print("if res, err := r.Resolve(")
		generateReflectType(cb, d.Type)
		cb.Printlnf(", %q); err == nil {", d.Qualifier)
		cb.Printlnf("%s, _ = res.(%s)", v, d.Type)
		cb.Println("}")
		return
	}
	cb.Printf("%sRes, err := r.Resolve(", v)
	generateReflectType(cb, d.Type)
	cb.Printlnf(", %q)", d.Qualifier)
	cb.Println("if err != nil {")
	cb.Println("return nil, err")
	cb.Println("}")
	cb.Printlnf("%s, _ := %sRes.(%s)", v, v, d.Type)
}

// generateLifecycle calls the given methods on bean, returning ret when one
// of them fails.
func generateLifecycle(cb *gopoet.CodeBlock, methods []Lifecycle, ret string) {
	for _, m := range methods {
		if !m.ReturnsError {
			cb.Printlnf("bean.%s()", m.Method)
			continue
		}
		cb.Printlnf("if err := bean.%s(); err != nil {", m.Method)
		cb.Printlnf("return %s", ret)
		cb.Println("}")
	}
}

func generateReflectType(cb *gopoet.CodeBlock, t types.Type) {
	cb.Printf("%s((*%s)(nil)).Elem()", reflectTypeOf, t)
}
