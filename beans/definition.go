package beans

import (
	"go/types"
	"path/filepath"
	"strings"

	"github.com/jhump/gopoet"

	"github.com/jhump/annoinject"
	"github.com/jhump/annoinject/metadata"
	"github.com/jhump/annoinject/model"
	"github.com/jhump/annoinject/processor"
)

// Dependency is something a bean needs resolved before it can be created: a
// parameter of its factory or an injected field.
type Dependency struct {
	// Name is the parameter or field name.
	Name string
	Type types.Type
	// Qualifier is the name given with @inject.Named, if any.
	Qualifier string
	// Nullable dependencies are left at their zero value when they cannot
	// be resolved.
	Nullable bool
}

// Lifecycle is a PostConstruct or PreDestroy method.
type Lifecycle struct {
	Method       string
	ReturnsError bool
}

// Bean is a bean found in a package.
type Bean struct {
	// Element is the annotated type or factory function.
	Element *model.Element
	// Type is the type of the values the bean produces. For a type without
	// a constructor it is a pointer to the annotated type.
	Type    types.Type
	Name    string
	Scope   annoinject.Scope
	Primary bool

	// Factory creates the bean: the annotated factory function or the type's
	// constructor. When nil, the bean is allocated with new.
	Factory             *types.Func
	FactoryReturnsError bool
	Variadic            bool
	Params              []Dependency

	// Fields are set after the bean is created.
	Fields        []Dependency
	PostConstruct []Lifecycle
	PreDestroy    []Lifecycle
}

// Origin returns the qualified name of the bean's declaration.
func (b *Bean) Origin() string {
	return b.Element.QualifiedName()
}

// DefinitionVisitor collects the beans of each round and, when the round is
// done, writes a file registering them for every package that has any.
type DefinitionVisitor struct {
	processor.NopVisitor

	pending map[string]*packageBeans
	order   []string
}

var _ processor.Visitor = (*DefinitionVisitor)(nil)

// packageBeans is what one round contributed for one package.
type packageBeans struct {
	pkg       *types.Package
	types     []*model.Element
	factories []*model.Element
	lifecycle []*model.Element
	funcs     map[*types.Func]*model.Element
	// the package has a bean file from an earlier build
	generated bool
}

func (v *DefinitionVisitor) pkg(p *types.Package) *packageBeans {
	if v.pending == nil {
		v.pending = map[string]*packageBeans{}
	}
	pb := v.pending[p.Path()]
	if pb == nil {
		pb = &packageBeans{pkg: p, funcs: map[*types.Func]*model.Element{}}
		v.pending[p.Path()] = pb
		v.order = append(v.order, p.Path())
	}
	return pb
}

// VisitElement records top-level elements that declare beans, along with
// every function, since constructors carry the qualifiers of their
// parameters.
func (v *DefinitionVisitor) VisitElement(ctx *processor.Context, el *model.Element, md *metadata.AnnotationMetadata) error {
	if el.Parent != nil || el.Pkg == nil {
		return nil
	}
	// generated files are not test files, so they cannot refer to test code
	if strings.HasSuffix(el.GetDeclaringFilename(), "_test.go") {
		return nil
	}
	switch {
	case el.IsElementType(annoinject.Types):
		if declaresBean(md) {
			v.pkg(el.Pkg).types = append(v.pkg(el.Pkg).types, el)
		}
	case el.IsElementType(annoinject.Methods):
		if md.HasAnnotation(Factory) {
			ctx.Reporter.Errorf(el, "factory %s must be a top-level function, not a method", el.Name())
		}
		if md.HasAnnotation(PostConstruct) || md.HasAnnotation(PreDestroy) {
			v.pkg(el.Pkg).lifecycle = append(v.pkg(el.Pkg).lifecycle, el)
		}
	case el.IsElementType(annoinject.Functions):
		fn, ok := el.Obj.(*types.Func)
		if !ok {
			return nil
		}
		pb := v.pkg(el.Pkg)
		pb.funcs[fn] = el
		if el.Name() == MarkerFunc && filepath.Base(el.GetDeclaringFilename()) == FileName(el.Pkg) {
			pb.generated = true
		}
		if md.HasAnnotation(Factory) {
			pb.factories = append(pb.factories, el)
		}
	}
	return nil
}

func declaresBean(md *metadata.AnnotationMetadata) bool {
	return md.HasAnnotation(Singleton) || md.HasAnnotation(Prototype) ||
		md.HasAnnotation(Named) || md.HasAnnotation(Primary)
}

// RoundDone analyzes what the round contributed and generates a bean file
// for every package that declares beans. A package that no longer declares
// any gets its old bean file emptied, since that file refers to beans that
// may be gone.
func (v *DefinitionVisitor) RoundDone(ctx *processor.Context, round *processor.Round) error {
	defer func() {
		v.pending = nil
		v.order = nil
	}()
	for _, path := range v.order {
		pb := v.pending[path]
		beans := analyze(ctx, pb)
		var file *gopoet.GoFile
		switch {
		case len(beans) > 0:
			ctx.Logger.Debug("generating beans", "package", path, "beans", len(beans), "round", round.Number())
			file = generateFile(pb.pkg, beans)
		case pb.generated:
			ctx.Logger.Debug("emptying stale bean file", "package", path, "round", round.Number())
			file = generateEmptyFile(pb.pkg)
		default:
			continue
		}
		if err := ctx.Output.WriteGoFiles(file); err != nil {
			ctx.Reporter.GlobalErrorf("writing beans of package %s: %v", path, err)
		}
	}
	return nil
}

type analyzer struct {
	ctx *processor.Context
	pb  *packageBeans
	// constructors used by type beans
	consumed map[*types.Func]*Bean
	// lifecycle methods already reported as invalid
	invalid map[*model.Element]bool
}

func analyze(ctx *processor.Context, pb *packageBeans) []*Bean {
	a := &analyzer{ctx: ctx, pb: pb, consumed: map[*types.Func]*Bean{}, invalid: map[*model.Element]bool{}}
	var beans []*Bean
	for _, el := range pb.types {
		if b := a.typeBean(el); b != nil {
			beans = append(beans, b)
		}
	}
	for _, el := range pb.factories {
		if b := a.factoryBean(el); b != nil {
			beans = append(beans, b)
		}
	}

	used := map[*types.TypeName]bool{}
	for _, b := range beans {
		tn := a.typeName(b.Type)
		if tn == nil {
			continue
		}
		used[tn] = true
		b.PostConstruct, b.PreDestroy = a.lifecycle(tn)
	}
	for _, el := range pb.lifecycle {
		if tn := receiver(el); tn != nil && !used[tn] {
			a.ctx.Reporter.Warnf(el, "lifecycle method %s is ignored because %s is not a bean", el.Name(), tn.Name())
		}
	}
	return beans
}

func (a *analyzer) typeBean(el *model.Element) *Bean {
	tn, ok := el.Obj.(*types.TypeName)
	if !ok {
		return nil
	}
	md := a.ctx.Metadata.Build(el)
	if types.IsInterface(tn.Type()) {
		a.ctx.Reporter.Errorf(el, "interface %s cannot be a bean; annotate an implementation or a factory function instead", tn.Name())
		return nil
	}
	if a.ctx.Generics.IsGeneric(tn.Type()) {
		a.ctx.Reporter.Errorf(el, "generic type %s cannot be a bean", tn.Name())
		return nil
	}
	b := a.newBean(el, md)

	if ctor := a.ctx.Types.ConstructorFor(tn); ctor != nil && !a.ctx.Generics.IsGenericFunc(ctor) {
		ctorEl := a.pb.funcs[ctor]
		if ctorEl == nil {
			ctorEl = el
		}
		if !a.setFactory(b, ctor, ctorEl) {
			return nil
		}
		a.consumed[ctor] = b
	} else {
		b.Type = types.NewPointer(tn.Type())
	}

	for _, child := range el.Children {
		if !child.IsElementType(annoinject.Fields) {
			continue
		}
		cmd := a.ctx.Metadata.Build(child)
		if !cmd.HasAnnotation(Inject) {
			continue
		}
		if _, ok := b.Type.(*types.Pointer); !ok {
			a.ctx.Reporter.Errorf(child, "field %s cannot be injected because bean %s is not a pointer", child.Name(), tn.Name())
			continue
		}
		b.Fields = append(b.Fields, a.dependency(child, child.Obj.Type()))
	}
	return b
}

func (a *analyzer) factoryBean(el *model.Element) *Bean {
	fn := el.Obj.(*types.Func)
	if owner := a.consumed[fn]; owner != nil {
		a.ctx.Reporter.Warnf(el, "factory %s is already the constructor of bean %s", fn.Name(), owner.Element.Name())
		return nil
	}
	if a.ctx.Generics.IsGenericFunc(fn) {
		a.ctx.Reporter.Errorf(el, "generic function %s cannot be a factory", fn.Name())
		return nil
	}
	b := a.newBean(el, a.ctx.Metadata.Build(el))
	if !a.setFactory(b, fn, el) {
		return nil
	}
	return b
}

func (a *analyzer) newBean(el *model.Element, md *metadata.AnnotationMetadata) *Bean {
	b := &Bean{Element: el, Primary: md.HasAnnotation(Primary)}
	b.Name, _ = md.StringValue(Named, metadata.ValueMember)

	single, proto := md.HasAnnotation(Singleton), md.HasAnnotation(Prototype)
	switch {
	case single && proto:
		a.ctx.Reporter.Warnf(el, "bean %s is annotated as both singleton and prototype; using singleton", el.Name())
		b.Scope = annoinject.Singleton
	case single:
		b.Scope = annoinject.Singleton
	default:
		b.Scope = annoinject.Prototype
	}
	return b
}

// setFactory makes fn the function that creates b. Its element, fnEl, holds
// the annotations of the parameters and is where problems are reported.
func (a *analyzer) setFactory(b *Bean, fn *types.Func, fnEl *model.Element) bool {
	sig := fn.Type().(*types.Signature)
	res := sig.Results()
	switch {
	case res.Len() == 1 && !isError(res.At(0).Type()):
	case res.Len() == 2 && !isError(res.At(0).Type()) && a.ctx.Types.ReturnsError(sig):
		b.FactoryReturnsError = true
	default:
		a.ctx.Reporter.Errorf(fnEl, "factory %s must return a value, optionally followed by an error", fn.Name())
		return false
	}
	b.Type = res.At(0).Type()
	b.Factory = fn
	b.Variadic = sig.Variadic()

	params := map[types.Object]*model.Element{}
	for _, child := range fnEl.Children {
		params[child.Obj] = child
	}
	for i := 0; i < sig.Params().Len(); i++ {
		p := sig.Params().At(i)
		b.Params = append(b.Params, a.dependency(params[p], p.Type()))
	}
	return true
}

// dependency describes a parameter or field. el is nil for parameters of
// constructors from earlier rounds.
func (a *analyzer) dependency(el *model.Element, t types.Type) Dependency {
	d := Dependency{Type: t}
	if el == nil {
		return d
	}
	d.Name = el.Name()
	md := a.ctx.Metadata.Build(el)
	d.Qualifier, _ = md.StringValue(Named, metadata.ValueMember)
	d.Nullable = md.HasAnnotation(Nullable)
	return d
}

func (a *analyzer) lifecycle(tn *types.TypeName) (post, pre []Lifecycle) {
	for _, el := range a.pb.lifecycle {
		if receiver(el) != tn {
			continue
		}
		sig := el.Obj.Type().(*types.Signature)
		res := sig.Results()
		ok := sig.Params().Len() == 0 && (res.Len() == 0 || (res.Len() == 1 && isError(res.At(0).Type())))
		if !ok {
			if !a.invalid[el] {
				a.invalid[el] = true
				a.ctx.Reporter.Errorf(el, "lifecycle method %s must take no arguments and return nothing or an error", el.Name())
			}
			continue
		}
		lc := Lifecycle{Method: el.Name(), ReturnsError: res.Len() == 1}
		md := a.ctx.Metadata.Build(el)
		if md.HasAnnotation(PostConstruct) {
			post = append(post, lc)
		}
		if md.HasAnnotation(PreDestroy) {
			pre = append(pre, lc)
		}
	}
	return post, pre
}

// typeName returns the named type declared in the package being analyzed
// that t is or points to.
func (a *analyzer) typeName(t types.Type) *types.TypeName {
	n, ok := a.ctx.Types.Deref(t).(*types.Named)
	if !ok || n.Obj().Pkg() != a.pb.pkg {
		return nil
	}
	return n.Obj()
}

func receiver(el *model.Element) *types.TypeName {
	fn, ok := el.Obj.(*types.Func)
	if !ok {
		return nil
	}
	recv := fn.Type().(*types.Signature).Recv()
	if recv == nil {
		return nil
	}
	t := recv.Type()
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	if n, ok := t.(*types.Named); ok {
		return n.Obj()
	}
	return nil
}

var errorType = types.Universe.Lookup("error").Type()

func isError(t types.Type) bool {
	return types.Identical(t, errorType)
}
