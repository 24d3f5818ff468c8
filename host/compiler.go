package host

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/version"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/tools/go/packages"

	"github.com/jhump/annoinject/internal/ctxlog"
	"github.com/jhump/annoinject/model"
	"github.com/jhump/annoinject/processor"
)

// ErrNoPackages is returned when the patterns match no packages that could
// be type-checked.
var ErrNoPackages = errors.New("no packages to process")

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedTypes | packages.NeedTypesInfo | packages.NeedSyntax |
	packages.NeedModule

// Loader loads packages. packages.Load is one.
type Loader func(cfg *packages.Config, patterns ...string) ([]*packages.Package, error)

// Compiler runs annotation processors over Go packages, in rounds, the way a
// compiler with annotation processing would:
//
//  1. The packages named by the configured patterns are loaded and their
//     declarations are scanned into elements, which make up the first round.
//  2. In every round, each processor is offered the annotations found in the
//     round that match its supported annotation types and that no earlier
//     processor claimed. A processor that supports "*", or that was invoked
//     in an earlier round, is invoked even when it is offered nothing.
//  3. Go files generated during a round are loaded, and their declarations
//     make up the next round.
//  4. When a round generates no Go files, every processor is called once
//     more with a final, empty round.
//
// Problems in the code being processed are reported through the Messager
// and never stop the compilation. Run only returns an error when the
// compilation could not be set up.
type Compiler struct {
	Config
	// Load loads packages. If nil, packages.Load is used.
	Load Loader
}

// NewCompiler returns a compiler for the given configuration.
func NewCompiler(cfg Config) *Compiler {
	return &Compiler{Config: cfg}
}

// Result summarizes a compilation.
type Result struct {
	// ID identifies the compilation in logs and in the incremental cache.
	ID uuid.UUID
	// Rounds is the number of processing rounds, not counting the final
	// one.
	Rounds int
	// Generated are the files written, on disk.
	Generated []string
	// Errors is the number of errors reported.
	Errors int
	// Skipped names the processors that an incremental build did not run.
	Skipped []string
}

// Run performs the compilation.
func (c *Compiler) Run(ctx context.Context) (*Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = ctxlog.FromContext(ctx)
	}
	id := uuid.New()
	logger = logger.With("compilation", id.String())
	comp := &compilation{
		Compiler: c,
		ctx:      ctxlog.WithLogger(ctx, logger),
		id:       id,
		logger:   logger,
		fset:     token.NewFileSet(),
		msgr:     &countingMessager{Messager: c.Messager},
		sources:  map[string]*model.Source{},
		locator:  OutputLocator{Root: c.OutputDir, Dirs: map[string]string{}},
	}
	comp.scanner = NewScanner(comp.fset)
	return comp.run()
}

type compilation struct {
	*Compiler
	ctx     context.Context
	id      uuid.UUID
	logger  *slog.Logger
	fset    *token.FileSet
	msgr    *countingMessager
	scanner *Scanner
	locator OutputLocator

	sources     map[string]*model.Source
	sourceOrder []*model.Source
	roots       []*packages.Package
	procs       []*procState

	// outputs of the current round, and of the whole compilation
	pending []output
	outputs []output

	manifest *Manifest
	digests  map[string]string
}

type procState struct {
	processor.Processor
	supported processor.Set
	invoked   bool

	declared bool
	kind     processor.IncrementalKind
	state    ProcessorState
	skip     bool
	// packages offered in the first round; nil means all of them
	only map[string]bool
}

type output struct {
	proc    string
	pkgPath string
	file    string
}

// contextual is implemented by processors that embed processor.Base, which
// lets the compiler make packages loaded in later rounds known to them.
type contextual interface {
	Context() *processor.Context
}

func (c *compilation) run() (*Result, error) {
	pkgs, err := c.load(c.Patterns, c.IncludeTests)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	c.roots = uniquePackages(pkgs)
	if len(c.roots) == 0 {
		return nil, ErrNoPackages
	}
	for _, pkg := range c.roots {
		c.addPackage(pkg)
	}
	c.loadImports()
	srcVersion := c.sourceVersion()
	c.logger.Debug("loaded packages", "packages", len(c.roots), "sources", len(c.sourceOrder), "version", srcVersion)

	for _, p := range c.Processors {
		ps := &procState{Processor: p}
		env := &processor.Environment{
			Options:       c.Options,
			Messager:      c.msgr,
			Output:        c.outputFactory(ps),
			Fset:          c.fset,
			Sources:       c.sourceOrder,
			SourceVersion: srcVersion,
			Logger:        c.logger.With("processor", p.Name()),
		}
		if err := p.Init(env); err != nil {
			return nil, fmt.Errorf("initializing processor %s: %w", p.Name(), err)
		}
		ps.supported = p.SupportedAnnotationTypes()
		c.procs = append(c.procs, ps)
	}
	c.checkOptions()
	c.checkSourceVersion(srcVersion)
	c.planIncremental()

	var elements []*model.Element
	for _, pkg := range c.roots {
		elements = append(elements, c.scan(c.sources[pkg.PkgPath], nil)...)
	}

	round := 1
	for {
		c.runRound(round, elements, false)
		files := c.takeGoFiles()
		if len(files) == 0 {
			break
		}
		if round >= c.maxRounds() {
			c.msgr.PrintMessage(processor.Error,
				fmt.Sprintf("annotation processing did not finish after %d rounds", c.maxRounds()), nil)
			break
		}
		if elements, err = c.reload(files); err != nil {
			c.msgr.PrintMessage(processor.Error, fmt.Sprintf("loading generated files: %v", err), nil)
			break
		}
		round++
	}
	c.runRound(round+1, nil, true)
	for _, f := range c.takeGoFiles() {
		c.logger.Info("file generated in the final round will not be processed", "file", f)
	}
	c.saveManifest()

	res := &Result{ID: c.id, Rounds: round, Errors: c.msgr.errors}
	for _, o := range c.outputs {
		res.Generated = append(res.Generated, o.file)
	}
	for _, ps := range c.procs {
		if ps.skip {
			res.Skipped = append(res.Skipped, ps.Name())
		}
	}
	c.logger.Info("annotation processing done", "rounds", round, "generated", len(res.Generated), "errors", res.Errors)
	return res, nil
}

func (c *compilation) load(patterns []string, tests bool) ([]*packages.Package, error) {
	cfg := &packages.Config{
		Context: c.ctx,
		Mode:    loadMode,
		Dir:     c.Dir,
		Tests:   tests,
		Fset:    c.fset,
	}
	load := c.Load
	if load == nil {
		load = packages.Load
	}
	pkgs, err := load(cfg, patterns...)
	if err != nil {
		return nil, err
	}
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			c.msgr.PrintMessage(processor.Warning, e.Error(), nil)
		}
	}
	return pkgs, nil
}

// uniquePackages keeps one package per import path. With tests included, a
// package is returned both with and without its test files; the variant with
// more files wins. Test binaries and packages that failed to type-check at
// all are dropped.
func uniquePackages(pkgs []*packages.Package) []*packages.Package {
	byPath := map[string]*packages.Package{}
	var order []string
	for _, pkg := range pkgs {
		if pkg.Types == nil || pkg.TypesInfo == nil || strings.HasSuffix(pkg.PkgPath, ".test") {
			continue
		}
		prev, ok := byPath[pkg.PkgPath]
		if !ok {
			order = append(order, pkg.PkgPath)
		}
		if !ok || len(pkg.Syntax) > len(prev.Syntax) {
			byPath[pkg.PkgPath] = pkg
		}
	}
	unique := make([]*packages.Package, len(order))
	for i, p := range order {
		unique[i] = byPath[p]
	}
	return unique
}

func (c *compilation) addPackage(pkg *packages.Package) *model.Source {
	src := &model.Source{Types: pkg.Types, Info: pkg.TypesInfo, Files: pkg.Syntax}
	if _, ok := c.sources[pkg.PkgPath]; !ok {
		c.sourceOrder = append(c.sourceOrder, src)
	} else {
		for i, s := range c.sourceOrder {
			if s.Types.Path() == pkg.PkgPath {
				c.sourceOrder[i] = src
			}
		}
	}
	c.sources[pkg.PkgPath] = src
	if len(pkg.GoFiles) > 0 {
		c.locator.Dirs[pkg.PkgPath] = filepath.Dir(pkg.GoFiles[0])
	}
	for _, ps := range c.procs {
		if cp, ok := ps.Processor.(contextual); ok {
			cp.Context().Types.AddSource(src)
		}
	}
	return src
}

// loadImports loads the non-standard packages imported by the roots from
// source, so that annotation types declared in them can be read.
func (c *compilation) loadImports() {
	var paths []string
	seen := map[string]bool{}
	for _, pkg := range c.roots {
		for _, imp := range pkg.Imports {
			p := imp.PkgPath
			if seen[p] || c.sources[p] != nil || isStandard(p) {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)
	pkgs, err := c.load(paths, false)
	if err != nil {
		c.logger.Warn("could not load imported packages from source", "error", err)
		return
	}
	for _, pkg := range uniquePackages(pkgs) {
		c.addPackage(pkg)
	}
}

// isStandard reports whether the import path belongs to the standard
// library, whose first path element never has a dot.
func isStandard(importPath string) bool {
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}

func (c *compilation) sourceVersion() string {
	for _, pkg := range c.roots {
		if pkg.Module != nil && pkg.Module.GoVersion != "" {
			if v := version.Lang("go" + pkg.Module.GoVersion); v != "" {
				return v
			}
		}
	}
	if v := version.Lang(runtime.Version()); v != "" {
		return v
	}
	return processor.MaxSourceVersion
}

func (c *compilation) checkOptions() {
	recognized := processor.NewSet()
	for _, ps := range c.procs {
		recognized.AddAll(ps.SupportedOptions())
	}
	var unknown []string
	for k := range c.Options {
		if !recognized.Contains(k) {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		c.msgr.PrintMessage(processor.Warning,
			fmt.Sprintf("options not recognized by any processor: %s", strings.Join(unknown, ", ")), nil)
	}
}

func (c *compilation) checkSourceVersion(srcVersion string) {
	for _, ps := range c.procs {
		supported := ps.SupportedSourceVersion()
		if version.Compare(srcVersion, supported) > 0 {
			c.msgr.PrintMessage(processor.Warning,
				fmt.Sprintf("processor %s supports Go versions up to %s, older than the source version %s",
					ps.Name(), supported, srcVersion), nil)
		}
	}
}

func (c *compilation) outputFactory(ps *procState) processor.OutputFactory {
	return func(p string) (io.WriteCloser, error) {
		dest, f, err := c.locator.Open(p)
		if err != nil {
			return nil, err
		}
		c.pending = append(c.pending, output{proc: ps.Name(), pkgPath: path.Dir(p), file: dest})
		return f, nil
	}
}

// takeGoFiles returns the Go files generated since the last call.
func (c *compilation) takeGoFiles() []string {
	var files []string
	for _, o := range c.pending {
		if strings.HasSuffix(o.file, ".go") {
			files = append(files, o.file)
		}
	}
	c.outputs = append(c.outputs, c.pending...)
	c.pending = nil
	return files
}

// runRound offers the round to every processor. The round tells processors
// whether any error was reported before it started, including errors from
// loading packages and scanning generated files between rounds.
func (c *compilation) runRound(number int, elements []*model.Element, over bool) {
	errorRaised := c.msgr.errors > 0
	base := processor.NewRound(number, elements, over, errorRaised)
	unclaimed := processor.AnnotationNames(elements)
	c.logger.Debug("starting round", "round", number, "elements", len(elements),
		"annotations", len(unclaimed), "over", over)

	for _, ps := range c.procs {
		if ps.skip {
			continue
		}
		r := base
		names := unclaimed
		if number == 1 && ps.only != nil {
			r = processor.NewRound(number, ps.filter(elements), over, errorRaised)
			present := processor.AnnotationNames(r.RootElements())
			names = processor.NewSet()
			for n := range unclaimed {
				if present.Contains(n) {
					names.Add(n)
				}
			}
		}
		offered := processor.NewSet()
		for n := range names {
			if ps.supported.Matches(n) {
				offered.Add(n)
			}
		}
		if !over && len(offered) == 0 && !ps.supported.Contains(processor.Wildcard) && !ps.invoked {
			continue
		}
		ps.invoked = true
		if ps.Process(r.WithAnnotations(offered)) {
			for n := range offered {
				delete(unclaimed, n)
			}
		}
	}
}

func (ps *procState) filter(elements []*model.Element) []*model.Element {
	var kept []*model.Element
	for _, el := range elements {
		if el.Pkg != nil && ps.only[el.Pkg.Path()] {
			kept = append(kept, el)
		}
	}
	return kept
}

func (c *compilation) scan(src *model.Source, files []*ast.File) []*model.Element {
	if src == nil {
		return nil
	}
	if files == nil {
		files = src.Files
	}
	elements, errs := c.scanner.ScanFiles(src, files)
	for _, err := range errs {
		c.msgr.PrintMessage(processor.Error, err.Error(), nil)
	}
	return elements
}

// reload loads the packages that contain the given generated files and
// returns the elements declared in those files.
func (c *compilation) reload(files []string) ([]*model.Element, error) {
	patterns := make([]string, len(files))
	generated := map[string]bool{}
	for i, f := range files {
		patterns[i] = "file=" + f
		generated[f] = true
	}
	pkgs, err := c.load(patterns, c.IncludeTests)
	if err != nil {
		return nil, err
	}
	var elements []*model.Element
	found := 0
	for _, pkg := range uniquePackages(pkgs) {
		src := c.addPackage(pkg)
		var genFiles []*ast.File
		for _, f := range pkg.Syntax {
			if generated[c.fset.File(f.Pos()).Name()] {
				genFiles = append(genFiles, f)
			}
		}
		found += len(genFiles)
		if len(genFiles) > 0 {
			elements = append(elements, c.scan(src, genFiles)...)
		}
	}
	if found < len(files) {
		c.logger.Warn("some generated files are not part of any loaded package", "generated", len(files), "loaded", found)
	}
	return elements, nil
}

// planIncremental decides, from the manifest of the previous build, which
// processors can be skipped and which packages the others need to see.
func (c *compilation) planIncremental() {
	if !processor.IsIncremental(c.Options) || c.CacheDir == "" {
		return
	}
	m, err := LoadManifest(c.CacheDir)
	if err != nil {
		c.logger.Warn("ignoring incremental manifest", "error", err)
	}
	c.manifest = m
	known := m.knownOutputs()
	c.digests = map[string]string{}
	changed := map[string]bool{}
	for _, pkg := range c.roots {
		d, err := PackageDigest(pkg.GoFiles, known)
		if err != nil {
			c.logger.Warn("could not hash package sources", "package", pkg.PkgPath, "error", err)
		}
		c.digests[pkg.PkgPath] = d
		if prev := m.Packages[pkg.PkgPath]; d == "" || prev == nil || prev.Digest != d {
			changed[pkg.PkgPath] = true
		}
	}
	for p, ps := range m.Packages {
		if _, ok := c.digests[p]; !ok && ps.Digest != "" {
			// a package that was processed last time and is gone now
			changed[p] = true
		}
	}

	for _, ps := range c.procs {
		ps.state, ps.kind, ps.declared = c.processorState(ps)
		if !ps.declared {
			continue
		}
		prev, ok := m.Processors[ps.Name()]
		if !ok || !prev.equal(ps.state) {
			continue
		}
		switch ps.kind {
		case processor.Aggregating:
			if len(changed) == 0 && m.allOutputsExist(ps.Name()) {
				ps.skip = true
				c.logger.Debug("skipping processor, nothing changed", "processor", ps.Name())
			}
		default:
			ps.only = map[string]bool{}
			for _, pkg := range c.roots {
				if changed[pkg.PkgPath] || !m.outputsExist(ps.Name(), pkg.PkgPath) {
					ps.only[pkg.PkgPath] = true
				}
			}
			c.logger.Debug("processing changed packages only", "processor", ps.Name(), "packages", len(ps.only))
		}
	}
}

// processorState describes the processor for the manifest. A processor that
// declares no incremental kind among its supported options is not
// incremental and is always run.
func (c *compilation) processorState(ps *procState) (ProcessorState, processor.IncrementalKind, bool) {
	opts := ps.SupportedOptions()
	for k := range opts {
		if kind, ok := processor.KindForKey(k); ok {
			return ProcessorState{
				Kind:          kind.String(),
				Supported:     ps.supported.Sorted(),
				OptionsDigest: OptionsDigest(c.Options, opts),
			}, kind, true
		}
	}
	return ProcessorState{}, 0, false
}

func (c *compilation) saveManifest() {
	if c.manifest == nil {
		return
	}
	if c.msgr.errors > 0 {
		// outputs may be incomplete, so the next build starts over
		if err := os.Remove(filepath.Join(c.CacheDir, manifestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("could not remove incremental manifest", "error", err)
		}
		return
	}
	m := c.manifest
	m.ID = c.id.String()
	for p, ps := range m.Packages {
		if _, ok := c.digests[p]; !ok && ps.Digest != "" {
			delete(m.Packages, p)
		}
	}
	for p, d := range c.digests {
		m.pkg(p).Digest = d
	}
	for _, ps := range c.procs {
		name := ps.Name()
		if !ps.declared {
			delete(m.Processors, name)
			for _, pst := range m.Packages {
				delete(pst.Outputs, name)
			}
			continue
		}
		m.Processors[name] = ps.state
		if ps.skip {
			continue
		}
		for p, pst := range m.Packages {
			if ps.only == nil || ps.only[p] {
				delete(pst.Outputs, name)
			}
		}
		for _, o := range c.outputs {
			if o.proc == name {
				pst := m.pkg(o.pkgPath)
				pst.Outputs[name] = append(pst.Outputs[name], o.file)
			}
		}
	}
	if err := m.Save(c.CacheDir); err != nil {
		c.logger.Warn("could not save incremental manifest", "error", err)
	}
}
