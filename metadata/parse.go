// Package metadata turns annotations written in Go doc comments into
// structured annotation metadata.
//
// Parsing happens in two steps. The host uses ParseComment while scanning
// declarations, which only needs to know annotation names, so that it can
// decide which processors should see an element. Processors then use a
// Builder, which evaluates annotation values, checks them against the
// annotation type's declaration, and expands mapped and stereotype
// annotations.
package metadata

import (
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"path"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"

	"github.com/jhump/annoinject/model"
)

const (
	// FrameworkPackage is the import path of the framework's own annotations,
	// such as @annoinject.Annotation.
	FrameworkPackage = "github.com/jhump/annoinject"
	// InjectPackage is the import path of the dependency-injection markers.
	InjectPackage = "github.com/jhump/annoinject/inject"
)

// wellKnownQualifiers resolve qualifiers that were not imported by the file.
// Annotation types are rarely referenced by code, so requiring a blank import
// just for a comment would be a nuisance.
var wellKnownQualifiers = map[string]string{
	"annoinject": FrameworkPackage,
	"inject":     InjectPackage,
	"compat":     CompatPackage,
}

// ImportResolver maps the qualifier used in an annotation, like the "inject" in
// "@inject.Singleton", to an import path. The empty qualifier denotes the
// package being scanned.
type ImportResolver func(qualifier string) (pkgPath string, ok bool)

// FileImports returns a resolver for annotations in the given file of pkg.
// Qualifiers are matched against import aliases first and then against the
// names of imported packages (including blank imports).
func FileImports(file *ast.File, pkg *types.Package) ImportResolver {
	aliases := map[string]string{}
	names := map[string]string{}
	imported := map[string]string{}
	if pkg != nil {
		for _, imp := range pkg.Imports() {
			imported[imp.Path()] = imp.Name()
		}
	}
	if file != nil {
		for _, imp := range file.Imports {
			p, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			if imp.Name != nil && imp.Name.Name != "_" && imp.Name.Name != "." {
				aliases[imp.Name.Name] = p
				continue
			}
			name, ok := imported[p]
			if !ok {
				name = guessPackageName(p)
			}
			names[name] = p
		}
	}
	return func(qualifier string) (string, bool) {
		if qualifier == "" {
			if pkg == nil {
				return "", false
			}
			return pkg.Path(), true
		}
		if p, ok := aliases[qualifier]; ok {
			return p, true
		}
		if p, ok := names[qualifier]; ok {
			return p, true
		}
		if pkg != nil && qualifier == pkg.Name() {
			return pkg.Path(), true
		}
		p, ok := wellKnownQualifiers[qualifier]
		return p, ok
	}
}

// guessPackageName follows the go tool's convention for packages whose name
// is not known: the last path element, skipping a major version suffix.
func guessPackageName(importPath string) string {
	base := path.Base(importPath)
	if len(base) > 1 && base[0] == 'v' {
		if _, err := strconv.Atoi(base[1:]); err == nil {
			base = path.Base(path.Dir(importPath))
		}
	}
	return strings.ReplaceAll(base, "-", "_")
}

// HasAnnotations returns true if any line of the comment group looks like an
// annotation.
func HasAnnotations(doc *ast.CommentGroup) bool {
	if doc == nil {
		return false
	}
	for _, l := range commentLines(doc, nil) {
		if strings.HasPrefix(strings.TrimSpace(l.text), "@") {
			return true
		}
	}
	return false
}

type commentLine struct {
	text string
	pos  token.Position
}

// commentLines flattens a comment group into lines, with the position of each
// line's first character after the comment markers.
func commentLines(doc *ast.CommentGroup, fset *token.FileSet) []commentLine {
	var lines []commentLine
	for _, c := range doc.List {
		txt := c.Text
		if strings.HasPrefix(txt, "/*") {
			txt = strings.TrimSuffix(txt[2:], "*/")
		} else if strings.HasPrefix(txt, "//") {
			txt = txt[2:]
		}
		var pos token.Position
		if fset != nil {
			pos = fset.Position(c.Slash)
		}
		// skip past opening "//" or "/*"
		pos.Offset += 2
		pos.Column += 2
		for _, line := range strings.Split(txt, "\n") {
			lines = append(lines, commentLine{text: line, pos: pos})
			pos.Offset += len(line) + 1
			pos.Line++
			pos.Column = 1
		}
	}
	return lines
}

// ParseComment extracts the annotations in a comment group. An annotation is
// a line whose first non-blank character is "@", followed by a type name that
// is optionally qualified, and optionally by a value in parentheses or an
// object of attributes in braces. A value may continue over several lines
// until its brackets balance. Other lines are documentation and are skipped.
//
// Problems are returned as *model.ErrorWithPosition values. An annotation with
// a problem is left out of the result but does not stop parsing.
func ParseComment(doc *ast.CommentGroup, fset *token.FileSet, resolve ImportResolver) ([]model.AnnotationRef, []error) {
	if doc == nil {
		return nil, nil
	}
	lines := commentLines(doc, fset)
	var annos []model.AnnotationRef
	var errs []error
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		trimmed := strings.TrimLeftFunc(l.text, unicode.IsSpace)
		if !strings.HasPrefix(trimmed, "@") {
			continue
		}
		pos := l.pos
		lead := len(l.text) - len(trimmed)
		pos.Offset += lead
		pos.Column += lead

		text := trimmed
		// keep consuming lines while brackets are open
		for depth(text) > 0 && i+1 < len(lines) {
			i++
			text += "\n" + lines[i].text
		}
		a, err := parseAnnotation(text, pos, resolve)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		annos = append(annos, a)
	}
	return annos, errs
}

func parseAnnotation(text string, pos token.Position, resolve ImportResolver) (model.AnnotationRef, error) {
	a := model.AnnotationRef{Pos: pos}
	rest := text[1:]
	qualifier, name, rest := scanName(rest)
	if name == "" {
		return a, model.NewErrorWithPosition(pos, errors.New("annotation must start with a type name"))
	}
	pkgPath, ok := resolve(qualifier)
	if !ok {
		return a, model.NewErrorWithPosition(pos, fmt.Errorf("unknown package %q in annotation @%s.%s", qualifier, qualifier, name))
	}
	a.Alias = qualifier
	a.Name = model.QualifiedName(pkgPath, name)

	if rest == "" || (rest[0] != '(' && rest[0] != '{') {
		if strings.TrimSpace(rest) != "" && !unicode.IsSpace(rune(rest[0])) {
			return a, model.NewErrorWithPosition(pos, fmt.Errorf("unexpected %q after annotation @%s", rest[:1], name))
		}
		return a, nil
	}

	end := closingIndex(rest)
	if end < 0 {
		return a, model.NewErrorWithPosition(pos, fmt.Errorf("unbalanced %q in annotation @%s", rest[:1], name))
	}
	if trailing := strings.TrimSpace(rest[end+1:]); trailing != "" {
		return a, model.NewErrorWithPosition(pos, fmt.Errorf("unexpected %q after annotation @%s", trailing, name))
	}

	valueOffset := len(text) - len(rest)
	start := hcl.Pos{Line: pos.Line, Column: pos.Column + valueOffset, Byte: pos.Offset + valueOffset}
	// A positional value keeps its parentheses, so it may span lines.
	src := rest[:end+1]
	if rest[0] == '(' {
		a.Positional = true
		if strings.TrimSpace(rest[1:end]) == "" {
			return a, model.NewErrorWithPosition(pos, fmt.Errorf("empty value in annotation @%s", name))
		}
	}
	expr, diags := hclsyntax.ParseExpression([]byte(src), pos.Filename, start)
	if diags.HasErrors() {
		return a, model.NewErrorWithPosition(pos, fmt.Errorf("invalid value in annotation @%s: %s", name, diagSummary(diags)))
	}
	a.Expr = expr
	return a, nil
}

// scanName reads "ident" or "ident.ident" from the start of s.
func scanName(s string) (qualifier, name, rest string) {
	first, s := scanIdent(s)
	if first == "" {
		return "", "", s
	}
	if strings.HasPrefix(s, ".") {
		second, r := scanIdent(s[1:])
		if second == "" {
			return "", "", s
		}
		return first, second, r
	}
	return "", first, s
}

func scanIdent(s string) (ident, rest string) {
	i := 0
	for i < len(s) {
		r, sz := utf8.DecodeRuneInString(s[i:])
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			i += sz
			continue
		}
		break
	}
	return s[:i], s[i:]
}

// depth returns how many brackets are left open in s, ignoring brackets in
// string literals.
func depth(s string) int {
	d := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '(' || c == '{' || c == '[':
			d++
		case c == ')' || c == '}' || c == ']':
			d--
		}
	}
	return d
}

// closingIndex returns the index of the bracket that closes the one at s[0],
// or -1 if it is never closed.
func closingIndex(s string) int {
	d := 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '(' || c == '{' || c == '[':
			d++
		case c == ')' || c == '}' || c == ']':
			d--
			if d == 0 {
				return i
			}
		}
	}
	return -1
}

func diagSummary(diags hcl.Diagnostics) string {
	var msgs []string
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		msg := d.Summary
		if d.Detail != "" {
			msg += "; " + d.Detail
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
