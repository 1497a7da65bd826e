package backend

import (
	"bytes"
	"go/format"
	goast "go/ast"
	"go/token"
	"log/slog"
	"slices"

	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/internal/log"
	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"
	"golang.org/x/tools/go/ast/astutil"
)

var backendLogger = log.DefaultLogger.With("section", "backend")

// reservedNames are declared by the prelude of every generated file
var reservedNames = []string{"Ident", "FreshIdent"}

type Options struct {
	// Package is the package clause of the generated file, main if empty
	Package string
}

// Transpiler generates the Go types of the terms of one theory: an interface per
// category and a struct per constructor, with canonical keys, normalisation
// and capture-avoiding substitution
type Transpiler struct {
	*slog.Logger
	grammar *theory.Grammar
	opts    Options
	fset    *token.FileSet
	errs    *tcerr.Errors

	// targets are the categories a name can be substituted for, those with a Var variant
	targets []string
	// declared maps every top level name of the generated file to what declared it
	declared map[string]string
	skipped  *set.Set[string]
	// collections and scopes are the helper types the constructors need, keyed by type name
	collections map[string]theory.Field
	scopes      map[string]theory.Field
	imports     *set.Set[string]
}

func NewTranspiler(grammar *theory.Grammar, opts Options) *Transpiler {
	if opts.Package == "" {
		opts.Package = "main"
	}
	return &Transpiler{
		Logger:      backendLogger.With("theory", grammar.Theory().Name),
		grammar:     grammar,
		opts:        opts,
		fset:        token.NewFileSet(),
		errs:        &tcerr.Errors{},
		declared:    map[string]string{},
		skipped:     set.New[string](0),
		collections: map[string]theory.Field{},
		scopes:      map[string]theory.Field{},
		imports:     set.New[string](0),
	}
}

// TranspileTheory builds the Go file for the theory. Constructors whose shape
// cannot be represented are reported as warnings and left out of the file.
func (tp *Transpiler) TranspileTheory() (*goast.File, *tcerr.Errors) {
	for _, cat := range tp.grammar.Categories() {
		if _, ok := tp.grammar.VarRule(cat); ok {
			tp.targets = append(tp.targets, cat)
		}
	}
	for _, name := range reservedNames {
		tp.declared[name] = "prelude"
	}

	var decls []goast.Decl
	prelude, err := tp.template("prelude", preludeTemplate, nil)
	if err != nil {
		return nil, tp.errs.With(tp.internal(err))
	}
	decls = append(decls, prelude...)

	for _, cat := range tp.grammar.Categories() {
		if !tp.declare(cat, "category "+cat, tp.grammar.Theory()) {
			continue
		}
		decls = append(decls, tp.categoryInterface(cat))
		for _, rule := range tp.grammar.RulesOf(cat) {
			decls = append(decls, tp.constructor(rule)...)
		}
	}

	helpers, err := tp.helperTypes()
	if err != nil {
		return nil, tp.errs.With(tp.internal(err))
	}
	decls = append(decls, helpers...)

	// AddImport needs an import declaration to extend, the file has no positions to place a new one at
	file := &goast.File{
		Name:      ident(tp.opts.Package),
		GoVersion: goVersion,
		Decls:     append([]goast.Decl{&goast.GenDecl{Tok: token.IMPORT}}, decls...),
	}
	paths := tp.imports.Slice()
	slices.Sort(paths)
	for _, path := range paths {
		astutil.AddImport(tp.fset, file, path)
	}
	tp.Debug("transpiled theory", "decls", len(file.Decls), "imports", paths, "skipped", tp.skipped.Slice())
	return file, tp.errs
}

// Render prints a file built by TranspileTheory as gofmt-ed source
func (tp *Transpiler) Render(file *goast.File) ([]byte, error) {
	buf := bytes.Buffer{}
	if err := format.Node(&buf, tp.fset, file); err != nil {
		return nil, errors.Wrap(err, "printing generated file")
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, errors.Wrapf(err, "formatting generated file:\n%s", buf.String())
	}
	return src, nil
}

// declare reserves a top level name, reporting a clash with an earlier declaration
func (tp *Transpiler) declare(name, what string, at theory.Positioner) bool {
	if existing, ok := tp.declared[name]; ok {
		tp.Warn("generated name clash", "name", name, "existing", existing, "wanted", what)
		tp.errs.With(tcerr.New(tcerr.NewDuplicateConstructor{Positioner: theory.RangeOf(at), Label: name}))
		return false
	}
	tp.declared[name] = what
	return true
}

func (tp *Transpiler) unsupported(rule *theory.GrammarRule, reason string) {
	tp.skipped.Insert(rule.Label)
	tp.errs.With(tcerr.New(tcerr.NewUnsupportedShape{
		Positioner:  rule.Range,
		Rule:        rule.String(),
		Constructor: rule.Label,
		Reason:      reason,
	}))
}

func (tp *Transpiler) internal(err error) tcerr.TheoryError {
	return tcerr.New(tcerr.Unclassified{From: err, Positioner: tp.grammar.Theory().Range})
}

func (tp *Transpiler) template(name, src string, with placeholders) ([]goast.Decl, error) {
	decls, imports, err := tp.instantiate(name, src, with)
	if err != nil {
		return nil, err
	}
	tp.imports.InsertSlice(imports)
	return decls, nil
}
