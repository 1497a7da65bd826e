// Package rulegen compiles a theory into an ir.Program: membership, equivalence
// and rewrite relations per category, and the rules deriving them from the
// theory's equations, rewrites and congruences.
package rulegen

import (
	"fmt"
	"log/slog"

	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/internal/log"
	"github.com/cottand/theoryc/ir"
	"github.com/hashicorp/go-set/v3"
)

var rulegenLogger = log.DefaultLogger.With("section", "rulegen")

type Options struct {
	// NestedLoopCollections matches constructor patterns inside a collection
	// pattern by nested iteration over the collection, rather than by joining
	// one extraction relation per element
	NestedLoopCollections bool
	// SkipEquivalenceCongruence omits the rules closing equivalence relations under constructors
	SkipEquivalenceCongruence bool
}

// Generator holds the state of one theory's compilation
type Generator struct {
	*slog.Logger
	def     *theory.TheoryDef
	grammar *theory.Grammar
	opts    Options
	prog    *ir.Program
	names   *ir.NameTable
	errs    *tcerr.Errors
	// used tracks the relations some rule body reads
	used *set.Set[string]
}

// nameCollision is raised when two relations would be given the same name
type nameCollision struct{ err error }

// Generate compiles def, which must be prepared (see theory.TheoryDef.Prepare).
// Rules that cannot be compiled are skipped and reported in the returned
// diagnostics; the program is still usable when only warnings were reported.
func Generate(def *theory.TheoryDef, opts Options) (*ir.Program, *tcerr.Errors) {
	gen := NewGenerator(def, opts)
	gen.run()
	return gen.prog, gen.errs
}

func NewGenerator(def *theory.TheoryDef, opts Options) *Generator {
	g := theory.NewGrammar(def)
	return &Generator{
		Logger:  rulegenLogger.With("theory", def.Name),
		def:     def,
		grammar: g,
		opts:    opts,
		prog:    ir.NewProgram(def.Name, g.Categories()),
		names:   ir.NewNameTable(),
		errs:    &tcerr.Errors{},
		used:    set.New[string](0),
	}
}

func (gen *Generator) run() {
	gen.guard(gen.def, "categories", func() tcerr.TheoryError {
		gen.declareCategories()
		return nil
	})
	for _, cat := range gen.grammar.Categories() {
		gen.guard(gen.def, "category "+cat, func() tcerr.TheoryError { return gen.categoryRules(cat) })
	}
	for _, r := range gen.def.Terms {
		gen.guard(r, r.Label, func() tcerr.TheoryError { return gen.constructorRules(r) })
	}
	for _, eq := range gen.def.Equations {
		origin := theory.EquationString(eq)
		gen.guard(eq, origin, func() tcerr.TheoryError { return gen.equation(eq, origin) })
	}
	for _, rw := range gen.def.Rewrites {
		origin := theory.RuleString(rw)
		gen.guard(rw, origin, func() tcerr.TheoryError {
			if rw.IsCongruence() {
				return gen.congruence(rw, origin)
			}
			return gen.baseRewrite(rw, origin)
		})
	}
	for _, sem := range gen.def.Semantics {
		origin := fmt.Sprintf("%s: %s", sem.Constructor, sem.Op)
		gen.guard(sem, origin, func() tcerr.TheoryError { return gen.semantics(sem, origin) })
	}
	gen.Debug("generated program",
		"relations", len(gen.prog.Relations()),
		"rules", len(gen.prog.Rules),
		"unread", gen.unusedRelations(),
		"diagnostics", gen.errs)
}

// guard runs the generation of one theory rule. Grammar lookup failures are
// turned into diagnostics, and so is the returned error.
func (gen *Generator) guard(at theory.Positioner, origin string, generate func() tcerr.TheoryError) {
	defer func() {
		r := recover()
		switch r := r.(type) {
		case nil:
		case *theory.LookupError:
			gen.report(origin, tcerr.FromLookup(at, origin, r))
		case nameCollision:
			gen.report(origin, tcerr.New(tcerr.Unclassified{From: r.err, Positioner: theory.RangeOf(at)}))
		default:
			panic(r)
		}
	}()
	if err := generate(); err != nil {
		gen.report(origin, err)
	}
}

func (gen *Generator) report(origin string, err tcerr.TheoryError) {
	if err.Severity() == tcerr.SeverityWarning {
		gen.Warn("skipping rule", "rule", origin, "reason", err.Error())
	} else {
		gen.Debug("rule failed", "rule", origin, "error", err.Error())
	}
	gen.errs = gen.errs.With(err)
}

// commit checks rules before adding them all to the program. Either every rule is added or none is.
func (gen *Generator) commit(at theory.Positioner, rules ...*ir.Rule) tcerr.TheoryError {
	for _, r := range rules {
		if err := r.Check(gen.prog); err != nil {
			return tcerr.New(tcerr.Unclassified{From: err, Positioner: theory.RangeOf(at)})
		}
	}
	for _, r := range rules {
		for _, c := range r.Body {
			if a, ok := c.(*ir.Atom); ok {
				gen.used.Insert(a.Relation)
			}
		}
	}
	gen.prog.Add(rules...)
	return nil
}

// name spells the relation of kind about subject
func (gen *Generator) name(key ir.NameKey) string {
	name, err := gen.names.Name(key)
	if err != nil {
		panic(nameCollision{err: err})
	}
	return name
}

// rel is the name of the relation of kind about a category or constructor
func (gen *Generator) rel(kind ir.RelationKind, subject string) string {
	return gen.name(ir.NameKey{Kind: kind, Subject: subject})
}

// declare adds a relation to the program. Redeclaring it with different columns panics:
// only env relations may conflict, and those are declared through declareEnv.
func (gen *Generator) declare(key ir.NameKey, columns ...ir.Column) string {
	name := gen.name(key)
	if _, err := gen.prog.Declare(&ir.Relation{Name: name, Kind: key.Kind, Columns: columns}); err != nil {
		panic(fmt.Sprintf("redeclared generated relation: %v", err))
	}
	return name
}

func (gen *Generator) declareCategories() {
	for _, cat := range gen.grammar.Categories() {
		gen.declare(ir.NameKey{Kind: ir.Membership, Subject: cat}, ir.Column{Name: "t", Category: cat})
		gen.declare(ir.NameKey{Kind: ir.Equivalence, Subject: cat}, ir.Column{Name: "a", Category: cat}, ir.Column{Name: "b", Category: cat})
		gen.declare(ir.NameKey{Kind: ir.Rewrite, Subject: cat}, ir.Column{Name: "from", Category: cat}, ir.Column{Name: "to", Category: cat})
		gen.declare(ir.NameKey{Kind: ir.Path, Subject: cat}, ir.Column{Name: "from", Category: cat}, ir.Column{Name: "to", Category: cat})
	}
}

// unusedRelations lists declared relations no rule reads
func (gen *Generator) unusedRelations() []string {
	var res []string
	for _, r := range gen.prog.Relations() {
		if !gen.used.Contains(r.Name) {
			res = append(res, r.Name)
		}
	}
	return res
}
