package rulegen

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/analysis"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
)

// canonicalSides canonicalizes both sides of a rule and resolves the category it rewrites
func (gen *Generator) canonicalSides(at theory.Positioner, origin string, left, right theory.Expr) (lhs, rhs theory.Expr, category string, err tcerr.TheoryError) {
	lhs, err = analysis.Canonicalize(gen.grammar, left, "")
	if err != nil {
		return nil, nil, "", err
	}
	category, ok := analysis.ExtractCategory(gen.grammar, lhs)
	if !ok {
		return nil, nil, "", tcerr.New(tcerr.NewMalformedPattern{
			Positioner: theory.RangeOf(at),
			Rule:       origin,
			Reason:     "the left hand side must be a constructor pattern, got " + theory.ExprString(left),
		})
	}
	rhs, err = analysis.Canonicalize(gen.grammar, right, category)
	return lhs, rhs, category, err
}

// compileLHS matches a root pattern. A collection holding at least one structured
// element goes through extraction relations, joined on the shared variables when
// there are any; other patterns go through the generic compiler.
func (c *PatternCompiler) compileLHS(lhs theory.Expr, category string, extraction ir.NameKey) (string, tcerr.TheoryError) {
	if !c.gen.opts.NestedLoopCollections {
		if spec := analysis.AnalyzeCollectionPattern(c.gen.grammar, lhs); spec != nil {
			return c.compileProjection(spec, extraction)
		}
	}
	return c.CompileRoot(lhs, category)
}

// equation relates every term matching the left hand side to the term built by
// the right hand side. When the right hand side is itself a pattern binding
// every variable of the left hand side, the converse rule is emitted as well.
func (gen *Generator) equation(eq *theory.Equation, origin string) tcerr.TheoryError {
	lhs, rhs, category, err := gen.canonicalSides(eq, origin, eq.Left, eq.Right)
	if err != nil {
		return err
	}
	if err := gen.equationRule(eq, origin, lhs, rhs, category, gen.label(lhs)+"Eq"); err != nil {
		return err
	}
	if !gen.reversible(lhs, rhs) {
		return nil
	}
	if err := gen.equationRule(eq, origin+" (converse)", rhs, lhs, category, gen.label(rhs)+"EqConverse"); err != nil {
		gen.Debug("converse of equation not emitted", "equation", origin, "reason", err.Error())
	}
	return nil
}

func (gen *Generator) label(pattern theory.Expr) string {
	if apply, ok := pattern.(*theory.Apply); ok {
		return apply.Constructor
	}
	return ""
}

// reversible is true when rhs can be matched as a pattern binding everything lhs uses
func (gen *Generator) reversible(lhs, rhs theory.Expr) bool {
	if _, ok := rhs.(*theory.Apply); !ok {
		return false
	}
	hasSubst := false
	var walk func(theory.Expr)
	walk = func(e theory.Expr) {
		switch e := e.(type) {
		case *theory.Subst:
			hasSubst = true
		case *theory.Apply:
			for _, arg := range e.Args {
				walk(arg)
			}
		case *theory.CollectionPattern:
			for _, elem := range e.Elements {
				walk(elem)
			}
		}
	}
	walk(rhs)
	if hasSubst {
		return false
	}
	rhsVars := theory.Occurrences(rhs)
	for _, v := range theory.PatternVariables(gen.grammar, lhs) {
		if rhsVars[v] == 0 {
			return false
		}
	}
	return true
}

func (gen *Generator) equationRule(eq *theory.Equation, origin string, lhs, rhs theory.Expr, category, subject string) tcerr.TheoryError {
	c := gen.newCompiler(ir.NewRuleScope(), origin, eq)
	s, err := c.compileLHS(lhs, category, ir.NameKey{Kind: ir.Extraction, Subject: subject, Rule: eq.Index})
	if err != nil {
		return err
	}
	for _, fr := range eq.Freshness {
		if err := c.freshness(fr); err != nil {
			return err
		}
	}
	value, err := c.Reconstruct(rhs, category)
	if err != nil {
		return err
	}
	t := c.scope.Fresh("t")
	c.emit(&ir.Let{Var: t, Value: value})
	rule := &ir.Rule{
		Origin: origin,
		Head: []*ir.Atom{
			ir.NewAtom(gen.rel(ir.Membership, category), t),
			ir.NewAtom(gen.rel(ir.Equivalence, category), s, t),
		},
		Body: c.Clauses,
	}
	return c.commit(rule)
}

// baseRewrite rewrites every term matching the left hand side, under its
// conditions, to the term built by the right hand side
func (gen *Generator) baseRewrite(rw *theory.RewriteRule, origin string) tcerr.TheoryError {
	lhs, rhs, category, err := gen.canonicalSides(rw, origin, rw.Left, rw.Right)
	if err != nil {
		return err
	}
	c := gen.newCompiler(ir.NewRuleScope(), origin, rw)
	s, err := c.compileLHS(lhs, category, ir.NameKey{Kind: ir.Extraction, Subject: gen.label(lhs), Rule: rw.Index})
	if err != nil {
		return err
	}
	return c.finishRewrite(rw, s, rhs, category)
}

// finishRewrite applies the conditions and actions of rw to a compiled left
// hand side matched in s, and commits the rewrite rule
func (c *PatternCompiler) finishRewrite(rw *theory.RewriteRule, s string, rhs theory.Expr, category string) tcerr.TheoryError {
	for _, cond := range rw.Conditions {
		var err tcerr.TheoryError
		switch cond := cond.(type) {
		case theory.Freshness:
			err = c.freshness(cond)
		case theory.EnvQuery:
			err = c.envQuery(cond, rhs, category)
		}
		if err != nil {
			return err
		}
	}
	value, err := c.Reconstruct(rhs, category)
	if err != nil {
		return err
	}
	t := c.scope.Fresh("t")
	c.emit(&ir.Let{Var: t, Value: value})
	head := []*ir.Atom{ir.NewAtom(c.gen.rel(ir.Rewrite, category), s, t)}
	for _, action := range rw.Actions {
		atom, err := c.envAction(action)
		if err != nil {
			return err
		}
		head = append(head, atom)
	}
	rule := &ir.Rule{Origin: c.origin, Head: head, Body: c.Clauses}
	return c.commit(rule)
}

// freshness guards that the binder fr.Var does not occur free in fr.Term
func (c *PatternCompiler) freshness(fr theory.Freshness) tcerr.TheoryError {
	x, ok := c.Bindings.Element(fr.Var)
	if !ok {
		return c.unbound(fr.Var)
	}
	if !x.IsRef() {
		return c.malformed("", x.Category, fmt.Sprintf("'%s' in '%s # %s' is a term, not a name", fr.Var, fr.Var, fr.Term))
	}
	b, ok := c.Bindings.Get(fr.Term)
	if !ok {
		return c.unbound(fr.Term)
	}
	var in ir.Expr
	switch b := b.(type) {
	case *RestBinding:
		in = b.Expr
	case *ElementBinding:
		in = b.Expr
		if b.Kind == BindBody {
			in = &ir.Open{Body: b.Expr, Binder: b.Binder}
		}
	}
	c.emit(&ir.Guard{Cond: &ir.Fresh{Name: x.Expr, In: in}})
	return nil
}

// envQuery joins an environment relation. Arguments not bound by the left hand
// side are bound by the query, with the category of their use in rhs.
func (c *PatternCompiler) envQuery(q theory.EnvQuery, rhs theory.Expr, category string) tcerr.TheoryError {
	cols := make([]ir.Column, len(q.Args))
	args := make([]ir.Expr, len(q.Args))
	for i, name := range q.Args {
		if b, ok := c.Bindings.Get(name); ok {
			eb, isElement := b.(*ElementBinding)
			if !isElement {
				return c.malformed("", category, fmt.Sprintf("'%s' holds a collection rest and cannot be queried", name))
			}
			cols[i] = ir.Column{Name: name, Category: columnCategory(eb)}
			args[i] = eb.Expr
			if eb.Kind == BindBody {
				args[i] = &ir.Open{Body: eb.Expr, Binder: eb.Binder}
			}
			continue
		}
		cat, ok := occurrenceCategory(c.gen.grammar, rhs, category, name)
		if !ok {
			return c.malformed("", category, fmt.Sprintf("cannot tell the category of '%s' queried from env_%s", name, q.Relation))
		}
		v := c.scope.Fresh("q")
		c.Bindings.Set(name, &ElementBinding{Category: cat, Expr: ir.R(v), Kind: BindPlain})
		cols[i] = ir.Column{Name: name, Category: cat}
		args[i] = ir.R(v)
	}
	rel, err := c.declareEnv(q.Relation, cols)
	if err != nil {
		return err
	}
	c.emit(&ir.Atom{Relation: rel, Args: args})
	return nil
}

// envAction builds the head atom asserting an environment fact
func (c *PatternCompiler) envAction(a theory.EnvAction) (*ir.Atom, tcerr.TheoryError) {
	name := c.gen.rel(ir.Env, a.Relation)
	declared, isDeclared := c.gen.prog.Relation(name)
	if isDeclared && declared.Arity() != len(a.Args) {
		return nil, tcerr.New(tcerr.NewConflictingRelation{
			Positioner: theory.RangeOf(c.at),
			Relation:   name,
			Existing:   declared.Signature(),
			Wanted:     fmt.Sprintf("%d columns", len(a.Args)),
		})
	}
	cols := make([]ir.Column, len(a.Args))
	args := make([]ir.Expr, len(a.Args))
	for i, arg := range a.Args {
		var cat string
		switch {
		case isDeclared:
			cat = declared.Columns[i].Category
		default:
			var ok bool
			if cat, ok = c.argCategory(arg); !ok {
				return nil, c.malformed("", "", fmt.Sprintf("cannot tell the category of %s asserted into env_%s", theory.ExprString(arg), a.Relation))
			}
		}
		v, err := c.Reconstruct(arg, cat)
		if err != nil {
			return nil, err
		}
		cols[i] = ir.Column{Name: fmt.Sprintf("c%d", i), Category: cat}
		args[i] = v
	}
	rel, err := c.declareEnv(a.Relation, cols)
	if err != nil {
		return nil, err
	}
	return &ir.Atom{Relation: rel, Args: args}, nil
}

func (c *PatternCompiler) argCategory(arg theory.Expr) (string, bool) {
	if v, ok := arg.(*theory.Var); ok {
		if b, ok := c.Bindings.Element(v.Name); ok {
			return columnCategory(b), true
		}
	}
	return analysis.ExtractCategory(c.gen.grammar, arg)
}

func columnCategory(b *ElementBinding) string {
	if b.IsRef() {
		return varCategory
	}
	return b.Category
}

func (c *PatternCompiler) declareEnv(relation string, cols []ir.Column) (string, tcerr.TheoryError) {
	name := c.gen.rel(ir.Env, relation)
	if _, err := c.gen.prog.Declare(&ir.Relation{Name: name, Kind: ir.Env, Columns: cols}); err != nil {
		conflict, ok := err.(*ir.ConflictError)
		if !ok {
			return "", tcerr.New(tcerr.Unclassified{From: err, Positioner: theory.RangeOf(c.at)})
		}
		return "", tcerr.New(tcerr.NewConflictingRelation{
			Positioner: theory.RangeOf(c.at),
			Relation:   name,
			Existing:   conflict.Existing,
			Wanted:     conflict.Wanted,
		})
	}
	return name, nil
}

// occurrenceCategory finds the category name is used at in expr, built in category
func occurrenceCategory(g *theory.Grammar, expr theory.Expr, category, name string) (string, bool) {
	switch e := expr.(type) {
	case *theory.Var:
		return category, e.Name == name
	case *theory.Subst:
		return occurrenceCategory(g, e.Term, category, name)
	case *theory.CollectionPattern:
		for _, elem := range e.Elements {
			if cat, ok := occurrenceCategory(g, elem, category, name); ok {
				return cat, true
			}
		}
	case *theory.Apply:
		rule, ok := g.Rule(e.Constructor)
		if !ok {
			return "", false
		}
		args := rule.Args()
		fields := rule.Fields()
		for i, arg := range e.Args {
			if i >= len(args) {
				break
			}
			f := fields[args[i].Field]
			argCat := f.Category
			switch {
			case f.Kind == theory.FieldVar, args[i].Role == theory.ArgBinder:
				argCat = varCategory
			case f.Kind == theory.FieldNative:
				argCat = f.NativeType
			}
			if cat, ok := occurrenceCategory(g, arg, argCat, name); ok {
				return cat, true
			}
		}
	}
	return "", false
}

// semantics folds a binary constructor over two literals of a native category
func (gen *Generator) semantics(sem theory.SemanticRule, origin string) tcerr.TheoryError {
	rule := gen.grammar.MustRule(sem.Constructor)
	unsupported := func(reason string) tcerr.TheoryError {
		return tcerr.New(tcerr.NewUnsupportedShape{Positioner: sem.Range, Rule: origin, Constructor: sem.Constructor, Reason: reason})
	}
	if _, native := gen.grammar.Native(rule.Category); !native {
		return unsupported(rule.Category + " is not a native category")
	}
	lit, ok := gen.grammar.LitRule(rule.Category)
	if !ok {
		return unsupported(rule.Category + " has no literals")
	}
	fields := rule.Fields()
	if len(fields) != 2 || fields[0].Kind != theory.FieldTerm || fields[1].Kind != theory.FieldTerm ||
		fields[0].Category != rule.Category || fields[1].Category != rule.Category {
		return unsupported("semantics apply to constructors of two " + rule.Category + " operands")
	}
	r := &ir.Rule{
		Origin: origin,
		Head:   []*ir.Atom{ir.NewAtom(gen.rel(ir.Rewrite, rule.Category), "s", "t")},
		Body: []ir.Clause{
			ir.NewAtom(gen.rel(ir.Membership, rule.Category), "s"),
			&ir.Destructure{Subject: "s", Label: rule.Label, Fields: []string{"a", "b"}},
			&ir.Destructure{Subject: "a", Label: lit.Label, Fields: []string{"x"}},
			&ir.Destructure{Subject: "b", Label: lit.Label, Fields: []string{"y"}},
			&ir.Let{Var: "n", Value: &ir.Arith{Op: sem.Op, A: ir.R("x"), B: ir.R("y")}},
			&ir.Let{Var: "t", Value: &ir.Construct{Category: rule.Category, Label: lit.Label, Args: []ir.Expr{ir.R("n")}}},
		},
	}
	return gen.commit(sem, r)
}
