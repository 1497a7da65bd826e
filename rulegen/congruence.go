package rulegen

import (
	"github.com/cottand/theoryc/frontend/analysis"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
)

// congruence lifts the rewrite of a sub-term named by the premise of rw into
// its parent. The three shapes are compiled differently: a collection element
// is found through the contains relation, a scope body through the binding
// projection and any other field by destructuring the parent.
func (gen *Generator) congruence(rw *theory.RewriteRule, origin string) tcerr.TheoryError {
	lhs, rhs, category, err := gen.canonicalSides(rw, origin, rw.Left, rw.Right)
	if err != nil {
		return err
	}
	canonical := *rw
	canonical.Left = lhs
	cong, err := analysis.ClassifyCongruence(gen.grammar, &canonical)
	if err != nil {
		return err
	}
	apply := lhs.(*theory.Apply)
	c := gen.newCompiler(ir.NewRuleScope(), origin, rw)
	var s string
	switch cong := cong.(type) {
	case *analysis.CollectionCongruence:
		s, err = c.collectionCongruence(cong, apply)
	case *analysis.RegularCongruence:
		if cong.IsBinding {
			s, err = c.bindingCongruence(cong, apply)
		} else {
			s, err = c.regularCongruence(cong, apply)
		}
	}
	if err != nil {
		return err
	}
	gen.Debug("compiled congruence", "rule", origin, "shape", congruenceShape(cong))
	return c.finishRewrite(rw, s, rhs, category)
}

func congruenceShape(cong analysis.Congruence) string {
	switch cong := cong.(type) {
	case *analysis.CollectionCongruence:
		return "collection"
	case *analysis.RegularCongruence:
		if cong.IsBinding {
			return "binding"
		}
	}
	return "regular"
}

// collectionCongruence rewrites one element of a collection, keeping the others:
//
//	rw(s, t) <-- contains(s, e), rw_elem(e, e2), s = C(bag, ...), rest = bag - e, t = C(rest + e2, ...)
func (c *PatternCompiler) collectionCongruence(cong *analysis.CollectionCongruence, apply *theory.Apply) (string, tcerr.TheoryError) {
	rule := c.gen.grammar.MustRule(cong.Constructor)
	fields := rule.Fields()
	s, e, e2 := c.scope.Fresh("s"), c.scope.Fresh("e"), c.scope.Fresh("e")
	c.emit(
		ir.NewAtom(c.gen.rel(ir.Contains, cong.Constructor), s, e),
		ir.NewAtom(c.gen.rel(ir.Rewrite, cong.ElementCategory), e, e2),
	)
	c.Bindings.Set(cong.Source, &ElementBinding{Category: cong.ElementCategory, Expr: ir.R(e), Kind: BindPlain})
	c.Bindings.Set(cong.Target, &ElementBinding{Category: cong.ElementCategory, Expr: ir.R(e2), Kind: BindPlain})

	fieldVars := make([]string, len(fields))
	for i := range fields {
		fieldVars[i] = c.scope.Fresh("f")
	}
	c.emit(&ir.Destructure{Subject: s, Label: rule.Label, Fields: fieldVars})
	if err := c.CompileArgs(apply, rule, fieldVars, cong.Arg); err != nil {
		return "", err
	}
	c.bindRest(cong.Rest, fieldVars[cong.Field], []ir.Expr{ir.R(e)}, fields[cong.Field], rule.Label)
	return s, nil
}

// bindingCongruence rewrites the body of a scope read raw through the binding
// projection, so that rebuilding the scope from its placeholder and the
// rewritten body allocates no name
func (c *PatternCompiler) bindingCongruence(cong *analysis.RegularCongruence, apply *theory.Apply) (string, tcerr.TheoryError) {
	g := c.gen.grammar
	rule := g.MustRule(cong.Constructor)
	if len(rule.Fields()) != 1 {
		return "", c.unsupported(rule.Label, "rewriting under a binder of a constructor with other fields")
	}
	if analysis.ParseCongruenceLHS(g, apply, cong.Source) == nil {
		return "", c.unsupported(rule.Label, "nested patterns beside a rewritten scope body")
	}
	binderArg := rule.Args()[cong.Arg].Partner
	binder, ok := apply.Args[binderArg].(*theory.Var)
	if !ok {
		return "", c.malformed(rule.Label, rule.Category, "binder must be a variable")
	}
	f := rule.Fields()[cong.Field]
	s, b, body, body2 := c.scope.Fresh("s"), c.scope.Fresh("b"), c.scope.Fresh("body"), c.scope.Fresh("body")
	c.emit(
		ir.NewAtom(c.gen.rel(ir.BindingProjection, cong.Constructor), s, b, body),
		ir.NewAtom(c.gen.rel(ir.Rewrite, cong.FieldCategory), body, body2),
	)
	c.Bindings.Set(binder.Name, &ElementBinding{Category: f.BinderCategory, Expr: ir.R(b), Kind: BindBinder, Scope: s})
	c.Bindings.Set(cong.Source, &ElementBinding{Category: f.Category, Expr: ir.R(body), Kind: BindBody, Scope: s, Binder: ir.R(b)})
	c.Bindings.Set(cong.Target, &ElementBinding{Category: f.Category, Expr: ir.R(body2), Kind: BindBody, Scope: s, Binder: ir.R(b)})
	return s, nil
}

// regularCongruence rewrites an ordinary field of a constructor
func (c *PatternCompiler) regularCongruence(cong *analysis.RegularCongruence, apply *theory.Apply) (string, tcerr.TheoryError) {
	rule := c.gen.grammar.MustRule(cong.Constructor)
	fields := rule.Fields()
	s := c.scope.Fresh("s")
	c.emit(ir.NewAtom(c.gen.rel(ir.Membership, cong.Category), s))
	fieldVars := make([]string, len(fields))
	for i := range fields {
		fieldVars[i] = c.scope.Fresh("f")
	}
	c.emit(&ir.Destructure{Subject: s, Label: rule.Label, Fields: fieldVars})
	if err := c.CompileArgs(apply, rule, fieldVars, cong.Arg); err != nil {
		return "", err
	}
	t := c.scope.Fresh("f")
	c.emit(ir.NewAtom(c.gen.rel(ir.Rewrite, cong.FieldCategory), fieldVars[cong.Field], t))
	c.Bindings.Set(cong.Source, &ElementBinding{Category: cong.FieldCategory, Expr: ir.R(fieldVars[cong.Field]), Kind: BindPlain})
	c.Bindings.Set(cong.Target, &ElementBinding{Category: cong.FieldCategory, Expr: ir.R(t), Kind: BindPlain})
	return s, nil
}
