package rulegen

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
)

func (c *PatternCompiler) unbound(name string) tcerr.TheoryError {
	return tcerr.New(tcerr.NewUnboundVariable{Positioner: theory.RangeOf(c.at), Name: name, Rule: c.origin})
}

// Reconstruct builds the value expr denotes in category from the bindings of the
// left hand side. category may be a theory category, the Var pseudo-category
// or a native type. Binders the construction introduces are allocated by clauses
// appended to c.Clauses, so the rule body must be read after reconstruction.
func (c *PatternCompiler) Reconstruct(expr theory.Expr, category string) (ir.Expr, tcerr.TheoryError) {
	g := c.gen.grammar
	switch e := expr.(type) {
	case *theory.Var:
		if r, ok := g.Nullary(category, e.Name); ok {
			return &ir.Construct{Category: category, Label: r.Label}, nil
		}
		b, ok := c.Bindings.Get(e.Name)
		if !ok {
			return nil, c.unbound(e.Name)
		}
		switch b := b.(type) {
		case *RestBinding:
			rule, ok := g.Rule(b.Constructor)
			if !ok || rule.Category != category || rule.Arity() != 1 {
				return nil, c.malformed(b.Constructor, category, fmt.Sprintf("'%s' holds the rest of a %s collection, used as %s", e.Name, b.Constructor, category))
			}
			return &ir.Construct{Category: category, Label: b.Constructor, Args: []ir.Expr{&ir.BagOf{Label: b.Constructor, Set: b.Set, Base: b.Expr}}}, nil
		case *ElementBinding:
			return c.useElement(e.Name, b, category)
		}

	case *theory.Literal:
		if !g.IsCategory(category) {
			return &ir.IntLit{Value: e.Value}, nil
		}
		lit, ok := g.LitRule(category)
		if !ok {
			return nil, c.malformed("", category, fmt.Sprintf("literal %d in a category without literals", e.Value))
		}
		return &ir.Construct{Category: category, Label: lit.Label, Args: []ir.Expr{&ir.IntLit{Value: e.Value}}}, nil

	case *theory.Apply:
		return c.reconstructApply(e, category)

	case *theory.Subst:
		return c.reconstructSubst(e, category)

	case *theory.CollectionPattern:
		return nil, c.malformed(e.Constructor, category, "collection "+theory.ExprString(e)+" outside of a collection field")
	}
	return nil, c.malformed("", category, fmt.Sprintf("unexpected expression %T", expr))
}

// useElement is the value of a variable bound to an element, used in category
func (c *PatternCompiler) useElement(name string, b *ElementBinding, category string) (ir.Expr, tcerr.TheoryError) {
	if b.IsRef() {
		if category == varCategory {
			return b.Expr, nil
		}
		if b.Kind == BindBinder && b.Category != category {
			return nil, c.malformed("", category, fmt.Sprintf("'%s' binds a %s, used as %s", name, b.Category, category))
		}
		varRule, ok := c.gen.grammar.VarRule(category)
		if !ok {
			return nil, c.malformed("", category, fmt.Sprintf("'%s' is a name, but %s has no variables", name, category))
		}
		return &ir.VarNode{Category: category, Label: varRule.Label, Name: b.Expr}, nil
	}
	if category == varCategory {
		return nil, c.malformed("", b.Category, fmt.Sprintf("'%s' is a %s term, used as a name", name, b.Category))
	}
	if b.Category != category {
		return nil, c.malformed("", category, fmt.Sprintf("'%s' is a %s, used as %s", name, b.Category, category))
	}
	if b.Kind == BindBody {
		return &ir.Open{Body: b.Expr, Binder: b.Binder}, nil
	}
	return b.Expr, nil
}

func (c *PatternCompiler) reconstructApply(e *theory.Apply, category string) (ir.Expr, tcerr.TheoryError) {
	rule := c.gen.grammar.MustRule(e.Constructor)
	if rule.Category != category {
		return nil, c.malformed(e.Constructor, category, fmt.Sprintf("constructor '%s' builds %s, expected %s", e.Constructor, rule.Category, category))
	}
	args := rule.Args()
	if len(e.Args) != len(args) {
		return nil, c.malformed(rule.Label, rule.Category, fmt.Sprintf("constructor '%s' takes %d arguments, got %d", rule.Label, len(args), len(e.Args)))
	}
	fields := rule.Fields()
	values := make([]ir.Expr, len(fields))
	binderArgs := map[int]theory.Expr{}
	bodyArgs := map[int]theory.Expr{}

	for i, arg := range e.Args {
		info := args[i]
		f := fields[info.Field]
		var err tcerr.TheoryError
		switch f.Kind {
		case theory.FieldTerm:
			values[f.Index], err = c.Reconstruct(arg, f.Category)
		case theory.FieldVar:
			values[f.Index], err = c.Reconstruct(arg, varCategory)
		case theory.FieldNative:
			values[f.Index], err = c.Reconstruct(arg, f.NativeType)
		case theory.FieldCollection:
			values[f.Index], err = c.reconstructCollection(arg, rule, f)
		case theory.FieldScope:
			if info.Role == theory.ArgBinder {
				binderArgs[f.Index] = arg
			} else {
				bodyArgs[f.Index] = arg
			}
		}
		if err != nil {
			return nil, err
		}
	}
	for _, f := range fields {
		if f.Kind != theory.FieldScope {
			continue
		}
		scope, err := c.reconstructScope(rule, f, binderArgs[f.Index], bodyArgs[f.Index])
		if err != nil {
			return nil, err
		}
		values[f.Index] = scope
	}
	return &ir.Construct{Category: rule.Category, Label: rule.Label, Args: values}, nil
}

func (c *PatternCompiler) reconstructCollection(arg theory.Expr, rule *theory.GrammarRule, f theory.Field) (ir.Expr, tcerr.TheoryError) {
	coll, ok := arg.(*theory.CollectionPattern)
	if !ok {
		return nil, c.malformed(rule.Label, rule.Category, "expected a collection, got "+theory.ExprString(arg))
	}
	if f.Collection == theory.Sequence {
		return nil, c.unsupported(rule.Label, "constructing Vec collections")
	}
	bag := &ir.BagOf{Label: rule.Label, Set: f.Collection == theory.Set}
	if coll.Rest != "" {
		b, ok := c.Bindings.Get(coll.Rest)
		if !ok {
			return nil, c.unbound(coll.Rest)
		}
		rest, ok := b.(*RestBinding)
		if !ok || rest.ElementCategory != f.Category {
			return nil, c.malformed(rule.Label, f.Category, fmt.Sprintf("'%s' is spliced into a %s collection but does not hold one", coll.Rest, f.Category))
		}
		bag.Base = rest.Expr
	}
	for _, elem := range coll.Elements {
		v, err := c.Reconstruct(elem, f.Category)
		if err != nil {
			return nil, err
		}
		bag.Elems = append(bag.Elems, v)
	}
	return bag, nil
}

// reconstructScope rebuilds a scope. A binder and a body read from the same
// scope are put back as they were; anything else closes the body over the binder,
// which is freshly allocated when the left hand side does not bind it.
func (c *PatternCompiler) reconstructScope(rule *theory.GrammarRule, f theory.Field, binderArg, bodyArg theory.Expr) (ir.Expr, tcerr.TheoryError) {
	v, ok := binderArg.(*theory.Var)
	if !ok {
		return nil, c.malformed(rule.Label, rule.Category, "binder must be a variable")
	}
	binder, bound := c.Bindings.Element(v.Name)
	if bound && !binder.IsRef() {
		return nil, c.malformed(rule.Label, rule.Category, fmt.Sprintf("binder '%s' is bound to a %s term", v.Name, binder.Category))
	}
	if bound && binder.Kind == BindBinder {
		if bv, ok := bodyArg.(*theory.Var); ok {
			body, ok := c.Bindings.Element(bv.Name)
			if ok && body.Kind == BindBody && body.Scope == binder.Scope && body.Category == f.Category {
				return &ir.ScopeRaw{Category: f.BinderCategory, Binder: binder.Expr, Body: body.Expr}, nil
			}
		}
	}
	if !bound {
		if _, taken := c.Bindings.Get(v.Name); taken {
			return nil, c.malformed(rule.Label, rule.Category, fmt.Sprintf("binder '%s' holds a collection rest", v.Name))
		}
		fresh := c.scope.Fresh("x")
		c.emit(&ir.Let{Var: fresh, Value: &ir.FreshName{Hint: v.Name}})
		binder = &ElementBinding{Category: f.BinderCategory, Expr: ir.R(fresh), Kind: BindBinder}
		c.Bindings.Set(v.Name, binder)
	}
	body, err := c.Reconstruct(bodyArg, f.Category)
	if err != nil {
		return nil, err
	}
	return &ir.ScopeClose{Category: f.BinderCategory, Binder: binder.Expr, Body: body}, nil
}

// reconstructSubst instantiates a raw body read from the scope binding the
// substituted variable, and substitutes the free reference in any other term
func (c *PatternCompiler) reconstructSubst(e *theory.Subst, category string) (ir.Expr, tcerr.TheoryError) {
	b, ok := c.Bindings.Get(e.Var)
	if !ok {
		return nil, c.unbound(e.Var)
	}
	binder, ok := b.(*ElementBinding)
	if !ok || binder.Kind != BindBinder {
		return nil, c.malformed("", category, fmt.Sprintf("'%s' is substituted but is not bound by a binder", e.Var))
	}
	replacement, err := c.Reconstruct(e.Replacement, binder.Category)
	if err != nil {
		return nil, err
	}
	if v, ok := e.Term.(*theory.Var); ok {
		body, ok := c.Bindings.Element(v.Name)
		if ok && body.Kind == BindBody && body.Scope == binder.Scope && body.Category == category {
			return &ir.Instantiate{Category: binder.Category, Body: body.Expr, Replacement: replacement}, nil
		}
	}
	t, err := c.Reconstruct(e.Term, category)
	if err != nil {
		return nil, err
	}
	return &ir.Substitute{Term: t, Name: binder.Expr, Replacement: replacement}, nil
}
