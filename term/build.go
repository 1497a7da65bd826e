package term

import (
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/pkg/errors"
)

// FromExpr builds the ground term denoted by e in category.
// Bare identifiers are nullary constructors when the grammar has one by that
// name, and free names otherwise.
func FromExpr(g *theory.Grammar, category string, e theory.Expr) (Value, error) {
	v, err := fromExpr(g, category, e)
	if err != nil {
		return nil, err
	}
	return Normalize(v), nil
}

func fromExpr(g *theory.Grammar, category string, e theory.Expr) (Value, error) {
	switch e := e.(type) {
	case *theory.Var:
		if _, ok := g.Nullary(category, e.Name); ok {
			return NewNode(category, e.Name), nil
		}
		varRule, ok := g.VarRule(category)
		if !ok {
			return nil, errors.Errorf("category %s has no variables, cannot use free name '%s'", category, e.Name)
		}
		return NewNode(category, varRule.Label, FreeRef(Name{Text: e.Name})), nil

	case *theory.Literal:
		lit, ok := g.LitRule(category)
		if !ok {
			return nil, errors.Errorf("category %s is not native, cannot hold literal %d", category, e.Value)
		}
		return NewNode(category, lit.Label, Int(e.Value)), nil

	case *theory.CollectionPattern:
		label := e.Constructor
		if label == "" {
			for _, r := range g.RulesOf(category) {
				if fields := r.Fields(); len(fields) == 1 && fields[0].Kind == theory.FieldCollection {
					label = r.Label
					break
				}
			}
		}
		if label == "" {
			return nil, errors.Errorf("category %s has no collection constructor for %s", category, theory.ExprString(e))
		}
		return fromExpr(g, category, &theory.Apply{Range: e.Range, Constructor: label, Args: []theory.Expr{e}})

	case *theory.Apply:
		rule, ok := g.Rule(e.Constructor)
		if !ok {
			return nil, errors.Errorf("unknown constructor '%s'", e.Constructor)
		}
		if rule.Category != category {
			return nil, errors.Errorf("constructor '%s' builds %s, expected %s", e.Constructor, rule.Category, category)
		}
		if len(e.Args) != rule.Arity() {
			return nil, errors.Errorf("constructor '%s' takes %d arguments, got %d", e.Constructor, rule.Arity(), len(e.Args))
		}
		return fromApply(g, rule, e)

	case *theory.Subst:
		return nil, errors.Errorf("substitution is not a ground term: %s", theory.ExprString(e))
	default:
		return nil, errors.Errorf("unexpected expression %T", e)
	}
}

func fromApply(g *theory.Grammar, rule *theory.GrammarRule, e *theory.Apply) (Value, error) {
	fields := rule.Fields()
	values := make([]Value, len(fields))
	binders := map[int]Name{}
	bodies := map[int]theory.Expr{}

	for _, arg := range rule.Args() {
		f := fields[arg.Field]
		expr := e.Args[arg.Arg]
		switch {
		case f.Kind == theory.FieldScope && arg.Role == theory.ArgBinder:
			v, ok := expr.(*theory.Var)
			if !ok {
				return nil, errors.Errorf("binder of '%s' must be a name, got %s", rule.Label, theory.ExprString(expr))
			}
			binders[f.Index] = Name{Text: v.Name}
		case f.Kind == theory.FieldScope:
			bodies[f.Index] = expr
		case f.Kind == theory.FieldVar:
			v, ok := expr.(*theory.Var)
			if !ok {
				return nil, errors.Errorf("field %d of '%s' must be a name, got %s", f.Index, rule.Label, theory.ExprString(expr))
			}
			values[f.Index] = FreeRef(Name{Text: v.Name})
		case f.Kind == theory.FieldNative:
			lit, ok := expr.(*theory.Literal)
			if !ok {
				return nil, errors.Errorf("field %d of '%s' must be a literal, got %s", f.Index, rule.Label, theory.ExprString(expr))
			}
			values[f.Index] = Int(lit.Value)
		case f.Kind == theory.FieldCollection:
			coll, ok := expr.(*theory.CollectionPattern)
			if !ok {
				return nil, errors.Errorf("field %d of '%s' must be a collection, got %s", f.Index, rule.Label, theory.ExprString(expr))
			}
			v, err := fromCollection(g, rule.Label, f, coll)
			if err != nil {
				return nil, err
			}
			values[f.Index] = v
		default:
			v, err := fromExpr(g, f.Category, expr)
			if err != nil {
				return nil, err
			}
			values[f.Index] = v
		}
	}
	for _, f := range fields {
		if f.Kind != theory.FieldScope {
			continue
		}
		body, err := fromExpr(g, f.Category, bodies[f.Index])
		if err != nil {
			return nil, err
		}
		values[f.Index] = NewScope(binders[f.Index], f.BinderCategory, body)
	}
	return NewNode(rule.Category, rule.Label, values...), nil
}

func fromCollection(g *theory.Grammar, label string, f theory.Field, coll *theory.CollectionPattern) (Value, error) {
	elems := make([]Value, 0, len(coll.Elements))
	for _, elem := range coll.Elements {
		v, err := fromExpr(g, f.Category, elem)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	switch f.Collection {
	case theory.Sequence:
		return NewSeq(elems...), nil
	case theory.Set:
		return NewSet(elems...), nil
	default:
		b := NewBag()
		for _, v := range elems {
			b = InsertFlat(b, label, v)
		}
		return b, nil
	}
}
