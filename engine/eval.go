package engine

import (
	"fmt"
	"go/token"
	"maps"

	"github.com/cottand/theoryc/ir"
	"github.com/cottand/theoryc/term"
	"github.com/pkg/errors"
)

// errUndefined is returned by expressions that have no value for some bindings,
// like removing a missing element or dividing by zero. The bindings are dropped.
var errUndefined = errors.New("undefined")

type env map[string]term.Value

func (e env) with(name string, v term.Value) env {
	res := maps.Clone(e)
	res[name] = v
	return res
}

// bind extends e with name = v, or checks v against the value name already has
func (e env) bind(name string, v term.Value) (env, bool) {
	if old, ok := e[name]; ok {
		return e, old.Key() == v.Key()
	}
	return e.with(name, v), true
}

// evalRule derives the heads of rule for every solution of its body. The atom
// at position deltaAt reads only the facts new in the previous round.
func (en *Engine) evalRule(rule *ir.Rule, deltaAt int) error {
	return en.solve(rule, 0, deltaAt, env{}, func(e env) error {
		for _, h := range rule.Head {
			values := make([]term.Value, len(h.Args))
			for i, arg := range h.Args {
				v, err := en.eval(arg, e)
				if errors.Is(err, errUndefined) {
					return nil
				}
				if err != nil {
					return errors.Wrapf(err, "head of %s", rule.Origin)
				}
				values[i] = v
			}
			if en.rels[h.Relation].insert(values) {
				en.derived++
			}
		}
		return nil
	})
}

func (en *Engine) solve(rule *ir.Rule, i, deltaAt int, e env, yield func(env) error) error {
	if i == len(rule.Body) {
		return yield(e)
	}
	next := func(e env) error { return en.solve(rule, i+1, deltaAt, e, yield) }
	switch c := rule.Body[i].(type) {
	case *ir.Atom:
		return en.matchAtom(c, i == deltaAt, e, next)

	case *ir.Destructure:
		n, ok := e[c.Subject].(*term.Node)
		if !ok || n.Label != c.Label || len(n.Fields) != len(c.Fields) {
			return nil
		}
		for j, name := range c.Fields {
			if name == "" {
				continue
			}
			if e, ok = e.bind(name, n.Fields[j]); !ok {
				return nil
			}
		}
		return next(e)

	case *ir.ScopeParts:
		s, ok := e[c.Scope].(*term.Scope)
		if !ok {
			return nil
		}
		binder, body := s.RawParts()
		if e, ok = e.bind(c.Binder, term.FreeRef(binder)); !ok {
			return nil
		}
		if e, ok = e.bind(c.Body, body); !ok {
			return nil
		}
		return next(e)

	case *ir.Iterate:
		switch coll := e[c.Bag].(type) {
		case *term.Bag:
			for v, occurrence := range coll.All() {
				if err := en.iterateOne(c, e, v, occurrence, next); err != nil {
					return err
				}
			}
		case *term.Seq:
			for j, v := range coll.Items {
				if err := en.iterateOne(c, e, v, j, next); err != nil {
					return err
				}
			}
		}
		return nil

	case *ir.Guard:
		ok, err := en.test(c.Cond, e)
		if errors.Is(err, errUndefined) || (err == nil && !ok) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "clause %d of %s", i, rule.Origin)
		}
		return next(e)

	case *ir.Let:
		v, err := en.eval(c.Value, e)
		if errors.Is(err, errUndefined) {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "clause %d of %s", i, rule.Origin)
		}
		e, ok := e.bind(c.Var, v)
		if !ok {
			return nil
		}
		return next(e)
	}
	return fmt.Errorf("unexpected clause %T in %s", rule.Body[i], rule.Origin)
}

func (en *Engine) iterateOne(c *ir.Iterate, e env, v term.Value, occurrence int, next func(env) error) error {
	e, ok := e.bind(c.Elem, v)
	if !ok {
		return nil
	}
	if c.Occurrence != "" {
		if e, ok = e.bind(c.Occurrence, term.Int(occurrence)); !ok {
			return nil
		}
	}
	return next(e)
}

// matchAtom joins the bindings with the facts of an atom's relation
func (en *Engine) matchAtom(a *ir.Atom, deltaOnly bool, e env, next func(env) error) error {
	rel := en.rels[a.Relation]
	bound := make([]term.Value, len(a.Args))
	for i, arg := range a.Args {
		switch arg := arg.(type) {
		case ir.Wildcard:
			continue
		case *ir.Ref:
			bound[i] = e[arg.Name]
		default:
			v, err := en.eval(arg, e)
			if errors.Is(err, errUndefined) {
				return nil
			}
			if err != nil {
				return err
			}
			bound[i] = v
		}
	}
	candidates := rel.delta
	if !deltaOnly {
		candidates = rel.lookup(bound)
	}
	for _, f := range candidates {
		matched := e
		ok := true
		for i, arg := range a.Args {
			if _, wildcard := arg.(ir.Wildcard); wildcard {
				continue
			}
			if bound[i] != nil {
				ok = bound[i].Key() == f.values[i].Key()
			} else {
				matched, ok = matched.bind(arg.(*ir.Ref).Name, f.values[i])
			}
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		if err := next(matched); err != nil {
			return err
		}
	}
	return nil
}

func (en *Engine) test(cond ir.Expr, e env) (bool, error) {
	switch c := cond.(type) {
	case *ir.Equal:
		a, b, err := en.evalPair(c.A, c.B, e)
		return err == nil && term.Equal(a, b), err
	case *ir.NotEqual:
		a, b, err := en.evalPair(c.A, c.B, e)
		return err == nil && !term.Equal(a, b), err
	case *ir.Fresh:
		name, err := en.evalName(c.Name, e)
		if err != nil {
			return false, err
		}
		in, err := en.eval(c.In, e)
		if err != nil {
			return false, err
		}
		return !term.FreeIn(name, in), nil
	case *ir.Distinct:
		a, b, err := en.evalPair(c.A, c.B, e)
		if err != nil {
			return false, err
		}
		ao, bo, err := en.evalPair(c.AOccurrence, c.BOccurrence, e)
		if err != nil {
			return false, err
		}
		return !term.Equal(a, b) || !term.Equal(ao, bo), nil
	}
	return false, fmt.Errorf("%T is not a condition", cond)
}

func (en *Engine) evalPair(a, b ir.Expr, e env) (term.Value, term.Value, error) {
	va, err := en.eval(a, e)
	if err != nil {
		return nil, nil, err
	}
	vb, err := en.eval(b, e)
	return va, vb, err
}

// evalName evaluates to a free name, given as a reference or as a variable node
func (en *Engine) evalName(x ir.Expr, e env) (term.Name, error) {
	v, err := en.eval(x, e)
	if err != nil {
		return term.Name{}, err
	}
	switch v := v.(type) {
	case term.Ref:
		if !v.IsBound() {
			return v.Name, nil
		}
	case *term.Node:
		if r, ok := v.VarRef(); ok && !r.IsBound() {
			return r.Name, nil
		}
	}
	return term.Name{}, errors.Wrapf(errUndefined, "%s is not a free name", v)
}

func (en *Engine) eval(x ir.Expr, e env) (term.Value, error) {
	switch x := x.(type) {
	case *ir.Ref:
		v, ok := e[x.Name]
		if !ok {
			return nil, fmt.Errorf("variable %s is not bound", x.Name)
		}
		return v, nil

	case *ir.IntLit:
		return term.Int(x.Value), nil

	case *ir.Construct:
		fields := make([]term.Value, len(x.Args))
		for i, arg := range x.Args {
			v, err := en.eval(arg, e)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}
		return term.NewNode(x.Category, x.Label, fields...), nil

	case *ir.VarNode:
		name, err := en.evalName(x.Name, e)
		if err != nil {
			return nil, err
		}
		return term.NewNode(x.Category, x.Label, term.FreeRef(name)), nil

	case *ir.BagOf:
		bag := term.NewBag()
		if x.Set {
			bag = term.NewSet()
		}
		if x.Base != nil {
			base, err := en.eval(x.Base, e)
			if err != nil {
				return nil, err
			}
			b, ok := base.(*term.Bag)
			if !ok {
				return nil, fmt.Errorf("%s is not a collection", base)
			}
			for v := range b.All() {
				bag = term.InsertFlat(bag, x.Label, v)
			}
		}
		for _, elem := range x.Elems {
			v, err := en.eval(elem, e)
			if err != nil {
				return nil, err
			}
			bag = term.InsertFlat(bag, x.Label, v)
		}
		return bag, nil

	case *ir.BagMinus:
		v, err := en.eval(x.Bag, e)
		if err != nil {
			return nil, err
		}
		bag, ok := v.(*term.Bag)
		if !ok {
			return nil, fmt.Errorf("%s is not a collection", v)
		}
		elems := make([]term.Value, len(x.Elems))
		for i, elem := range x.Elems {
			if elems[i], err = en.eval(elem, e); err != nil {
				return nil, err
			}
		}
		rest, ok := bag.Without(elems...)
		if !ok {
			return nil, errUndefined
		}
		return rest, nil

	case *ir.ScopeRaw, *ir.ScopeClose:
		var category string
		var binderExpr, bodyExpr ir.Expr
		if raw, ok := x.(*ir.ScopeRaw); ok {
			category, binderExpr, bodyExpr = raw.Category, raw.Binder, raw.Body
		} else {
			closing := x.(*ir.ScopeClose)
			category, binderExpr, bodyExpr = closing.Category, closing.Binder, closing.Body
		}
		name, err := en.evalName(binderExpr, e)
		if err != nil {
			return nil, err
		}
		body, err := en.eval(bodyExpr, e)
		if err != nil {
			return nil, err
		}
		if _, ok := x.(*ir.ScopeRaw); ok {
			return term.ScopeFromRawParts(name, category, body), nil
		}
		return term.NewScope(name, category, body), nil

	case *ir.Open:
		body, err := en.eval(x.Body, e)
		if err != nil {
			return nil, err
		}
		name, err := en.evalName(x.Binder, e)
		if err != nil {
			return nil, err
		}
		return term.OpenWithName(body, name), nil

	case *ir.Instantiate:
		body, replacement, err := en.evalPair(x.Body, x.Replacement, e)
		if err != nil {
			return nil, err
		}
		return term.Instantiate(body, x.Category, replacement), nil

	case *ir.Substitute:
		t, replacement, err := en.evalPair(x.Term, x.Replacement, e)
		if err != nil {
			return nil, err
		}
		name, err := en.evalName(x.Name, e)
		if err != nil {
			return nil, err
		}
		return term.Substitute(t, name, replacement), nil

	case *ir.FreshName:
		return term.FreeRef(term.Fresh(x.Hint)), nil

	case *ir.Arith:
		a, b, err := en.evalPair(x.A, x.B, e)
		if err != nil {
			return nil, err
		}
		ia, okA := a.(term.Int)
		ib, okB := b.(term.Int)
		if !okA || !okB {
			return nil, fmt.Errorf("%s %s %s: operands are not integers", a, x.Op, b)
		}
		switch x.Op {
		case token.ADD:
			return ia + ib, nil
		case token.SUB:
			return ia - ib, nil
		case token.MUL:
			return ia * ib, nil
		case token.QUO:
			if ib == 0 {
				return nil, errUndefined
			}
			return ia / ib, nil
		}
		return nil, fmt.Errorf("unsupported operator %s", x.Op)
	}
	return nil, fmt.Errorf("cannot evaluate %T", x)
}
