package ir

import "fmt"

// Check verifies that every variable a clause or the head reads is bound by
// an earlier clause, and that atoms match the arity of declared relations
func (r *Rule) Check(p *Program) error {
	bound := map[string]bool{}
	need := func(where string, e Expr) error {
		for _, v := range ExprVars(e) {
			if !bound[v] {
				return fmt.Errorf("%s reads unbound variable %s", where, v)
			}
		}
		return nil
	}
	atomArity := func(a *Atom) error {
		if p == nil {
			return nil
		}
		rel, ok := p.Relation(a.Relation)
		if !ok {
			return fmt.Errorf("relation %s is not declared", a.Relation)
		}
		if rel.Arity() != len(a.Args) {
			return fmt.Errorf("relation %s has %d columns, used with %d", a.Relation, rel.Arity(), len(a.Args))
		}
		return nil
	}
	for i, c := range r.Body {
		where := fmt.Sprintf("clause %d of %s", i, r.Origin)
		switch c := c.(type) {
		case *Atom:
			if err := atomArity(c); err != nil {
				return err
			}
			for _, arg := range c.Args {
				if ref, ok := arg.(*Ref); ok {
					bound[ref.Name] = true
					continue
				}
				if err := need(where, arg); err != nil {
					return err
				}
			}
		case *Destructure:
			if !bound[c.Subject] {
				return fmt.Errorf("%s destructures unbound variable %s", where, c.Subject)
			}
			for _, f := range c.Fields {
				if f != "" {
					bound[f] = true
				}
			}
		case *ScopeParts:
			if !bound[c.Scope] {
				return fmt.Errorf("%s reads unbound scope %s", where, c.Scope)
			}
			bound[c.Binder] = true
			bound[c.Body] = true
		case *Iterate:
			if !bound[c.Bag] {
				return fmt.Errorf("%s iterates unbound variable %s", where, c.Bag)
			}
			bound[c.Elem] = true
			if c.Occurrence != "" {
				bound[c.Occurrence] = true
			}
		case *Guard:
			if err := need(where, c.Cond); err != nil {
				return err
			}
		case *Let:
			if err := need(where, c.Value); err != nil {
				return err
			}
			bound[c.Var] = true
		}
	}
	for _, h := range r.Head {
		if err := atomArity(h); err != nil {
			return err
		}
		for _, arg := range h.Args {
			if _, ok := arg.(Wildcard); ok {
				return fmt.Errorf("head of %s has a wildcard", r.Origin)
			}
			if err := need("head of "+r.Origin, arg); err != nil {
				return err
			}
		}
	}
	return nil
}
