package rulegen

import (
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
)

// categoryRules seeds the equivalence of cat on its known terms, and closes
// rewrites under equivalence and reachability
func (gen *Generator) categoryRules(cat string) tcerr.TheoryError {
	mem := gen.rel(ir.Membership, cat)
	eq := gen.rel(ir.Equivalence, cat)
	rw := gen.rel(ir.Rewrite, cat)
	path := gen.rel(ir.Path, cat)
	return gen.commit(gen.def,
		&ir.Rule{
			Origin: "reflexivity of " + eq,
			Head:   []*ir.Atom{ir.NewAtom(eq, "t", "t")},
			Body:   []ir.Clause{ir.NewAtom(mem, "t")},
		},
		&ir.Rule{
			Origin: "targets of " + rw,
			Head:   []*ir.Atom{ir.NewAtom(mem, "t")},
			Body:   []ir.Clause{ir.NewAtom(rw, "_", "t")},
		},
		&ir.Rule{
			Origin: rw + " modulo " + eq,
			Head:   []*ir.Atom{ir.NewAtom(rw, "a", "c")},
			Body:   []ir.Clause{ir.NewAtom(rw, "b", "c"), ir.NewAtom(eq, "a", "b")},
		},
		&ir.Rule{
			Origin: "reflexivity of " + path,
			Head:   []*ir.Atom{ir.NewAtom(path, "t", "t")},
			Body:   []ir.Clause{ir.NewAtom(mem, "t")},
		},
		&ir.Rule{
			Origin: "transitivity of " + path,
			Head:   []*ir.Atom{ir.NewAtom(path, "a", "c")},
			Body:   []ir.Clause{ir.NewAtom(rw, "a", "b"), ir.NewAtom(path, "b", "c")},
		},
	)
}

// constructorRules makes the parts of known terms built by r known: sub-terms
// directly, collection elements through the contains relation and scope bodies
// through the binding projection. It also closes equivalence under r.
func (gen *Generator) constructorRules(r *theory.GrammarRule) tcerr.TheoryError {
	var rules []*ir.Rule
	mem := gen.rel(ir.Membership, r.Category)
	fields := r.Fields()
	destructure := func(subject string, field int, name string) *ir.Destructure {
		vars := make([]string, len(fields))
		vars[field] = name
		return &ir.Destructure{Subject: subject, Label: r.Label, Fields: vars}
	}

	for _, f := range fields {
		switch f.Kind {
		case theory.FieldTerm:
			rules = append(rules, &ir.Rule{
				Origin: "subterms of " + r.Label,
				Head:   []*ir.Atom{ir.NewAtom(gen.rel(ir.Membership, f.Category), "f")},
				Body:   []ir.Clause{ir.NewAtom(mem, "t"), destructure("t", f.Index, "f")},
			})

		case theory.FieldCollection:
			if !gen.grammar.IsCategory(f.Category) {
				continue
			}
			contains := gen.declare(ir.NameKey{Kind: ir.Contains, Subject: r.Label},
				ir.Column{Name: "parent", Category: r.Category},
				ir.Column{Name: "elem", Category: f.Category})
			rules = append(rules,
				&ir.Rule{
					Origin: "elements of " + r.Label,
					Head:   []*ir.Atom{ir.NewAtom(contains, "s", "e")},
					Body: []ir.Clause{
						ir.NewAtom(mem, "s"),
						destructure("s", f.Index, "bag"),
						&ir.Iterate{Bag: "bag", Elem: "e", Occurrence: "o"},
					},
				},
				&ir.Rule{
					Origin: "observed elements of " + r.Label,
					Head:   []*ir.Atom{ir.NewAtom(gen.rel(ir.Membership, f.Category), "e")},
					Body:   []ir.Clause{ir.NewAtom(contains, "_", "e")},
				})

		case theory.FieldScope:
			if f.Category == "" || !gen.grammar.IsCategory(f.Category) {
				continue
			}
			if len(f.Items) > 2 {
				return tcerr.New(tcerr.NewUnsupportedShape{
					Positioner:  r.Range,
					Rule:        r.String(),
					Constructor: r.Label,
					Reason:      "a binder scoping over more than one item",
				})
			}
			proj := gen.declare(ir.NameKey{Kind: ir.BindingProjection, Subject: r.Label},
				ir.Column{Name: "parent", Category: r.Category},
				ir.Column{Name: "binder", Category: varCategory},
				ir.Column{Name: "body", Category: f.Category})
			rules = append(rules, &ir.Rule{
				Origin: "scope bodies of " + r.Label,
				Head: []*ir.Atom{
					ir.NewAtom(proj, "s", "b", "body"),
					ir.NewAtom(gen.rel(ir.Membership, f.Category), "body"),
				},
				Body: []ir.Clause{
					ir.NewAtom(mem, "s"),
					destructure("s", f.Index, "scope"),
					&ir.ScopeParts{Scope: "scope", Binder: "b", Body: "body"},
				},
			})
		}
	}

	if !gen.opts.SkipEquivalenceCongruence {
		if rule := gen.eqCongruence(r, fields); rule != nil {
			rules = append(rules, rule)
		}
	}
	return gen.commit(r, rules...)
}

// eqCongruence relates two terms built by r from pairwise equivalent fields.
// It applies to constructors with at least one sub-term field and only sub-term,
// reference and native fields.
func (gen *Generator) eqCongruence(r *theory.GrammarRule, fields []theory.Field) *ir.Rule {
	hasTerm := false
	for _, f := range fields {
		switch f.Kind {
		case theory.FieldTerm:
			hasTerm = true
		case theory.FieldVar, theory.FieldNative:
		default:
			return nil
		}
	}
	if !hasTerm {
		return nil
	}
	scope := ir.NewRuleScope()
	left := make([]string, len(fields))
	right := make([]ir.Expr, len(fields))
	var joins []ir.Clause
	for i, f := range fields {
		left[i] = scope.Fresh("a")
		if f.Kind != theory.FieldTerm {
			right[i] = ir.R(left[i])
			continue
		}
		b := scope.Fresh("b")
		right[i] = ir.R(b)
		joins = append(joins, ir.NewAtom(gen.rel(ir.Equivalence, f.Category), left[i], b))
	}
	mem := gen.rel(ir.Membership, r.Category)
	body := []ir.Clause{
		ir.NewAtom(mem, "s"),
		&ir.Destructure{Subject: "s", Label: r.Label, Fields: left},
	}
	body = append(body, joins...)
	body = append(body,
		&ir.Let{Var: "t", Value: &ir.Construct{Category: r.Category, Label: r.Label, Args: right}},
		ir.NewAtom(mem, "t"),
	)
	return &ir.Rule{
		Origin: "congruence of " + gen.rel(ir.Equivalence, r.Category) + " under " + r.Label,
		Head:   []*ir.Atom{ir.NewAtom(gen.rel(ir.Equivalence, r.Category), "s", "t")},
		Body:   body,
	}
}
