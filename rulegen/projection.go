package rulegen

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/analysis"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
	"github.com/samber/lo"
)

// extraction is the relation holding the matches of one structured element
// pattern: the parent, the element's captures and the element itself
type extraction struct {
	relation *ir.Relation
	// captures are the variables of the element, join keys first
	captures []string
	bindings *Bindings
}

// compileProjection matches the root collection pattern of spec with one
// extraction relation per structured element, joined on the parent and on the
// variables elements share. Bare variable elements are read from the contains
// relation, and removing every matched element from the collection checks that
// no occurrence was matched twice.
func (c *PatternCompiler) compileProjection(spec *analysis.ProjectionSpec, key ir.NameKey) (string, tcerr.TheoryError) {
	g := c.gen.grammar
	if f := g.MustRule(spec.Constructor).Fields()[spec.Field]; f.Collection == theory.Sequence {
		return "", c.unsupported(spec.Constructor, "patterns over Vec collections")
	}
	contains := c.gen.rel(ir.Contains, spec.Constructor)
	c.gen.Debug("compiling collection pattern as a join",
		"rule", c.origin,
		"indexed", analysis.RequiresIndexedProjection(g, spec.Parent),
		"shared", spec.SharedVariables)

	extractions := make([]*extraction, len(spec.Elements))
	for k, elem := range spec.Elements {
		key.Pattern = k
		ext, err := c.extract(spec, elem, contains, key)
		if err != nil {
			return "", err
		}
		extractions[k] = ext
	}

	s := c.scope.Fresh("s")
	elemVars := make(map[int]ir.Expr, len(spec.Collection.Elements))
	for k, ext := range extractions {
		// population rule variables to join rule variables
		renamed := map[string]string{}
		vars := make([]string, len(ext.captures))
		for i, name := range ext.captures {
			vars[i] = c.scope.Fresh("k")
			b, _ := ext.bindings.Get(name)
			if ref, ok := bindingValue(b).(*ir.Ref); ok {
				renamed[ref.Name] = vars[i]
			}
		}
		args := []ir.Expr{ir.R(s)}
		var joins []ir.Clause
		for i, name := range ext.captures {
			b, _ := ext.bindings.Get(name)
			v := vars[i]
			args = append(args, ir.R(v))
			existing, bound := c.Bindings.Get(name)
			if !bound {
				c.Bindings.Set(name, rebind(b, v, fmt.Sprintf("e%d.", k), renamed))
				continue
			}
			eb, isElement := existing.(*ElementBinding)
			nb, newIsElement := b.(*ElementBinding)
			switch {
			case isElement && newIsElement && !eb.IsRef() && g.IsCategory(eb.Category) && eb.Category == nb.Category:
				c.Repeats++
				joins = append(joins, &ir.Atom{Relation: c.gen.rel(ir.Equivalence, eb.Category), Args: []ir.Expr{eb.Expr, ir.R(v)}})
			default:
				joins = append(joins, &ir.Guard{Cond: &ir.Equal{A: bindingValue(existing), B: ir.R(v)}})
			}
		}
		e := c.scope.Fresh("e")
		args = append(args, ir.R(e))
		elemVars[spec.Elements[k].Position] = ir.R(e)
		c.emit(&ir.Atom{Relation: ext.relation.Name, Args: args})
		c.emit(joins...)
	}

	for _, pos := range spec.BareElements {
		b := c.scope.Fresh("e")
		c.emit(&ir.Atom{Relation: contains, Args: []ir.Expr{ir.R(s), ir.R(b)}})
		if err := c.Compile(spec.Collection.Elements[pos], b, spec.ElementCategory); err != nil {
			return "", err
		}
		elemVars[pos] = ir.R(b)
	}

	rule := g.MustRule(spec.Constructor)
	fields := rule.Fields()
	fieldVars := make([]string, len(fields))
	for i := range fields {
		fieldVars[i] = c.scope.Fresh("f")
	}
	c.emit(&ir.Destructure{Subject: s, Label: rule.Label, Fields: fieldVars})
	if err := c.CompileArgs(spec.Parent, rule, fieldVars, spec.Arg); err != nil {
		return "", err
	}
	elems := make([]ir.Expr, 0, len(elemVars))
	for pos := range spec.Collection.Elements {
		elems = append(elems, elemVars[pos])
	}
	c.bindRest(spec.Rest, fieldVars[spec.Field], elems, fields[spec.Field], rule.Label)
	return s, nil
}

// extract builds the relation and population rule of one structured element
func (c *PatternCompiler) extract(spec *analysis.ProjectionSpec, elem analysis.ElementPattern, contains string, key ir.NameKey) (*extraction, tcerr.TheoryError) {
	sub := c.gen.newCompiler(ir.NewRuleScope(), c.origin, c.at)
	s, e := sub.scope.Fresh("s"), sub.scope.Fresh("e")
	sub.emit(ir.NewAtom(contains, s, e))
	if err := sub.Compile(elem.Pattern, e, elem.Category); err != nil {
		return nil, err
	}
	keys := lo.Map(elem.JoinKeys, func(c analysis.CaptureInfo, _ int) string { return c.Name })
	captures := append(keys, lo.Without(sub.Bindings.Names(), keys...)...)

	cols := []ir.Column{{Name: "parent", Category: spec.Category}}
	head := []ir.Expr{ir.R(s)}
	for _, name := range captures {
		b, ok := sub.Bindings.Get(name)
		if !ok {
			return nil, sub.unbound(name)
		}
		cols = append(cols, ir.Column{Name: name, Category: bindingCategory(b)})
		head = append(head, bindingValue(b))
	}
	cols = append(cols, ir.Column{Name: "elem", Category: elem.Category})
	head = append(head, ir.R(e))

	rel := &ir.Relation{Name: c.gen.name(key), Kind: ir.Extraction, Columns: cols}
	c.Extractions = append(c.Extractions, rel)
	c.Aux = append(c.Aux, &ir.Rule{
		Origin: fmt.Sprintf("element %d of %s", elem.Position, c.origin),
		Head:   []*ir.Atom{{Relation: rel.Name, Args: head}},
		Body:   sub.Clauses,
	})
	c.Repeats += sub.Repeats
	return &extraction{relation: rel, captures: captures, bindings: sub.Bindings}, nil
}

// bindingValue is the stored value of a binding: raw for scope bodies
func bindingValue(b Binding) ir.Expr {
	switch b := b.(type) {
	case *ElementBinding:
		return b.Expr
	case *RestBinding:
		return b.Expr
	}
	return nil
}

func bindingCategory(b Binding) string {
	switch b := b.(type) {
	case *ElementBinding:
		return columnCategory(b)
	case *RestBinding:
		return "{" + b.ElementCategory + "}"
	}
	return ""
}

// rebind moves a binding of an element's population rule into the join rule,
// where its value is in v. Scopes are renamed apart per element, and the
// binders of bodies are looked up in renamed.
func rebind(b Binding, v string, scopePrefix string, renamed map[string]string) Binding {
	switch b := b.(type) {
	case *RestBinding:
		nb := *b
		nb.Expr = ir.R(v)
		return &nb
	case *ElementBinding:
		nb := *b
		nb.Expr = ir.R(v)
		if nb.Scope != "" {
			nb.Scope = scopePrefix + nb.Scope
		}
		if ref, ok := nb.Binder.(*ir.Ref); ok {
			nb.Binder = ir.R(renamed[ref.Name])
		}
		return &nb
	}
	return b
}
