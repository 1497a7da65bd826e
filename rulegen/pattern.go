package rulegen

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
)

const varCategory = theory.VarCategory

// PatternCompiler lowers left hand side patterns into rule body clauses and a
// binding table. One compiler is used per generated rule.
type PatternCompiler struct {
	gen   *Generator
	scope *ir.RuleScope
	// origin and at locate the theory rule being compiled, for diagnostics
	origin string
	at     theory.Positioner

	Clauses  []ir.Clause
	Bindings *Bindings
	// Aux are the rules populating the Extractions an indexed join reads
	Aux         []*ir.Rule
	Extractions []*ir.Relation
	// Repeats counts the equivalence joins emitted for repeated variables
	Repeats int
}

func (gen *Generator) newCompiler(scope *ir.RuleScope, origin string, at theory.Positioner) *PatternCompiler {
	return &PatternCompiler{
		gen:      gen,
		scope:    scope,
		origin:   origin,
		at:       at,
		Bindings: NewBindings(),
	}
}

func (c *PatternCompiler) emit(clauses ...ir.Clause) {
	c.Clauses = append(c.Clauses, clauses...)
}

// commit declares the extraction relations of the rule and adds it with its auxiliary rules
func (c *PatternCompiler) commit(rule *ir.Rule) tcerr.TheoryError {
	for _, rel := range c.Extractions {
		if _, err := c.gen.prog.Declare(rel); err != nil {
			return tcerr.New(tcerr.Unclassified{From: err, Positioner: theory.RangeOf(c.at)})
		}
	}
	return c.gen.commit(c.at, append(c.Aux, rule)...)
}

func (c *PatternCompiler) malformed(constructor, category, reason string) tcerr.TheoryError {
	return tcerr.New(tcerr.NewMalformedPattern{
		Positioner:  theory.RangeOf(c.at),
		Rule:        c.origin,
		Constructor: constructor,
		Category:    category,
		Reason:      reason,
	})
}

func (c *PatternCompiler) unsupported(constructor, reason string) tcerr.TheoryError {
	return tcerr.New(tcerr.NewUnsupportedShape{
		Positioner:  theory.RangeOf(c.at),
		Rule:        c.origin,
		Constructor: constructor,
		Reason:      reason,
	})
}

// CompileRoot matches pattern against every known term of category, returning
// the rule variable holding the matched term
func (c *PatternCompiler) CompileRoot(pattern theory.Expr, category string) (string, tcerr.TheoryError) {
	subject := c.scope.Fresh("s")
	c.emit(ir.NewAtom(c.gen.rel(ir.Membership, category), subject))
	return subject, c.Compile(pattern, subject, category)
}

// Compile matches pattern against the value in the rule variable subject,
// of the given category
func (c *PatternCompiler) Compile(pattern theory.Expr, subject, category string) tcerr.TheoryError {
	g := c.gen.grammar
	switch p := pattern.(type) {
	case *theory.Var:
		if r, ok := g.Nullary(category, p.Name); ok {
			c.emit(&ir.Destructure{Subject: subject, Label: r.Label})
			return nil
		}
		return c.bindVar(p.Name, &ElementBinding{Category: category, Expr: ir.R(subject), Kind: BindPlain})

	case *theory.Literal:
		lit, ok := g.LitRule(category)
		if !ok {
			return c.malformed("", category, fmt.Sprintf("literal %d in a category without literals", p.Value))
		}
		v := c.scope.Fresh("n")
		c.emit(
			&ir.Destructure{Subject: subject, Label: lit.Label, Fields: []string{v}},
			&ir.Guard{Cond: &ir.Equal{A: ir.R(v), B: &ir.IntLit{Value: p.Value}}},
		)
		return nil

	case *theory.Apply:
		rule := g.MustRule(p.Constructor)
		if rule.Category != category {
			return c.malformed(p.Constructor, category, fmt.Sprintf("constructor '%s' builds %s, expected %s", p.Constructor, rule.Category, category))
		}
		fields := rule.Fields()
		fieldVars := make([]string, len(fields))
		for i := range fields {
			fieldVars[i] = c.scope.Fresh("f")
		}
		c.emit(&ir.Destructure{Subject: subject, Label: rule.Label, Fields: fieldVars})
		return c.CompileArgs(p, rule, fieldVars, -1)

	case *theory.CollectionPattern:
		return c.malformed(p.Constructor, category, "collection pattern "+theory.ExprString(p)+" outside of a collection field")
	case *theory.Subst:
		return c.malformed("", category, "substitution on the left hand side: "+theory.ExprString(p))
	default:
		return c.malformed("", category, fmt.Sprintf("unexpected pattern %T", p))
	}
}

// CompileArgs matches the arguments of apply against the destructured fields
// of a node, in fieldVars. The argument at position skip, if not negative, is left to the caller.
func (c *PatternCompiler) CompileArgs(apply *theory.Apply, rule *theory.GrammarRule, fieldVars []string, skip int) tcerr.TheoryError {
	args := rule.Args()
	fields := rule.Fields()
	if len(apply.Args) != len(args) {
		return c.malformed(rule.Label, rule.Category, fmt.Sprintf("constructor '%s' takes %d arguments, got %d", rule.Label, len(args), len(apply.Args)))
	}
	type parts struct{ binder, body string }
	scopes := map[int]parts{}
	readScope := func(field int) parts {
		if p, ok := scopes[field]; ok {
			return p
		}
		p := parts{binder: c.scope.Fresh("b"), body: c.scope.Fresh("body")}
		c.emit(&ir.ScopeParts{Scope: fieldVars[field], Binder: p.binder, Body: p.body})
		scopes[field] = p
		return p
	}

	for i, arg := range apply.Args {
		if i == skip {
			continue
		}
		info := args[i]
		f := fields[info.Field]
		fv := fieldVars[f.Index]
		switch f.Kind {
		case theory.FieldTerm:
			if err := c.Compile(arg, fv, f.Category); err != nil {
				return err
			}

		case theory.FieldVar:
			v, ok := arg.(*theory.Var)
			if !ok {
				return c.malformed(rule.Label, rule.Category, fmt.Sprintf("argument %d must be a variable, got %s", i, theory.ExprString(arg)))
			}
			if err := c.bindVar(v.Name, &ElementBinding{Category: varCategory, Expr: ir.R(fv), Kind: BindPlain}); err != nil {
				return err
			}

		case theory.FieldNative:
			switch a := arg.(type) {
			case *theory.Var:
				if err := c.bindVar(a.Name, &ElementBinding{Category: f.NativeType, Expr: ir.R(fv), Kind: BindPlain}); err != nil {
					return err
				}
			case *theory.Literal:
				c.emit(&ir.Guard{Cond: &ir.Equal{A: ir.R(fv), B: &ir.IntLit{Value: a.Value}}})
			default:
				return c.malformed(rule.Label, rule.Category, fmt.Sprintf("argument %d must be a literal or a variable, got %s", i, theory.ExprString(arg)))
			}

		case theory.FieldCollection:
			coll, ok := arg.(*theory.CollectionPattern)
			if !ok {
				return c.malformed(rule.Label, rule.Category, fmt.Sprintf("argument %d must be a collection pattern, got %s", i, theory.ExprString(arg)))
			}
			if err := c.compileCollection(coll, fv, f, rule.Label); err != nil {
				return err
			}

		case theory.FieldScope:
			if len(f.Items) > 2 {
				return c.unsupported(rule.Label, "a binder scoping over more than one item")
			}
			p := readScope(f.Index)
			if info.Role == theory.ArgBinder {
				v, ok := arg.(*theory.Var)
				if !ok {
					return c.malformed(rule.Label, rule.Category, fmt.Sprintf("binder must be a variable, got %s", theory.ExprString(arg)))
				}
				if _, bound := c.Bindings.Get(v.Name); bound {
					return c.malformed(rule.Label, rule.Category, fmt.Sprintf("binder '%s' is bound twice", v.Name))
				}
				c.Bindings.Set(v.Name, &ElementBinding{Category: f.BinderCategory, Expr: ir.R(p.binder), Kind: BindBinder, Scope: fv})
				continue
			}
			if v, ok := arg.(*theory.Var); ok {
				if _, isNullary := c.gen.grammar.Nullary(f.Category, v.Name); !isNullary {
					if err := c.bindVar(v.Name, &ElementBinding{Category: f.Category, Expr: ir.R(p.body), Kind: BindBody, Scope: fv, Binder: ir.R(p.binder)}); err != nil {
						return err
					}
					continue
				}
			}
			// structured bodies are matched with the binder opened to its placeholder
			opened := c.scope.Fresh("open")
			c.emit(&ir.Let{Var: opened, Value: &ir.Open{Body: ir.R(p.body), Binder: ir.R(p.binder)}})
			if err := c.Compile(arg, opened, f.Category); err != nil {
				return err
			}
		}
	}
	return nil
}

// compileCollection iterates the elements of the collection in bagVar, one
// nested iteration per element pattern, never matching one occurrence twice.
// Without a rest capture the collection must hold exactly the matched elements.
func (c *PatternCompiler) compileCollection(coll *theory.CollectionPattern, bagVar string, f theory.Field, label string) tcerr.TheoryError {
	if coll.Constructor != "" && coll.Constructor != label {
		return c.malformed(label, f.Category, fmt.Sprintf("collection pattern of '%s' in a field of '%s'", coll.Constructor, label))
	}
	if f.Collection == theory.Sequence {
		return c.unsupported(label, "patterns over Vec collections")
	}
	var elems, occurrences []ir.Expr
	for _, elem := range coll.Elements {
		switch elem.(type) {
		case *theory.CollectionPattern:
			return c.malformed(label, f.Category, "nested collection pattern "+theory.ExprString(elem))
		case *theory.Apply:
			if !c.gen.opts.NestedLoopCollections {
				return c.malformed(label, f.Category, "constructor pattern "+theory.ExprString(elem)+" directly inside a collection pattern; only variables are allowed here")
			}
		}
		e, o := c.scope.Fresh("e"), c.scope.Fresh("o")
		c.emit(&ir.Iterate{Bag: bagVar, Elem: e, Occurrence: o})
		for j := range elems {
			c.emit(&ir.Guard{Cond: &ir.Distinct{A: ir.R(e), AOccurrence: ir.R(o), B: elems[j], BOccurrence: occurrences[j]}})
		}
		if err := c.Compile(elem, e, f.Category); err != nil {
			return err
		}
		elems = append(elems, ir.R(e))
		occurrences = append(occurrences, ir.R(o))
	}
	c.bindRest(coll.Rest, bagVar, elems, f, label)
	return nil
}

// bindRest binds the collection remaining after removing elems from bagVar to rest.
// Without a rest the remainder must be empty.
func (c *PatternCompiler) bindRest(rest, bagVar string, elems []ir.Expr, f theory.Field, label string) {
	minus := &ir.BagMinus{Bag: ir.R(bagVar), Elems: elems}
	isSet := f.Collection == theory.Set
	if rest == "" {
		c.emit(&ir.Guard{Cond: &ir.Equal{A: minus, B: &ir.BagOf{Label: label, Set: isSet}}})
		return
	}
	r := c.scope.Fresh("rest")
	c.emit(&ir.Let{Var: r, Value: minus})
	if existing, bound := c.Bindings.Get(rest); bound {
		if eb, ok := existing.(*RestBinding); ok {
			c.emit(&ir.Guard{Cond: &ir.Equal{A: eb.Expr, B: ir.R(r)}})
			return
		}
	}
	c.Bindings.Set(rest, &RestBinding{ElementCategory: f.Category, Constructor: label, Set: isSet, Expr: ir.R(r)})
}

// bindVar binds the first occurrence of a variable. Later occurrences of a term
// are joined on the category's equivalence relation, other values are compared.
func (c *PatternCompiler) bindVar(name string, b *ElementBinding) tcerr.TheoryError {
	existing, bound := c.Bindings.Get(name)
	if !bound {
		c.Bindings.Set(name, b)
		return nil
	}
	first, ok := existing.(*ElementBinding)
	if !ok {
		return c.malformed("", b.Category, fmt.Sprintf("'%s' captures a collection rest and an element", name))
	}
	if first.IsRef() && b.IsRef() {
		c.emit(&ir.Guard{Cond: &ir.Equal{A: first.Expr, B: b.Expr}})
		return nil
	}
	if first.Category != b.Category {
		return c.malformed("", b.Category, fmt.Sprintf("'%s' is used as %s and as %s", name, first.Category, b.Category))
	}
	if !c.gen.grammar.IsCategory(b.Category) {
		c.emit(&ir.Guard{Cond: &ir.Equal{A: first.Expr, B: b.Expr}})
		return nil
	}
	c.Repeats++
	c.emit(&ir.Atom{Relation: c.gen.rel(ir.Equivalence, b.Category), Args: []ir.Expr{first.Expr, b.Expr}})
	return nil
}
