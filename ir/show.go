package ir

import (
	"fmt"
	"strings"
)

// String renders the program in an Ascent-like notation
func (p *Program) String() string {
	sb := &strings.Builder{}
	sb.WriteString(fmt.Sprintf("// rules for theory %s\n\n", p.Theory))
	for _, r := range p.relations {
		if r.IsEquivalence() {
			sb.WriteString("#[ds(eqrel)]\n")
		}
		sb.WriteString(fmt.Sprintf("relation %s(%s);\n", r.Name, r.Signature()))
	}
	for _, r := range p.Rules {
		sb.WriteString("\n")
		sb.WriteString(r.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

func (r *Rule) String() string {
	sb := &strings.Builder{}
	if r.Origin != "" {
		sb.WriteString("// " + r.Origin + "\n")
	}
	heads := make([]string, len(r.Head))
	for i, h := range r.Head {
		heads[i] = showAtom(h)
	}
	sb.WriteString(strings.Join(heads, ", "))
	if len(r.Body) == 0 {
		sb.WriteString(";")
		return sb.String()
	}
	sb.WriteString(" <--\n")
	for i, c := range r.Body {
		sb.WriteString("    ")
		sb.WriteString(ShowClause(c))
		if i < len(r.Body)-1 {
			sb.WriteString(",\n")
		}
	}
	sb.WriteString(";")
	return sb.String()
}

func showAtom(a *Atom) string {
	return a.Relation + "(" + showExprs(a.Args) + ")"
}

func showExprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = ShowExpr(e)
	}
	return strings.Join(parts, ", ")
}

func ShowClause(c Clause) string {
	switch c := c.(type) {
	case *Atom:
		return showAtom(c)
	case *Destructure:
		fields := make([]string, len(c.Fields))
		for i, f := range c.Fields {
			if f == "" {
				f = "_"
			}
			fields[i] = f
		}
		return fmt.Sprintf("if let %s(%s) = %s", c.Label, strings.Join(fields, ", "), c.Subject)
	case *ScopeParts:
		return fmt.Sprintf("let (%s, %s) = %s.unsafe_parts()", c.Binder, c.Body, c.Scope)
	case *Iterate:
		if c.Occurrence != "" {
			return fmt.Sprintf("for (%s, %s) in %s.occurrences()", c.Elem, c.Occurrence, c.Bag)
		}
		return fmt.Sprintf("for %s in %s.occurrences()", c.Elem, c.Bag)
	case *Guard:
		return "if " + ShowExpr(c.Cond)
	case *Let:
		return fmt.Sprintf("let %s = %s", c.Var, ShowExpr(c.Value))
	default:
		return fmt.Sprintf("<%T>", c)
	}
}

func ShowExpr(e Expr) string {
	switch e := e.(type) {
	case *Ref:
		return e.Name
	case Wildcard:
		return "_"
	case *Construct:
		if len(e.Args) == 0 {
			return e.Category + "::" + e.Label
		}
		return fmt.Sprintf("%s::%s(%s)", e.Category, e.Label, showExprs(e.Args))
	case *VarNode:
		return fmt.Sprintf("%s::%s(%s)", e.Category, e.Label, ShowExpr(e.Name))
	case *BagOf:
		kind := "bag"
		if e.Set {
			kind = "set"
		}
		if e.Base != nil {
			return fmt.Sprintf("insert_%s(%s, [%s])", strings.ToLower(e.Label), ShowExpr(e.Base), showExprs(e.Elems))
		}
		return fmt.Sprintf("%s_%s![%s]", strings.ToLower(e.Label), kind, showExprs(e.Elems))
	case *BagMinus:
		return fmt.Sprintf("%s.without([%s])?", ShowExpr(e.Bag), showExprs(e.Elems))
	case *ScopeRaw:
		return fmt.Sprintf("Scope::from_parts_unsafe(%s, %s)", ShowExpr(e.Binder), ShowExpr(e.Body))
	case *ScopeClose:
		return fmt.Sprintf("Scope::new(%s, %s)", ShowExpr(e.Binder), ShowExpr(e.Body))
	case *Open:
		return fmt.Sprintf("open(%s, %s)", ShowExpr(e.Body), ShowExpr(e.Binder))
	case *Instantiate:
		return fmt.Sprintf("instantiate_%s(%s, %s)", strings.ToLower(e.Category), ShowExpr(e.Body), ShowExpr(e.Replacement))
	case *Substitute:
		return fmt.Sprintf("%s.substitute(%s, %s)", ShowExpr(e.Term), ShowExpr(e.Name), ShowExpr(e.Replacement))
	case *Equal:
		return ShowExpr(e.A) + " == " + ShowExpr(e.B)
	case *NotEqual:
		return ShowExpr(e.A) + " != " + ShowExpr(e.B)
	case *Fresh:
		return fmt.Sprintf("!%s.free_in(%s)", ShowExpr(e.Name), ShowExpr(e.In))
	case *Distinct:
		return fmt.Sprintf("(%s, %s) != (%s, %s)", ShowExpr(e.A), ShowExpr(e.AOccurrence), ShowExpr(e.B), ShowExpr(e.BOccurrence))
	case *FreshName:
		return fmt.Sprintf("fresh(%q)", e.Hint)
	case *IntLit:
		return fmt.Sprint(e.Value)
	case *Arith:
		return fmt.Sprintf("(%s %s %s)?", ShowExpr(e.A), e.Op, ShowExpr(e.B))
	default:
		return fmt.Sprintf("<%T>", e)
	}
}
