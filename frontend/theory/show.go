package theory

import (
	"fmt"
	"strings"
)

// ExprString renders an expression in the notation it is written in
func ExprString(expr Expr) string {
	sb := &strings.Builder{}
	showExpr(sb, expr)
	return sb.String()
}

func showExpr(sb *strings.Builder, expr Expr) {
	switch expr := expr.(type) {
	case nil:
		sb.WriteString("nil")
	case *Var:
		sb.WriteString(expr.Name)
	case *Literal:
		sb.WriteString(fmt.Sprint(expr.Value))
	case *Apply:
		sb.WriteString("(")
		sb.WriteString(expr.Constructor)
		for _, arg := range expr.Args {
			sb.WriteString(" ")
			showExpr(sb, arg)
		}
		sb.WriteString(")")
	case *Subst:
		sb.WriteString("(subst ")
		showExpr(sb, expr.Term)
		sb.WriteString(" " + expr.Var + " ")
		showExpr(sb, expr.Replacement)
		sb.WriteString(")")
	case *CollectionPattern:
		if expr.Constructor != "" {
			sb.WriteString(expr.Constructor)
		}
		sb.WriteString("{")
		for i, elem := range expr.Elements {
			if i > 0 {
				sb.WriteString(", ")
			}
			showExpr(sb, elem)
		}
		if expr.Rest != "" {
			if len(expr.Elements) > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("..." + expr.Rest)
		}
		sb.WriteString("}")
	default:
		sb.WriteString(fmt.Sprintf("<%T>", expr))
	}
}

// RuleString renders a rewrite rule, for diagnostics
func RuleString(r *RewriteRule) string {
	sb := &strings.Builder{}
	if r.Premise != nil {
		sb.WriteString(fmt.Sprintf("if %s => %s then ", r.Premise.Source, r.Premise.Target))
	}
	showExpr(sb, r.Left)
	sb.WriteString(" => ")
	showExpr(sb, r.Right)
	return sb.String()
}

// EquationString renders an equation, for diagnostics
func EquationString(e *Equation) string {
	sb := &strings.Builder{}
	for i, f := range e.Freshness {
		if i == 0 {
			sb.WriteString("if ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Var + " # " + f.Term)
		if i == len(e.Freshness)-1 {
			sb.WriteString(" then ")
		}
	}
	showExpr(sb, e.Left)
	sb.WriteString(" == ")
	showExpr(sb, e.Right)
	return sb.String()
}
