package backend

import (
	goast "go/ast"
	"go/token"

	"github.com/cottand/theoryc/frontend/theory"
)

// recursive fields hold values with methods of their own
func recursive(f theory.Field) bool {
	return f.Kind == theory.FieldTerm || f.Kind == theory.FieldCollection || f.Kind == theory.FieldScope
}

// fieldOf is `t.Fi`
func fieldOf(i int) *goast.SelectorExpr {
	return sel(ident("t"), fieldName(i))
}

// fieldKey is the key of one field under the binders in bound
func (tp *Transpiler) fieldKey(rule *theory.GrammarRule, f theory.Field) goast.Expr {
	switch {
	case recursive(f):
		// -> `t.Fi.keyIn(bound)`
		return call(sel(fieldOf(f.Index), "keyIn"), ident("bound"))
	case f.Kind == theory.FieldVar && rule.IsVarVariant():
		// -> `refKey(bound, t.F0, "Cat")`
		return call(ident("refKey"), ident("bound"), fieldOf(f.Index), str(rule.Category))
	case f.Kind == theory.FieldVar:
		return call(ident("freeKey"), fieldOf(f.Index))
	default:
		tp.imports.Insert("fmt")
		return call(sel(ident("fmt"), "Sprint"), fieldOf(f.Index))
	}
}

// keyExpr is `"L(" + k0 + "," + k1 + ")"`, or `"L"` for nullary constructors
func (tp *Transpiler) keyExpr(rule *theory.GrammarRule, fs []theory.Field) goast.Expr {
	if len(fs) == 0 {
		return str(rule.Label)
	}
	parts := []goast.Expr{str(rule.Label + "(")}
	for i, f := range fs {
		if i > 0 {
			parts = append(parts, str(","))
		}
		parts = append(parts, tp.fieldKey(rule, f))
	}
	return concat(append(parts, str(")"))...)
}

// rebuild is `&L{F0: each(0), F1: each(1)}`
func rebuild(rule *theory.GrammarRule, fs []theory.Field, each func(f theory.Field) goast.Expr) goast.Expr {
	elts := make([]goast.Expr, len(fs))
	for i, f := range fs {
		elts[i] = &goast.KeyValueExpr{Key: ident(fieldName(i)), Value: each(f)}
	}
	return &goast.UnaryExpr{Op: token.AND, X: &goast.CompositeLit{Type: ident(rule.Label), Elts: elts}}
}

func (tp *Transpiler) normalizeExpr(rule *theory.GrammarRule, fs []theory.Field) goast.Expr {
	flat := flattens(rule, fs)
	return rebuild(rule, fs, func(f theory.Field) goast.Expr {
		switch {
		case flat:
			// -> `t.F0.normalize(InsertL)`
			return call(sel(fieldOf(f.Index), "normalize"), ident(insertName(rule)))
		case recursive(f):
			return call(sel(fieldOf(f.Index), "Normalize"))
		default:
			return fieldOf(f.Index)
		}
	})
}

func occursExpr(fs []theory.Field) goast.Expr {
	var conds []goast.Expr
	for _, f := range fs {
		switch {
		case recursive(f):
			conds = append(conds, call(sel(fieldOf(f.Index), "Occurs"), ident("n")))
		case f.Kind == theory.FieldVar:
			conds = append(conds, &goast.BinaryExpr{X: fieldOf(f.Index), Op: token.EQL, Y: ident("n")})
		}
	}
	return or(conds...)
}

// substituteStmts replaces the free occurrences of n in Var variants of target by r
func substituteStmts(rule *theory.GrammarRule, fs []theory.Field, target string) []goast.Stmt {
	if rule.IsVarVariant() {
		if rule.Category != target {
			return []goast.Stmt{ret(ident("t"))}
		}
		// -> `if t.F0 == n { return r }; return t`
		return []goast.Stmt{
			&goast.IfStmt{
				Cond: &goast.BinaryExpr{X: fieldOf(0), Op: token.EQL, Y: ident("n")},
				Body: &goast.BlockStmt{List: []goast.Stmt{ret(ident("r"))}},
			},
			ret(ident("t")),
		}
	}
	if !anyRecursive(fs) {
		return []goast.Stmt{ret(ident("t"))}
	}
	return []goast.Stmt{ret(rebuild(rule, fs, func(f theory.Field) goast.Expr {
		if recursive(f) {
			return call(sel(fieldOf(f.Index), "Substitute"+target), ident("n"), ident("r"))
		}
		return fieldOf(f.Index)
	}))}
}

func anyRecursive(fs []theory.Field) bool {
	for _, f := range fs {
		if recursive(f) {
			return true
		}
	}
	return false
}
