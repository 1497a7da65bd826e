package backend

import (
	goast "go/ast"

	"github.com/cottand/theoryc/frontend/theory"
)

// constructor declares the struct of rule and its methods, or nothing if one
// of its fields cannot be represented
func (tp *Transpiler) constructor(rule *theory.GrammarRule) []goast.Decl {
	fs := rule.Fields()
	types := make([]goast.Expr, len(fs))
	for i, f := range fs {
		t, ok := tp.fieldType(rule, f)
		if !ok {
			tp.Debug("skipping constructor", "label", rule.Label, "field", i)
			return nil
		}
		types[i] = t
	}
	if !tp.declare(rule.Label, "constructor "+rule.Label, rule) {
		return nil
	}
	self := rule.Label
	stringResult := fields(field("", ident("string")))

	decls := []goast.Decl{
		tp.constructorStruct(rule, types),
		method(self, marker(rule.Category), fields(), nil),
		method(self, "Key", fields(), stringResult,
			ret(call(sel(ident("t"), "keyIn"), ident("nil")))),
		method(self, "keyIn", fields(field("bound", boundType())), stringResult,
			ret(tp.keyExpr(rule, fs))),
	}

	normalize := []goast.Stmt{ret(ident("t"))}
	if anyRecursive(fs) {
		normalize = []goast.Stmt{ret(tp.normalizeExpr(rule, fs))}
	}
	decls = append(decls,
		method(self, "Normalize", fields(), fields(field("", ident(rule.Category))), normalize...),
		method(self, "Occurs", fields(field("n", ident("Ident"))), fields(field("", ident("bool"))),
			ret(occursExpr(fs))),
	)
	for _, target := range tp.targets {
		sig := substituteType(rule.Category, target)
		decls = append(decls, method(self, "Substitute"+target, sig.Params, sig.Results,
			substituteStmts(rule, fs, target)...))
	}

	if flattens(rule, fs) {
		if tp.declare(insertName(rule), "constructor "+rule.Label, rule) {
			decls = append(decls, flatInsert(rule, fs[0]))
		}
	}
	return decls
}
