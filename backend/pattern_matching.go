package backend

import (
	goast "go/ast"
	"go/token"
	"maps"

	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/util"
)

// flattens is true for constructors holding only a bag or set of their own
// category. Such nodes never nest directly inside each other once normalised.
func flattens(rule *theory.GrammarRule, fs []theory.Field) bool {
	if len(fs) != 1 || fs[0].Kind != theory.FieldCollection {
		return false
	}
	return fs[0].Collection != theory.Sequence && fs[0].Category == rule.Category
}

func insertName(rule *theory.GrammarRule) string {
	return "Insert" + rule.Label
}

// flatInsert declares the insertion that merges nested nodes of rule:
//
//	func InsertPPar(b ProcBag, e Proc) ProcBag {
//		if inner, ok := e.(*PPar); ok {
//			for _, item := range inner.F0.Items {
//				b = b.Insert(item)
//			}
//			return b
//		}
//		return b.Insert(e)
//	}
func flatInsert(rule *theory.GrammarRule, f theory.Field) goast.Decl {
	coll := ident(collectionType(f))
	insert := func(x goast.Expr) goast.Expr {
		return call(sel(ident("b"), "Insert"), x)
	}
	merge := &goast.RangeStmt{
		Key:   ident("_"),
		Value: ident("item"),
		Tok:   token.DEFINE,
		X:     sel(sel(ident("inner"), fieldName(0)), "Items"),
		Body: &goast.BlockStmt{List: []goast.Stmt{
			&goast.AssignStmt{Lhs: []goast.Expr{ident("b")}, Tok: token.ASSIGN, Rhs: []goast.Expr{insert(ident("item"))}},
		}},
	}
	return &goast.FuncDecl{
		Doc:  doc(insertName(rule) + " adds e to b, or the elements of e when it is itself a " + rule.Label),
		Name: ident(insertName(rule)),
		Type: &goast.FuncType{
			Params:  fields(field("b", coll), field("e", ident(rule.Category))),
			Results: fields(field("", coll)),
		},
		Body: &goast.BlockStmt{List: []goast.Stmt{
			&goast.IfStmt{
				Init: &goast.AssignStmt{
					Lhs: []goast.Expr{ident("inner"), ident("ok")},
					Tok: token.DEFINE,
					Rhs: []goast.Expr{&goast.TypeAssertExpr{X: ident("e"), Type: &goast.StarExpr{X: ident(rule.Label)}}},
				},
				Cond: ident("ok"),
				Body: &goast.BlockStmt{List: []goast.Stmt{merge, ret(ident("b"))}},
			},
			ret(insert(ident("e"))),
		}},
	}
}

// helperTypes instantiates the collection and scope types registered while
// declaring constructors, in name order
func (tp *Transpiler) helperTypes() ([]goast.Decl, error) {
	var decls []goast.Decl
	add := func(name, src string, with placeholders) error {
		instantiated, err := tp.template(name, src, with)
		decls = append(decls, instantiated...)
		return err
	}
	perTarget := func(name, src string, with placeholders) error {
		for _, target := range tp.targets {
			with := maps.Clone(with)
			with["XTarget"] = target
			if err := add(name+"_"+target, src, with); err != nil {
				return err
			}
		}
		return nil
	}

	for _, name := range util.SortedKeys(tp.collections) {
		f := tp.collections[name]
		with := placeholders{"XColl": name, "XElem": f.Category, "XOpen": ""}
		var err error
		switch f.Collection {
		case theory.Sequence:
			err = add(name, vecTemplate, with)
			if err == nil {
				err = perTarget(name, vecTargetTemplate, with)
			}
		case theory.Set:
			with["XOpen"] = "#"
			err = tp.bagDecls(name, setInsertTemplate, with, add, perTarget)
		default:
			err = tp.bagDecls(name, bagInsertTemplate, with, add, perTarget)
		}
		if err != nil {
			return nil, err
		}
	}

	for _, name := range util.SortedKeys(tp.scopes) {
		f := tp.scopes[name]
		varRule, _ := tp.grammar.VarRule(f.BinderCategory)
		with := placeholders{
			"ScopeXBinderXBody": name,
			"XBinderVar":        varRule.Label,
			"XBinder":           f.BinderCategory,
			"XBody":             f.Category,
		}
		if err := add(name, scopeTemplate, with); err != nil {
			return nil, err
		}
		for _, target := range tp.targets {
			src := scopeTargetTemplate
			if target == f.BinderCategory {
				src = scopeShadowingTargetTemplate
			}
			with := maps.Clone(with)
			with["XTarget"] = target
			if err := add(name+"_"+target, src, with); err != nil {
				return nil, err
			}
		}
	}
	return decls, nil
}

func (tp *Transpiler) bagDecls(
	name, insertTemplate string,
	with placeholders,
	add, perTarget func(name, src string, with placeholders) error,
) error {
	if err := add(name, bagTemplate, with); err != nil {
		return err
	}
	if err := add(name+"_insert", insertTemplate, with); err != nil {
		return err
	}
	return perTarget(name, bagTargetTemplate, with)
}
