package backend

import (
	goast "go/ast"
	"go/token"

	"github.com/cottand/theoryc/frontend/theory"
)

// categoryInterface declares the interface every constructor of cat implements:
//
//	type Proc interface {
//		Key() string
//		keyIn(bound []binding) string
//		Normalize() Proc
//		Occurs(n Ident) bool
//		SubstituteProc(n Ident, r Proc) Proc
//		isProc()
//	}
func (tp *Transpiler) categoryInterface(cat string) goast.Decl {
	methods := []*goast.Field{
		field("Key", &goast.FuncType{Params: fields(), Results: fields(field("", ident("string")))}),
		field("keyIn", &goast.FuncType{
			Params:  fields(field("bound", boundType())),
			Results: fields(field("", ident("string"))),
		}),
		field("Normalize", &goast.FuncType{Params: fields(), Results: fields(field("", ident(cat)))}),
		field("Occurs", &goast.FuncType{
			Params:  fields(field("n", ident("Ident"))),
			Results: fields(field("", ident("bool"))),
		}),
	}
	for _, target := range tp.targets {
		methods = append(methods, field("Substitute"+target, substituteType(cat, target)))
	}
	methods = append(methods, field(marker(cat), &goast.FuncType{Params: fields()}))

	return &goast.GenDecl{
		Doc: doc(cat + " is a term of category " + cat),
		Tok: token.TYPE,
		Specs: []goast.Spec{&goast.TypeSpec{
			Name: ident(cat),
			Type: &goast.InterfaceType{Methods: fields(methods...)},
		}},
	}
}

// substituteType is `func(n Ident, r target) cat`
func substituteType(cat, target string) *goast.FuncType {
	return &goast.FuncType{
		Params:  fields(field("n", ident("Ident")), field("r", ident(target))),
		Results: fields(field("", ident(cat))),
	}
}

// boundType is `[]binding`
func boundType() goast.Expr {
	return &goast.ArrayType{Elt: ident("binding")}
}

// marker is the unexported method that closes the interface of a category
func marker(cat string) string {
	return "is" + cat
}

// constructorStruct declares the struct of a constructor:
//
//	type PInput struct {
//		F0 Name
//		F1 ScopeNameProc
//	}
func (tp *Transpiler) constructorStruct(rule *theory.GrammarRule, types []goast.Expr) goast.Decl {
	structFields := make([]*goast.Field, len(types))
	for i, t := range types {
		structFields[i] = field(fieldName(i), t)
	}
	return &goast.GenDecl{
		Doc: doc(rule.Label + " is `" + rule.String() + "`"),
		Tok: token.TYPE,
		Specs: []goast.Spec{&goast.TypeSpec{
			Name: ident(rule.Label),
			Type: &goast.StructType{Fields: fields(structFields...)},
		}},
	}
}

// fieldType resolves the Go type of one constructor field, registering the
// collection and scope helper types it needs. It reports an unsupported shape
// and returns false when the field has no Go representation.
func (tp *Transpiler) fieldType(rule *theory.GrammarRule, f theory.Field) (goast.Expr, bool) {
	switch f.Kind {
	case theory.FieldTerm:
		return ident(f.Category), true
	case theory.FieldVar:
		return ident("Ident"), true
	case theory.FieldNative:
		goType, ok := nativeGoType(f.NativeType)
		if !ok {
			tp.unsupported(rule, "native type "+f.NativeType+" has no Go equivalent")
			return nil, false
		}
		return ident(goType), true
	case theory.FieldCollection:
		name := collectionType(f)
		if _, seen := tp.collections[name]; !seen {
			if !tp.declare(name, "collection of "+rule.Label, rule) || !tp.declare("New"+name, "collection of "+rule.Label, rule) {
				return nil, false
			}
			tp.collections[name] = f
		}
		return ident(name), true
	case theory.FieldScope:
		if len(f.Items) != 2 {
			tp.unsupported(rule, "a binder must scope over exactly one item")
			return nil, false
		}
		if nt, ok := rule.Items[f.Items[1]].(theory.NonTerminal); !ok || nt.Category == theory.VarCategory {
			tp.unsupported(rule, "a binder must scope over a single term")
			return nil, false
		}
		if _, ok := tp.grammar.VarRule(f.BinderCategory); !ok {
			tp.unsupported(rule, "binder category "+f.BinderCategory+" has no variables")
			return nil, false
		}
		name := scopeType(f)
		if _, seen := tp.scopes[name]; !seen {
			if !tp.declare(name, "scope of "+rule.Label, rule) || !tp.declare("New"+name, "scope of "+rule.Label, rule) {
				return nil, false
			}
			tp.scopes[name] = f
		}
		return ident(name), true
	}
	tp.unsupported(rule, "unknown field kind "+f.Kind.String())
	return nil, false
}

func collectionType(f theory.Field) string {
	switch f.Collection {
	case theory.Set:
		return f.Category + "Set"
	case theory.Sequence:
		return f.Category + "Vec"
	default:
		return f.Category + "Bag"
	}
}

func scopeType(f theory.Field) string {
	return "Scope" + f.BinderCategory + f.Category
}
