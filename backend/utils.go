package backend

import (
	goast "go/ast"
	"go/token"
	"strconv"
)

const goVersion = "1.23.3"

// nativeToGoTypes maps the native types a theory may export to Go types
var nativeToGoTypes = map[string]string{
	"i64":    "int64",
	"i32":    "int32",
	"u64":    "uint64",
	"u32":    "uint32",
	"isize":  "int",
	"usize":  "uint",
	"bool":   "bool",
	"str":    "string",
	"String": "string",
	"f64":    "float64",
}

func nativeGoType(native string) (goType string, ok bool) {
	goType, ok = nativeToGoTypes[native]
	return goType, ok
}

// fieldName is the Go name of the i-th field of a constructor struct
func fieldName(i int) string {
	return "F" + strconv.Itoa(i)
}

func ident(name string) *goast.Ident {
	return goast.NewIdent(name)
}

func str(s string) *goast.BasicLit {
	return &goast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

// sel is `x.name`
func sel(x goast.Expr, name string) *goast.SelectorExpr {
	return &goast.SelectorExpr{X: x, Sel: ident(name)}
}

func call(fun goast.Expr, args ...goast.Expr) *goast.CallExpr {
	return &goast.CallExpr{Fun: fun, Args: args}
}

// concat is `parts[0] + parts[1] + ...`
func concat(parts ...goast.Expr) goast.Expr {
	res := parts[0]
	for _, p := range parts[1:] {
		res = &goast.BinaryExpr{X: res, Op: token.ADD, Y: p}
	}
	return res
}

// or is `conds[0] || conds[1] || ...`, or false when there are none
func or(conds ...goast.Expr) goast.Expr {
	if len(conds) == 0 {
		return ident("false")
	}
	res := conds[0]
	for _, c := range conds[1:] {
		res = &goast.BinaryExpr{X: res, Op: token.LOR, Y: c}
	}
	return res
}

func ret(results ...goast.Expr) *goast.ReturnStmt {
	return &goast.ReturnStmt{Results: results}
}

func field(name string, t goast.Expr) *goast.Field {
	f := &goast.Field{Type: t}
	if name != "" {
		f.Names = []*goast.Ident{ident(name)}
	}
	return f
}

func fields(fs ...*goast.Field) *goast.FieldList {
	return &goast.FieldList{List: fs}
}

// method is `func (t *recv) name(params) results { body }`
func method(recv, name string, params, results *goast.FieldList, body ...goast.Stmt) *goast.FuncDecl {
	return &goast.FuncDecl{
		Recv: fields(field("t", &goast.StarExpr{X: ident(recv)})),
		Name: ident(name),
		Type: &goast.FuncType{Params: params, Results: results},
		Body: &goast.BlockStmt{List: body},
	}
}

func doc(text string) *goast.CommentGroup {
	return &goast.CommentGroup{List: []*goast.Comment{{Text: "// " + text}}}
}
