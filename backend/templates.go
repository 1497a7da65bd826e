package backend

import (
	goast "go/ast"
	"go/parser"
	"go/token"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ast/astutil"
)

// Templates are Go source in which placeholder identifiers starting with X are
// renamed on instantiation. Declarations whose name mentions XTarget are
// instantiated once per substitution target.

const preludeTemplate = `package x

import (
	"strconv"
	"sync/atomic"
)

type Ident struct {
	Text string
	ID   uint64
}

var identCounter uint64

func FreshIdent(hint string) Ident {
	return Ident{Text: hint, ID: atomic.AddUint64(&identCounter, 1)}
}

func (n Ident) String() string {
	if n.ID == 0 {
		return n.Text
	}
	return n.Text + "_" + strconv.FormatUint(n.ID, 10)
}

type binding struct {
	name     Ident
	category string
}

func freeKey(n Ident) string {
	if n.ID == 0 {
		return "$" + n.Text
	}
	return "$" + n.Text + "#" + strconv.FormatUint(n.ID, 10)
}

func refKey(bound []binding, n Ident, category string) string {
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i].name == n && bound[i].category == category {
			return "^" + strconv.Itoa(len(bound)-1-i)
		}
	}
	return freeKey(n)
}

func bindIn(bound []binding, n Ident, category string) []binding {
	res := make([]binding, len(bound), len(bound)+1)
	copy(res, bound)
	return append(res, binding{name: n, category: category})
}
`

const bagTemplate = `package x

import (
	"sort"
	"strings"
)

type XColl struct {
	Items []XElem
}

func NewXColl(items ...XElem) XColl {
	b := XColl{}
	for _, item := range items {
		b = b.Insert(item)
	}
	return b
}

func (b XColl) Len() int {
	return len(b.Items)
}

func (b XColl) keyIn(bound []binding) string {
	keys := make([]string, len(b.Items))
	for i, item := range b.Items {
		keys[i] = item.keyIn(bound)
	}
	sort.Strings(keys)
	return "XOpen{" + strings.Join(keys, ",") + "}"
}

func (b XColl) Occurs(n Ident) bool {
	for _, item := range b.Items {
		if item.Occurs(n) {
			return true
		}
	}
	return false
}

func (b XColl) normalize(insert func(XColl, XElem) XColl) XColl {
	res := XColl{}
	for _, item := range b.Items {
		res = insert(res, item.Normalize())
	}
	return res
}

func (b XColl) Normalize() XColl {
	return b.normalize(func(res XColl, e XElem) XColl { return res.Insert(e) })
}
`

const bagInsertTemplate = `package x

func (b XColl) Insert(e XElem) XColl {
	items := make([]XElem, len(b.Items), len(b.Items)+1)
	copy(items, b.Items)
	return XColl{Items: append(items, e)}
}
`

// setInsertTemplate keeps one element per key
const setInsertTemplate = `package x

func (b XColl) Insert(e XElem) XColl {
	key := e.Key()
	for _, item := range b.Items {
		if item.Key() == key {
			return b
		}
	}
	items := make([]XElem, len(b.Items), len(b.Items)+1)
	copy(items, b.Items)
	return XColl{Items: append(items, e)}
}
`

const bagTargetTemplate = `package x

func (b XColl) SubstituteXTarget(n Ident, r XTarget) XColl {
	res := XColl{}
	for _, item := range b.Items {
		res = res.Insert(item.SubstituteXTarget(n, r))
	}
	return res
}
`

const vecTemplate = `package x

import "strings"

type XColl struct {
	Items []XElem
}

func NewXColl(items ...XElem) XColl {
	return XColl{Items: items}
}

func (v XColl) Len() int {
	return len(v.Items)
}

func (v XColl) keyIn(bound []binding) string {
	keys := make([]string, len(v.Items))
	for i, item := range v.Items {
		keys[i] = item.keyIn(bound)
	}
	return "[" + strings.Join(keys, ",") + "]"
}

func (v XColl) Occurs(n Ident) bool {
	for _, item := range v.Items {
		if item.Occurs(n) {
			return true
		}
	}
	return false
}

func (v XColl) Normalize() XColl {
	items := make([]XElem, len(v.Items))
	for i, item := range v.Items {
		items[i] = item.Normalize()
	}
	return XColl{Items: items}
}
`

const vecTargetTemplate = `package x

func (v XColl) SubstituteXTarget(n Ident, r XTarget) XColl {
	items := make([]XElem, len(v.Items))
	for i, item := range v.Items {
		items[i] = item.SubstituteXTarget(n, r)
	}
	return XColl{Items: items}
}
`

const scopeTemplate = `package x

type ScopeXBinderXBody struct {
	Binder Ident
	Body   XBody
}

func NewScopeXBinderXBody(binder Ident, body XBody) ScopeXBinderXBody {
	return ScopeXBinderXBody{Binder: binder, Body: body}
}

func (s ScopeXBinderXBody) RawParts() (Ident, XBody) {
	return s.Binder, s.Body
}

func (s ScopeXBinderXBody) Unbind() (Ident, XBody) {
	fresh := FreshIdent(s.Binder.Text)
	return fresh, s.Body.SubstituteXBinder(s.Binder, &XBinderVar{F0: fresh})
}

func (s ScopeXBinderXBody) keyIn(bound []binding) string {
	return "\\." + s.Body.keyIn(bindIn(bound, s.Binder, "XBinder"))
}

func (s ScopeXBinderXBody) Occurs(n Ident) bool {
	return s.Binder == n || s.Body.Occurs(n)
}

func (s ScopeXBinderXBody) Normalize() ScopeXBinderXBody {
	return ScopeXBinderXBody{Binder: s.Binder, Body: s.Body.Normalize()}
}
`

const scopeTargetTemplate = `package x

func (s ScopeXBinderXBody) SubstituteXTarget(n Ident, r XTarget) ScopeXBinderXBody {
	if r.Occurs(s.Binder) {
		fresh := FreshIdent(s.Binder.Text)
		body := s.Body.SubstituteXBinder(s.Binder, &XBinderVar{F0: fresh})
		return ScopeXBinderXBody{Binder: fresh, Body: body.SubstituteXTarget(n, r)}
	}
	return ScopeXBinderXBody{Binder: s.Binder, Body: s.Body.SubstituteXTarget(n, r)}
}
`

// scopeShadowingTargetTemplate is scopeTargetTemplate for a target that is the
// binder's own category, where the binder hides n from the body
const scopeShadowingTargetTemplate = `package x

func (s ScopeXBinderXBody) SubstituteXTarget(n Ident, r XTarget) ScopeXBinderXBody {
	if s.Binder == n {
		return s
	}
	if r.Occurs(s.Binder) {
		fresh := FreshIdent(s.Binder.Text)
		body := s.Body.SubstituteXBinder(s.Binder, &XBinderVar{F0: fresh})
		return ScopeXBinderXBody{Binder: fresh, Body: body.SubstituteXTarget(n, r)}
	}
	return ScopeXBinderXBody{Binder: s.Binder, Body: s.Body.SubstituteXTarget(n, r)}
}
`

// placeholders maps each placeholder of a template to its replacement
type placeholders map[string]string

// replacer renames longer placeholders first, so XBinderVar is not read as XBinder
func (p placeholders) replacer() *strings.Replacer {
	olds := make([]string, 0, len(p))
	for old := range p {
		olds = append(olds, old)
	}
	slices.SortFunc(olds, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	pairs := make([]string, 0, 2*len(olds))
	for _, old := range olds {
		pairs = append(pairs, old, p[old])
	}
	return strings.NewReplacer(pairs...)
}

// instantiate parses template and renames its placeholders, returning its
// declarations and the import paths it needs
func (tp *Transpiler) instantiate(name, template string, with placeholders) ([]goast.Decl, []string, error) {
	file, err := parser.ParseFile(tp.fset, name+".go", template, parser.SkipObjectResolution)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing template %s", name)
	}
	r := with.replacer()
	astutil.Apply(file, func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *goast.ImportSpec:
			return false
		case *goast.Ident:
			n.Name = r.Replace(n.Name)
		case *goast.BasicLit:
			if n.Kind != token.STRING {
				return true
			}
			// placeholders inside string literals name categories
			unquoted, err := strconv.Unquote(n.Value)
			if err == nil {
				n.Value = strconv.Quote(r.Replace(unquoted))
			}
		}
		return true
	}, nil)

	var imports []string
	var decls []goast.Decl
	for _, decl := range file.Decls {
		if gen, ok := decl.(*goast.GenDecl); ok && gen.Tok == token.IMPORT {
			for _, spec := range gen.Specs {
				path, _ := strconv.Unquote(spec.(*goast.ImportSpec).Path.Value)
				imports = append(imports, path)
			}
			continue
		}
		decls = append(decls, decl)
	}
	return decls, imports, nil
}
