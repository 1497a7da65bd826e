package rulegen

import (
	"github.com/benbjohnson/immutable"
	"github.com/cottand/theoryc/ir"
)

// BindingKind says how a pattern variable was matched
type BindingKind int

const (
	// BindPlain is an ordinary sub-term, reference or native value
	BindPlain BindingKind = iota + 1
	// BindBinder is the raw placeholder of a scope, as a free reference
	BindBinder
	// BindBody is the raw body of a scope, which refers to its binder by index
	BindBody
)

// Binding is what a pattern variable is bound to in a rule body:
// an *ElementBinding or a *RestBinding
type Binding interface {
	binding()
}

// ElementBinding binds a variable to one value of Category
type ElementBinding struct {
	Category string
	Expr     ir.Expr
	Kind     BindingKind
	// Scope is the rule variable holding the scope a binder or body was read from
	Scope string
	// Binder is the placeholder of the scope a body was read from
	Binder ir.Expr
}

// RestBinding binds a variable to the remaining elements of a collection
type RestBinding struct {
	ElementCategory string
	Constructor     string
	Set             bool
	Expr            ir.Expr
}

func (*ElementBinding) binding() {}
func (*RestBinding) binding()    {}

// IsRef reports whether the bound value is a free reference rather than a term
func (b *ElementBinding) IsRef() bool {
	return b.Kind == BindBinder || b.Category == varCategory
}

// Bindings is the variable table of one rule, in binding order
type Bindings struct {
	m     *immutable.Map[string, Binding]
	order []string
}

func NewBindings() *Bindings {
	return &Bindings{m: immutable.NewMap[string, Binding](immutable.NewHasher(""))}
}

func (b *Bindings) Get(name string) (Binding, bool) {
	return b.m.Get(name)
}

// Element returns the binding of name if it is bound to an element
func (b *Bindings) Element(name string) (*ElementBinding, bool) {
	v, ok := b.m.Get(name)
	if !ok {
		return nil, false
	}
	e, ok := v.(*ElementBinding)
	return e, ok
}

func (b *Bindings) Set(name string, binding Binding) {
	if _, exists := b.m.Get(name); !exists {
		b.order = append(b.order, name)
	}
	b.m = b.m.Set(name, binding)
}

// Names lists the bound variables in binding order
func (b *Bindings) Names() []string {
	return b.order
}

func (b *Bindings) Len() int {
	return b.m.Len()
}

// Snapshot returns a copy that later Set calls on b do not affect
func (b *Bindings) Snapshot() *Bindings {
	order := make([]string, len(b.order))
	copy(order, b.order)
	return &Bindings{m: b.m, order: order}
}
