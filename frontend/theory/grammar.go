package theory

import (
	"fmt"
	"strings"
)

// VarCategory is the pseudo-category of identifier references.
// Fields of this category hold a name rather than a recursive sub-term.
const VarCategory = "Var"

// CollectionKind is the semantics of a Collection item
type CollectionKind int

const (
	MultiSet CollectionKind = iota + 1
	Set
	Sequence
)

func (k CollectionKind) String() string {
	switch k {
	case MultiSet:
		return "HashBag"
	case Set:
		return "HashSet"
	case Sequence:
		return "Vec"
	default:
		return fmt.Sprintf("CollectionKind(%d)", int(k))
	}
}

// GrammarItem is one position in the right hand side of a GrammarRule
type GrammarItem interface {
	Positioner
	String() string
	itemNode()
}

// Terminal is a fragment of concrete syntax. It contributes no field.
type Terminal struct {
	Range
	Text string
}

// NonTerminal references another category, or VarCategory.
type NonTerminal struct {
	Range
	Category string
}

// Binder introduces a variable of Category, scoped over the next non-terminal item.
type Binder struct {
	Range
	Category string
}

// Collection holds zero or more Element terms.
type Collection struct {
	Range
	Kind      CollectionKind
	Element   string
	Separator string
	Open      string
	Close     string
}

// Native holds a value of a native scalar type, for native-backed categories
type Native struct {
	Range
	Type string
}

func (Terminal) itemNode()    {}
func (NonTerminal) itemNode() {}
func (Binder) itemNode()      {}
func (Collection) itemNode()  {}
func (Native) itemNode()      {}

func (t Terminal) String() string    { return fmt.Sprintf("%q", t.Text) }
func (n NonTerminal) String() string { return n.Category }
func (b Binder) String() string      { return "<" + b.Category + ">" }
func (n Native) String() string      { return "native(" + n.Type + ")" }
func (c Collection) String() string {
	sb := strings.Builder{}
	sb.WriteString(c.Kind.String())
	sb.WriteString("(" + c.Element + ")")
	if c.Separator != "" {
		sb.WriteString(fmt.Sprintf(" sep %q", c.Separator))
	}
	if c.Open != "" || c.Close != "" {
		sb.WriteString(fmt.Sprintf(" delim %q %q", c.Open, c.Close))
	}
	return sb.String()
}

// Binding records that the item at Binder scopes over the items at Bodies.
// Every generator only supports exactly one body.
type Binding struct {
	Binder int
	Bodies []int
}

// GrammarRule is one labeled constructor of a category
type GrammarRule struct {
	Range
	Label    string
	Category string
	Items    []GrammarItem
	Bindings []Binding
	// Implicit is set for rules the theory did not declare, like the Var variant of a category
	Implicit bool
}

// InferBindings pairs each binder with the next non-terminal, binder or collection
// item that textually follows it.
func InferBindings(items []GrammarItem) []Binding {
	var bindings []Binding
	for i, item := range items {
		if _, ok := item.(Binder); !ok {
			continue
		}
		for j := i + 1; j < len(items); j++ {
			if isArgItem(items[j]) {
				bindings = append(bindings, Binding{Binder: i, Bodies: []int{j}})
				break
			}
		}
	}
	return bindings
}

func isArgItem(item GrammarItem) bool {
	switch item.(type) {
	case NonTerminal, Binder, Collection, Native:
		return true
	default:
		return false
	}
}

// ArgItems returns the indexes into Items that patterns supply arguments for, in order.
// A binder and its body are separate arguments.
func (r *GrammarRule) ArgItems() []int {
	var args []int
	for i, item := range r.Items {
		if isArgItem(item) {
			args = append(args, i)
		}
	}
	return args
}

// Arity is the number of pattern arguments of the constructor
func (r *GrammarRule) Arity() int {
	return len(r.ArgItems())
}

// IsNullary is true for leaf constructors with no non-terminal or collection items
func (r *GrammarRule) IsNullary() bool {
	return r.Arity() == 0
}

// IsVarVariant is true for rules of the shape `L . C ::= Var`
func (r *GrammarRule) IsVarVariant() bool {
	args := r.ArgItems()
	if len(args) != 1 {
		return false
	}
	nt, ok := r.Items[args[0]].(NonTerminal)
	return ok && nt.Category == VarCategory
}

// IsLiteral is true for the literal variant of a native-backed category
func (r *GrammarRule) IsLiteral() bool {
	args := r.ArgItems()
	if len(args) != 1 {
		return false
	}
	_, ok := r.Items[args[0]].(Native)
	return ok
}

// BinderOf returns the binding whose body is item, if any
func (r *GrammarRule) BinderOf(item int) (Binding, bool) {
	for _, b := range r.Bindings {
		for _, body := range b.Bodies {
			if body == item {
				return b, true
			}
		}
	}
	return Binding{}, false
}

// BindingAt returns the binding introduced by the binder at item, if any
func (r *GrammarRule) BindingAt(item int) (Binding, bool) {
	for _, b := range r.Bindings {
		if b.Binder == item {
			return b, true
		}
	}
	return Binding{}, false
}

func (r *GrammarRule) String() string {
	items := make([]string, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, item.String())
	}
	return fmt.Sprintf("%s . %s ::= %s", r.Label, r.Category, strings.Join(items, " "))
}
