// Package term holds the runtime values the fixpoint engine derives facts over.
//
// Terms are locally nameless: a Scope stores its body with the occurrences of
// its binder replaced by de Bruijn indices, and keeps the binder's name only as
// a placeholder. Two scopes that differ only in the placeholder have the same Key.
package term

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Value is a runtime term or a field of one
type Value interface {
	// Key is a canonical encoding: two values are structurally equal
	// (up to alpha-equivalence) iff their keys are equal
	Key() string
	String() string
	value()
}

// Name is a free identifier. Names read from source have ID 0,
// names allocated by Fresh have a unique non-zero ID.
type Name struct {
	Text string
	ID   uint64
}

var nameCounter atomic.Uint64

// Fresh allocates a Name that is different from every other name, keeping hint for display
func Fresh(hint string) Name {
	return Name{Text: hint, ID: nameCounter.Add(1)}
}

func (n Name) String() string {
	if n.ID == 0 {
		return n.Text
	}
	return fmt.Sprintf("%s_%d", n.Text, n.ID)
}

// Ref is the content of a Var field: either a free Name or a bound de Bruijn index
type Ref struct {
	Name Name
	// Index is the number of scopes between the reference and its binder, or -1 if free
	Index int
}

// FreeRef references a free name
func FreeRef(n Name) Ref {
	return Ref{Name: n, Index: -1}
}

func (r Ref) IsBound() bool {
	return r.Index >= 0
}

func (r Ref) Key() string {
	if r.IsBound() {
		return "^" + strconv.Itoa(r.Index)
	}
	if r.Name.ID == 0 {
		return "$" + r.Name.Text
	}
	return "$" + r.Name.Text + "#" + strconv.FormatUint(r.Name.ID, 10)
}

// String shows the name a bound reference was closed over, so bound references print readably
func (r Ref) String() string {
	return r.Name.String()
}

// Int is a native integer field
type Int int64

func (i Int) Key() string    { return strconv.FormatInt(int64(i), 10) }
func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

// Node is a constructor applied to its fields. Nodes are immutable.
type Node struct {
	Category string
	Label    string
	Fields   []Value
	key      string
}

// NewNode builds a node, computing its key
func NewNode(category, label string, fields ...Value) *Node {
	n := &Node{Category: category, Label: label, Fields: fields}
	sb := strings.Builder{}
	sb.WriteString(label)
	if len(fields) > 0 {
		sb.WriteString("(")
		for i, f := range fields {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(f.Key())
		}
		sb.WriteString(")")
	}
	n.key = sb.String()
	return n
}

func (n *Node) Key() string { return n.key }

func (n *Node) String() string {
	if len(n.Fields) == 0 {
		return n.Label
	}
	sb := strings.Builder{}
	sb.WriteString("(" + n.Label)
	for _, f := range n.Fields {
		sb.WriteString(" ")
		sb.WriteString(f.String())
	}
	sb.WriteString(")")
	return sb.String()
}

// IsVar is true for the Var variant nodes of a category: a single Ref field
func (n *Node) IsVar() bool {
	if len(n.Fields) != 1 {
		return false
	}
	_, ok := n.Fields[0].(Ref)
	return ok
}

// VarRef returns the reference held by a Var variant node
func (n *Node) VarRef() (Ref, bool) {
	if !n.IsVar() {
		return Ref{}, false
	}
	return n.Fields[0].(Ref), true
}

// With returns a copy of n with field i replaced
func (n *Node) With(i int, v Value) *Node {
	fields := make([]Value, len(n.Fields))
	copy(fields, n.Fields)
	fields[i] = v
	return NewNode(n.Category, n.Label, fields...)
}

// Equal compares two values structurally, up to alpha-equivalence
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Key() == b.Key()
}

// Category returns the category of a node, or "" for any other value
func Category(v Value) string {
	if n, ok := v.(*Node); ok {
		return n.Category
	}
	return ""
}

func (Ref) value()    {}
func (Int) value()    {}
func (*Node) value()  {}
func (*Scope) value() {}
func (*Bag) value()   {}
func (*Seq) value()   {}
