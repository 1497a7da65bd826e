package term

import (
	"github.com/benbjohnson/immutable"
	"iter"
	"strings"
)

type bagEntry struct {
	value Value
	count int
}

// Bag is a persistent multiset of values, ordered by key. With set semantics
// every value occurs at most once.
type Bag struct {
	set     bool
	entries *immutable.SortedMap[string, bagEntry]
	size    int
	key     string
}

var emptyEntries = immutable.NewSortedMap[string, bagEntry](nil)

// NewBag builds a multiset
func NewBag(elems ...Value) *Bag {
	b := newBag(false, emptyEntries, 0)
	for _, e := range elems {
		b = b.Insert(e)
	}
	return b
}

// NewSet builds a bag with set semantics
func NewSet(elems ...Value) *Bag {
	b := newBag(true, emptyEntries, 0)
	for _, e := range elems {
		b = b.Insert(e)
	}
	return b
}

func newBag(set bool, entries *immutable.SortedMap[string, bagEntry], size int) *Bag {
	b := &Bag{set: set, entries: entries, size: size}
	sb := strings.Builder{}
	if set {
		sb.WriteString("#{")
	} else {
		sb.WriteString("{")
	}
	first := true
	for v, count := range b.Distinct() {
		for range count {
			if !first {
				sb.WriteString(",")
			}
			first = false
			sb.WriteString(v.Key())
		}
	}
	sb.WriteString("}")
	b.key = sb.String()
	return b
}

// IsSet reports whether the bag has set semantics
func (b *Bag) IsSet() bool { return b.set }

// Len counts every occurrence
func (b *Bag) Len() int { return b.size }

// Count returns the multiplicity of v
func (b *Bag) Count(v Value) int {
	e, ok := b.entries.Get(v.Key())
	if !ok {
		return 0
	}
	return e.count
}

func (b *Bag) Contains(v Value) bool {
	return b.Count(v) > 0
}

// Insert adds one occurrence of v
func (b *Bag) Insert(v Value) *Bag {
	k := v.Key()
	e, ok := b.entries.Get(k)
	if ok && b.set {
		return b
	}
	if !ok {
		e = bagEntry{value: v}
	}
	e.count++
	return newBag(b.set, b.entries.Set(k, e), b.size+1)
}

// Remove removes one occurrence of v, and reports whether there was one
func (b *Bag) Remove(v Value) (*Bag, bool) {
	k := v.Key()
	e, ok := b.entries.Get(k)
	if !ok {
		return b, false
	}
	if e.count == 1 {
		return newBag(b.set, b.entries.Delete(k), b.size-1), true
	}
	e.count--
	return newBag(b.set, b.entries.Set(k, e), b.size-1), true
}

// Without removes one occurrence per value in vs. It fails if the bag does not
// hold that many occurrences, so repeated values must be present repeatedly.
func (b *Bag) Without(vs ...Value) (*Bag, bool) {
	res := b
	for _, v := range vs {
		var ok bool
		if res, ok = res.Remove(v); !ok {
			return b, false
		}
	}
	return res, true
}

// Union adds every occurrence of other
func (b *Bag) Union(other *Bag) *Bag {
	res := b
	for v := range other.All() {
		res = res.Insert(v)
	}
	return res
}

// All yields every occurrence of every value, with the occurrence index
// within its value's multiplicity
func (b *Bag) All() iter.Seq2[Value, int] {
	return func(yield func(Value, int) bool) {
		for v, count := range b.Distinct() {
			for i := range count {
				if !yield(v, i) {
					return
				}
			}
		}
	}
}

// Distinct yields each value once with its multiplicity
func (b *Bag) Distinct() iter.Seq2[Value, int] {
	return func(yield func(Value, int) bool) {
		it := b.entries.Iterator()
		for !it.Done() {
			_, e, _ := it.Next()
			if !yield(e.value, e.count) {
				return
			}
		}
	}
}

// Elements lists every occurrence, ordered by key
func (b *Bag) Elements() []Value {
	res := make([]Value, 0, b.size)
	for v := range b.All() {
		res = append(res, v)
	}
	return res
}

func (b *Bag) Key() string { return b.key }

func (b *Bag) String() string {
	sb := strings.Builder{}
	sb.WriteString("{")
	i := 0
	for v := range b.All() {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(v.String())
		i++
	}
	sb.WriteString("}")
	return sb.String()
}

// Seq is an ordered collection
type Seq struct {
	Items []Value
	key   string
}

func NewSeq(items ...Value) *Seq {
	sb := strings.Builder{}
	sb.WriteString("[")
	for i, item := range items {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(item.Key())
	}
	sb.WriteString("]")
	return &Seq{Items: items, key: sb.String()}
}

func (s *Seq) Key() string { return s.key }

func (s *Seq) String() string {
	parts := make([]string, len(s.Items))
	for i, item := range s.Items {
		parts[i] = item.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// InsertFlat inserts v into the bag of a node labeled label. If v is itself a
// node labeled label, its elements are merged instead, so that such nodes never nest.
func InsertFlat(b *Bag, label string, v Value) *Bag {
	if inner, ok := flatBag(label, v); ok {
		return b.Union(inner)
	}
	return b.Insert(v)
}

// flatBag returns the bag of v if v is a node labeled label holding only a bag
func flatBag(label string, v Value) (*Bag, bool) {
	n, ok := v.(*Node)
	if !ok || n.Label != label || len(n.Fields) != 1 {
		return nil, false
	}
	inner, ok := n.Fields[0].(*Bag)
	return inner, ok
}
