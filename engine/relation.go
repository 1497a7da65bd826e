package engine

import (
	"slices"
	"strings"

	"github.com/cottand/theoryc/ir"
	"github.com/cottand/theoryc/term"
	"github.com/hashicorp/go-set/v3"
)

// fact is one tuple of a relation
type fact struct {
	values []term.Value
	key    string
}

func (f fact) Hash() string { return f.key }

func newFact(values []term.Value) fact {
	sb := strings.Builder{}
	for i, v := range values {
		if i > 0 {
			sb.WriteString("\x00")
		}
		sb.WriteString(v.Key())
	}
	return fact{values: values, key: sb.String()}
}

// relation stores the facts of one relation, indexed by every column.
// Equivalence relations are stored as a union-find instead.
type relation struct {
	decl  *ir.Relation
	facts *set.HashSet[fact, string]
	list  []fact
	// index maps column, then value key, to the facts holding that value
	index []map[string][]fact
	uf    *unionFind

	// delta holds the facts new in the previous round, next those new in this one
	delta, next []fact
}

func newRelation(decl *ir.Relation) *relation {
	r := &relation{decl: decl}
	if decl.IsEquivalence() {
		r.uf = newUnionFind()
		return r
	}
	r.facts = set.NewHashSet[fact, string](0)
	r.index = make([]map[string][]fact, decl.Arity())
	for i := range r.index {
		r.index[i] = map[string][]fact{}
	}
	return r
}

// insert adds a fact, recording every fact that became true in next.
// It reports whether anything was added.
func (r *relation) insert(values []term.Value) bool {
	if r.uf != nil {
		pairs := r.uf.union(values[0], values[1])
		for _, p := range pairs {
			r.next = append(r.next, newFact([]term.Value{p[0], p[1]}))
		}
		return len(pairs) > 0
	}
	f := newFact(values)
	if !r.facts.Insert(f) {
		return false
	}
	r.list = append(r.list, f)
	for i, v := range values {
		r.index[i][v.Key()] = append(r.index[i][v.Key()], f)
	}
	r.next = append(r.next, f)
	return true
}

// advance starts a new round, making the facts found in the last one the delta
func (r *relation) advance() {
	r.delta, r.next = r.next, nil
}

func (r *relation) size() int {
	if r.uf != nil {
		return r.uf.pairs()
	}
	return len(r.list)
}

// lookup yields the stored facts that may match bound, a value per bound column
// and nil elsewhere. Candidates are narrowed with the index of one bound column only.
func (r *relation) lookup(bound []term.Value) []fact {
	if r.uf != nil {
		return r.uf.lookup(bound)
	}
	for i, v := range bound {
		if v != nil {
			return r.index[i][v.Key()]
		}
	}
	return r.list
}

// all lists every fact, sorted by key
func (r *relation) all() []fact {
	var res []fact
	if r.uf != nil {
		res = r.uf.lookup([]term.Value{nil, nil})
	} else {
		res = slices.Clone(r.list)
	}
	slices.SortFunc(res, func(a, b fact) int { return strings.Compare(a.key, b.key) })
	return res
}

// unionFind holds an equivalence relation over values, by key
type unionFind struct {
	parent  map[string]string
	members map[string]term.Value
	// classes maps a root to the keys of its class
	classes map[string][]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[string]string{}, members: map[string]term.Value{}, classes: map[string][]string{}}
}

func (u *unionFind) find(k string) string {
	for u.parent[k] != k {
		u.parent[k] = u.parent[u.parent[k]]
		k = u.parent[k]
	}
	return k
}

// add makes v a member of its own class, reporting whether it was new
func (u *unionFind) add(v term.Value) bool {
	k := v.Key()
	if _, ok := u.parent[k]; ok {
		return false
	}
	u.parent[k] = k
	u.members[k] = v
	u.classes[k] = []string{k}
	return true
}

// union merges the classes of a and b and returns the pairs that became related
func (u *unionFind) union(a, b term.Value) [][2]term.Value {
	var pairs [][2]term.Value
	for _, v := range []term.Value{a, b} {
		if u.add(v) {
			pairs = append(pairs, [2]term.Value{v, v})
		}
	}
	ra, rb := u.find(a.Key()), u.find(b.Key())
	if ra == rb {
		return pairs
	}
	ca, cb := u.classes[ra], u.classes[rb]
	for _, x := range ca {
		for _, y := range cb {
			pairs = append(pairs, [2]term.Value{u.members[x], u.members[y]}, [2]term.Value{u.members[y], u.members[x]})
		}
	}
	if len(ca) < len(cb) {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.classes[ra] = append(u.classes[ra], u.classes[rb]...)
	delete(u.classes, rb)
	return pairs
}

func (u *unionFind) same(a, b term.Value) bool {
	_, okA := u.parent[a.Key()]
	_, okB := u.parent[b.Key()]
	return okA && okB && u.find(a.Key()) == u.find(b.Key())
}

func (u *unionFind) class(v term.Value) []term.Value {
	if _, ok := u.parent[v.Key()]; !ok {
		return nil
	}
	keys := u.classes[u.find(v.Key())]
	res := make([]term.Value, len(keys))
	for i, k := range keys {
		res[i] = u.members[k]
	}
	return res
}

func (u *unionFind) pairs() int {
	n := 0
	for _, c := range u.classes {
		n += len(c) * len(c)
	}
	return n
}

func (u *unionFind) lookup(bound []term.Value) []fact {
	a, b := bound[0], bound[1]
	var res []fact
	switch {
	case a != nil && b != nil:
		if u.same(a, b) {
			res = append(res, newFact([]term.Value{u.members[a.Key()], u.members[b.Key()]}))
		}
	case a != nil:
		for _, y := range u.class(a) {
			res = append(res, newFact([]term.Value{u.members[a.Key()], y}))
		}
	case b != nil:
		for _, x := range u.class(b) {
			res = append(res, newFact([]term.Value{x, u.members[b.Key()]}))
		}
	default:
		roots := make([]string, 0, len(u.classes))
		for root := range u.classes {
			roots = append(roots, root)
		}
		slices.Sort(roots)
		for _, root := range roots {
			for _, x := range u.classes[root] {
				for _, y := range u.classes[root] {
					res = append(res, newFact([]term.Value{u.members[x], u.members[y]}))
				}
			}
		}
	}
	return res
}
