package term

// visit decides what to do with one value met at the given scope depth:
// return a replacement and true, or false to descend into it
type visit func(v Value, depth int) (Value, bool)

// transform rebuilds v, calling f on every value before its children.
// Unchanged subtrees are shared.
func transform(v Value, depth int, f visit) Value {
	if r, done := f(v, depth); done {
		return r
	}
	switch v := v.(type) {
	case *Node:
		var fields []Value
		for i, field := range v.Fields {
			nf := transform(field, depth, f)
			if nf != field && fields == nil {
				fields = make([]Value, len(v.Fields))
				copy(fields, v.Fields)
			}
			if fields != nil {
				fields[i] = nf
			}
		}
		if fields == nil {
			return v
		}
		return NewNode(v.Category, v.Label, fields...)
	case *Scope:
		body := transform(v.body, depth+1, f)
		if body == v.body {
			return v
		}
		return ScopeFromRawParts(v.Binder, v.Category, body)
	case *Bag:
		changed := false
		elems := make([]Value, 0, v.Len())
		for e := range v.All() {
			ne := transform(e, depth, f)
			changed = changed || ne != e
			elems = append(elems, ne)
		}
		if !changed {
			return v
		}
		if v.set {
			return NewSet(elems...)
		}
		return NewBag(elems...)
	case *Seq:
		var items []Value
		for i, item := range v.Items {
			ni := transform(item, depth, f)
			if ni != item && items == nil {
				items = make([]Value, len(v.Items))
				copy(items, v.Items)
			}
			if items != nil {
				items[i] = ni
			}
		}
		if items == nil {
			return v
		}
		return NewSeq(items...)
	default:
		return v
	}
}

// closeAt binds the free occurrences of name in Var nodes of category to
// the scope at depth, shifting the loose indices of enclosing scopes
func closeAt(v Value, name Name, category string, depth int) Value {
	return transform(v, depth, func(v Value, depth int) (Value, bool) {
		switch v := v.(type) {
		case *Node:
			if r, ok := v.VarRef(); ok && v.Category == category && !r.IsBound() && r.Name == name {
				return NewNode(v.Category, v.Label, Ref{Name: name, Index: depth}), true
			}
		case Ref:
			if v.IsBound() && v.Index >= depth {
				return Ref{Name: v.Name, Index: v.Index + 1}, true
			}
		}
		return nil, false
	})
}

// OpenWithName replaces the references to the innermost enclosing scope of
// body by the free name n
func OpenWithName(body Value, n Name) Value {
	return transform(body, 0, func(v Value, depth int) (Value, bool) {
		r, ok := v.(Ref)
		if !ok || !r.IsBound() {
			return nil, false
		}
		switch {
		case r.Index == depth:
			return FreeRef(n), true
		case r.Index > depth:
			return Ref{Name: r.Name, Index: r.Index - 1}, true
		}
		return r, true
	})
}

// Instantiate replaces the Var nodes of category referring to the innermost
// enclosing scope of body by replacement
func Instantiate(body Value, category string, replacement Value) Value {
	return transform(body, 0, func(v Value, depth int) (Value, bool) {
		switch v := v.(type) {
		case *Node:
			if r, ok := v.VarRef(); ok && v.Category == category && r.Index == depth {
				return Shift(replacement, depth), true
			}
		case Ref:
			switch {
			case v.Index == depth:
				return FreeRef(v.Name), true
			case v.Index > depth:
				return Ref{Name: v.Name, Index: v.Index - 1}, true
			}
		}
		return nil, false
	})
}

// Shift adds by to the loose indices of v, those referring to scopes enclosing v
func Shift(v Value, by int) Value {
	if by == 0 {
		return v
	}
	return transform(v, 0, func(v Value, depth int) (Value, bool) {
		if r, ok := v.(Ref); ok {
			if r.IsBound() && r.Index >= depth {
				return Ref{Name: r.Name, Index: r.Index + by}, true
			}
			return r, true
		}
		return nil, false
	})
}

// Substitute replaces the free occurrences of name in Var nodes of the
// replacement's category. It is capture-avoiding since bound variables are indices.
func Substitute(v Value, name Name, replacement Value) Value {
	category := Category(replacement)
	return transform(v, 0, func(v Value, depth int) (Value, bool) {
		n, ok := v.(*Node)
		if !ok {
			return nil, false
		}
		if r, ok := n.VarRef(); ok && n.Category == category && !r.IsBound() && r.Name == name {
			return Shift(replacement, depth), true
		}
		return nil, false
	})
}

// FreeIn reports whether name occurs free in v
func FreeIn(name Name, v Value) bool {
	found := false
	transform(v, 0, func(v Value, _ int) (Value, bool) {
		if found {
			return v, true
		}
		if r, ok := v.(Ref); ok {
			found = !r.IsBound() && r.Name == name
			return r, true
		}
		return nil, false
	})
	return found
}

// FreeNames lists the free names of v in order of first occurrence
func FreeNames(v Value) []Name {
	var names []Name
	seen := map[Name]bool{}
	transform(v, 0, func(v Value, _ int) (Value, bool) {
		if r, ok := v.(Ref); ok {
			if !r.IsBound() && !seen[r.Name] {
				seen[r.Name] = true
				names = append(names, r.Name)
			}
			return r, true
		}
		return nil, false
	})
	return names
}

// Normalize flattens every node holding only a bag whose elements are nodes
// of the same label. Normalize(Normalize(v)) equals Normalize(v).
func Normalize(v Value) Value {
	switch v := v.(type) {
	case *Node:
		fields := make([]Value, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = Normalize(f)
		}
		if len(fields) == 1 {
			if bag, ok := fields[0].(*Bag); ok {
				flat := newBag(bag.set, emptyEntries, 0)
				for e := range bag.All() {
					flat = InsertFlat(flat, v.Label, e)
				}
				fields[0] = flat
			}
		}
		return NewNode(v.Category, v.Label, fields...)
	case *Scope:
		return ScopeFromRawParts(v.Binder, v.Category, Normalize(v.body))
	case *Bag:
		elems := make([]Value, 0, v.Len())
		for e := range v.All() {
			elems = append(elems, Normalize(e))
		}
		if v.set {
			return NewSet(elems...)
		}
		return NewBag(elems...)
	case *Seq:
		items := make([]Value, len(v.Items))
		for i, item := range v.Items {
			items[i] = Normalize(item)
		}
		return NewSeq(items...)
	default:
		return v
	}
}
