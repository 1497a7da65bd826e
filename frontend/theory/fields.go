package theory

import "fmt"

// FieldKind is the storage shape of one derived constructor field
type FieldKind int

const (
	// FieldTerm is a boxed recursive sub-term of Category
	FieldTerm FieldKind = iota + 1
	// FieldVar is an unboxed identifier reference
	FieldVar
	// FieldScope is a binder collapsed with its body: a placeholder and a boxed body
	FieldScope
	// FieldCollection holds elements of Category
	FieldCollection
	// FieldNative holds a native scalar
	FieldNative
)

func (k FieldKind) String() string {
	switch k {
	case FieldTerm:
		return "term"
	case FieldVar:
		return "var"
	case FieldScope:
		return "scope"
	case FieldCollection:
		return "collection"
	case FieldNative:
		return "native"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Field is one field of a constructor, derived from its items.
type Field struct {
	Index int
	Kind  FieldKind
	// Category is the sub-term category, the element category of a collection
	// or the body category of a scope
	Category string
	// BinderCategory is the category of the variable a scope binds
	BinderCategory string
	Collection     CollectionKind
	NativeType     string
	// Items are the item indexes folded into this field: one, or binder then body
	Items []int
}

// IsBoxed reports whether the field is stored behind an indirection in generated code.
// Var and collection fields are stored inline.
func (f Field) IsBoxed() bool {
	return f.Kind == FieldTerm || f.Kind == FieldScope
}

// Fields derives the field layout of a constructor. Terminals contribute nothing,
// each binder and its body collapse into one scope field at the binder's position,
// and every other argument item is its own field, in order.
func (r *GrammarRule) Fields() []Field {
	bodies := map[int]int{}
	for _, b := range r.Bindings {
		for _, body := range b.Bodies {
			bodies[body] = b.Binder
		}
	}
	var fields []Field
	for i, item := range r.Items {
		if _, isBody := bodies[i]; isBody {
			continue
		}
		f := Field{Index: len(fields), Items: []int{i}}
		switch item := item.(type) {
		case Terminal:
			continue
		case Binder:
			f.Kind = FieldScope
			f.BinderCategory = item.Category
			if b, ok := r.BindingAt(i); ok {
				f.Items = append(f.Items, b.Bodies...)
				if len(b.Bodies) > 0 {
					f.Category = itemCategory(r.Items[b.Bodies[0]])
				}
			}
		case NonTerminal:
			f.Category = item.Category
			f.Kind = FieldTerm
			if item.Category == VarCategory {
				f.Kind = FieldVar
			}
		case Collection:
			f.Kind = FieldCollection
			f.Category = item.Element
			f.Collection = item.Kind
		case Native:
			f.Kind = FieldNative
			f.NativeType = item.Type
		}
		fields = append(fields, f)
	}
	return fields
}

func itemCategory(item GrammarItem) string {
	switch item := item.(type) {
	case NonTerminal:
		return item.Category
	case Binder:
		return item.Category
	case Collection:
		return item.Element
	default:
		return ""
	}
}

// FieldIndexOfItem returns the field an item is stored in. A body item maps to
// the field of its binder.
func (r *GrammarRule) FieldIndexOfItem(item int) (int, bool) {
	for _, f := range r.Fields() {
		for _, i := range f.Items {
			if i == item {
				return f.Index, true
			}
		}
	}
	return 0, false
}

// ArgRole says what a pattern argument position denotes within its field
type ArgRole int

const (
	ArgPlain ArgRole = iota + 1
	ArgBinder
	ArgBody
)

// ArgInfo describes one pattern argument position of a constructor
type ArgInfo struct {
	Arg      int
	Item     int
	Field    int
	Role     ArgRole
	Category string
	// Collection is set when the argument is a collection item
	Collection CollectionKind
	// Partner is the argument index of the body for a binder, or of the binder for a body
	Partner int
}

// Args resolves every pattern argument position to its item, field and role
func (r *GrammarRule) Args() []ArgInfo {
	argItems := r.ArgItems()
	argOfItem := make(map[int]int, len(argItems))
	for a, item := range argItems {
		argOfItem[item] = a
	}
	infos := make([]ArgInfo, 0, len(argItems))
	for a, item := range argItems {
		field, _ := r.FieldIndexOfItem(item)
		info := ArgInfo{Arg: a, Item: item, Field: field, Role: ArgPlain, Category: itemCategory(r.Items[item]), Partner: -1}
		if c, ok := r.Items[item].(Collection); ok {
			info.Collection = c.Kind
		}
		if n, ok := r.Items[item].(Native); ok {
			info.Category = n.Type
		}
		if b, ok := r.BindingAt(item); ok {
			info.Role = ArgBinder
			if len(b.Bodies) > 0 {
				info.Partner = argOfItem[b.Bodies[0]]
			}
		} else if b, ok := r.BinderOf(item); ok {
			info.Role = ArgBody
			info.Partner = argOfItem[b.Binder]
		}
		infos = append(infos, info)
	}
	return infos
}

// FieldIndexOfArg returns the field a pattern argument position is stored in
func (r *GrammarRule) FieldIndexOfArg(arg int) (int, bool) {
	argItems := r.ArgItems()
	if arg < 0 || arg >= len(argItems) {
		return 0, false
	}
	return r.FieldIndexOfItem(argItems[arg])
}
