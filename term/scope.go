package term

// Scope is a binder collapsed with its body. The body refers to the binder
// through Ref indices rather than through Binder, which is only a placeholder.
type Scope struct {
	Binder Name
	// Category is the category of the variable the scope binds
	Category string
	body     Value
	key      string
}

// NewScope closes body over the free occurrences of binder in Var nodes of category
func NewScope(binder Name, category string, body Value) *Scope {
	return ScopeFromRawParts(binder, category, closeAt(body, binder, category, 0))
}

// ScopeFromRawParts rebuilds a scope from parts read with RawParts without
// closing body again. body must already refer to the binder by index.
func ScopeFromRawParts(binder Name, category string, body Value) *Scope {
	return &Scope{Binder: binder, Category: category, body: body, key: "\\." + body.Key()}
}

// RawParts returns the placeholder and the body as stored. It never allocates
// names, so repeated reads of one scope give identical results.
// Occurrences of the binder in the body are bound references.
func (s *Scope) RawParts() (Name, Value) {
	return s.Binder, s.body
}

// Unbind opens the scope with a freshly allocated name
func (s *Scope) Unbind() (Name, Value) {
	fresh := Fresh(s.Binder.Text)
	return fresh, OpenWithName(s.body, fresh)
}

// Instantiate replaces the binder by a term of the binder's category
func (s *Scope) Instantiate(replacement Value) Value {
	return Instantiate(s.body, s.Category, replacement)
}

func (s *Scope) Key() string { return s.key }

func (s *Scope) String() string {
	return "\\" + s.Binder.String() + ". " + s.body.String()
}
