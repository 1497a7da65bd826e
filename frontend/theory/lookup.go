package theory

import (
	"fmt"
	"slices"
	"strings"
)

// LookupError is raised (as a panic value) when a pattern names a constructor
// or category the grammar does not have. It always indicates a mismatch between
// a theory's patterns and its grammar.
type LookupError struct {
	Kind      string // "constructor" or "category"
	Name      string
	Available []string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%s '%s' not found in grammar; available: [%s]", e.Kind, e.Name, strings.Join(e.Available, ", "))
}

// Grammar indexes the grammar rules of a theory by label and category.
// It is read-only once built.
type Grammar struct {
	def        *TheoryDef
	rules      map[string]*GrammarRule
	byCategory map[string][]*GrammarRule
	categories []string
	natives    map[string]string
}

// NewGrammar indexes def, which should already be prepared (see TheoryDef.Prepare).
// When two rules share a label the first one wins.
func NewGrammar(def *TheoryDef) *Grammar {
	g := &Grammar{
		def:        def,
		rules:      make(map[string]*GrammarRule, len(def.Terms)),
		byCategory: map[string][]*GrammarRule{},
		natives:    map[string]string{},
	}
	for _, export := range def.Exports {
		g.categories = append(g.categories, export.Name)
		if export.Native != "" {
			g.natives[export.Name] = export.Native
		}
	}
	for _, r := range def.Terms {
		if _, exists := g.rules[r.Label]; exists {
			continue
		}
		g.rules[r.Label] = r
		g.byCategory[r.Category] = append(g.byCategory[r.Category], r)
	}
	return g
}

func (g *Grammar) Theory() *TheoryDef { return g.def }

// Categories returns the exported categories in declaration order
func (g *Grammar) Categories() []string { return g.categories }

func (g *Grammar) IsCategory(name string) bool {
	return slices.Contains(g.categories, name)
}

// Native returns the native scalar type backing a category, if any
func (g *Grammar) Native(category string) (string, bool) {
	n, ok := g.natives[category]
	return n, ok
}

// Rule looks up a constructor by label
func (g *Grammar) Rule(label string) (*GrammarRule, bool) {
	r, ok := g.rules[label]
	return r, ok
}

// MustRule looks up a constructor by label and panics with a *LookupError
// listing the available constructors if there is none.
func (g *Grammar) MustRule(label string) *GrammarRule {
	r, ok := g.rules[label]
	if !ok {
		panic(&LookupError{Kind: "constructor", Name: label, Available: g.Labels()})
	}
	return r
}

// Labels returns every constructor label, sorted
func (g *Grammar) Labels() []string {
	labels := make([]string, 0, len(g.rules))
	for label := range g.rules {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// RulesOf returns the constructors of a category in declaration order
func (g *Grammar) RulesOf(category string) []*GrammarRule {
	return g.byCategory[category]
}

// MustCategory panics with a *LookupError if category is not exported
func (g *Grammar) MustCategory(category string) {
	if !g.IsCategory(category) {
		panic(&LookupError{Kind: "category", Name: category, Available: slices.Clone(g.categories)})
	}
}

// Nullary returns the nullary constructor called name. If category is not empty,
// the constructor must belong to it.
func (g *Grammar) Nullary(category, name string) (*GrammarRule, bool) {
	r, ok := g.rules[name]
	if !ok || !r.IsNullary() {
		return nil, false
	}
	if category != "" && r.Category != category {
		return nil, false
	}
	return r, true
}

// VarRule returns the constructor holding identifier references for category
func (g *Grammar) VarRule(category string) (*GrammarRule, bool) {
	for _, r := range g.byCategory[category] {
		if r.IsVarVariant() {
			return r, true
		}
	}
	return nil, false
}

// LitRule returns the literal constructor of a native-backed category
func (g *Grammar) LitRule(category string) (*GrammarRule, bool) {
	for _, r := range g.byCategory[category] {
		if r.IsLiteral() {
			return r, true
		}
	}
	return nil, false
}

// CollectionField returns the collection field of a constructor, if it has one
func (g *Grammar) CollectionField(label string) (Field, bool) {
	r, ok := g.rules[label]
	if !ok {
		return Field{}, false
	}
	for _, f := range r.Fields() {
		if f.Kind == FieldCollection {
			return f, true
		}
	}
	return Field{}, false
}

// BinderCategories returns the categories that some binder in the grammar binds, sorted.
// These are the cross-category substitution targets.
func (g *Grammar) BinderCategories() []string {
	var cats []string
	for _, r := range g.def.Terms {
		for _, item := range r.Items {
			if b, ok := item.(Binder); ok && !slices.Contains(cats, b.Category) {
				cats = append(cats, b.Category)
			}
		}
	}
	slices.Sort(cats)
	return cats
}
