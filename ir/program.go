// Package ir is the rule program emitted for a theory: relation declarations
// and monotone inference rules over runtime terms.
package ir

import (
	"fmt"
	"slices"
	"strings"
)

// RelationKind tells what a relation holds
type RelationKind int

const (
	// Membership is `<cat>(t)`: t is a known term
	Membership RelationKind = iota + 1
	// Equivalence is `eq_<cat>(a, b)`, an equivalence relation
	Equivalence
	// Rewrite is `rw_<cat>(a, b)`: a rewrites to b in one step
	Rewrite
	// Path is `path_<cat>(a, b)`: b is reachable from a
	Path
	// Contains is `<ctor>_contains(parent, elem)`, the elements of a collection constructor
	Contains
	// BindingProjection is `<ctor>_direct_congruence_proj(parent, binder, body)`
	BindingProjection
	// Extraction holds the captures of one element pattern of an indexed join
	Extraction
	// Env is `env_<name>(...)`, facts supplied by the user or asserted by rules
	Env
)

var kindNames = map[RelationKind]string{
	Membership:        "membership",
	Equivalence:       "equivalence",
	Rewrite:           "rewrite",
	Path:              "path",
	Contains:          "contains",
	BindingProjection: "binding projection",
	Extraction:        "extraction",
	Env:               "env",
}

func (k RelationKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("RelationKind(%d)", int(k))
}

// Column is one position of a relation. Category is a theory category, the
// Var pseudo-category for references, or a native type.
type Column struct {
	Name     string
	Category string
}

type Relation struct {
	Name    string
	Kind    RelationKind
	Columns []Column
}

// Arity is the number of columns
func (r *Relation) Arity() int {
	return len(r.Columns)
}

// IsEquivalence reports whether the relation is closed under reflexivity,
// symmetry and transitivity by the engine
func (r *Relation) IsEquivalence() bool {
	return r.Kind == Equivalence
}

func (r *Relation) Signature() string {
	cats := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		cats[i] = c.Category
	}
	return strings.Join(cats, ", ")
}

// ConflictError is returned when a relation is declared twice with different columns
type ConflictError struct {
	Relation string
	Existing string
	Wanted   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("relation %s declared as (%s) and as (%s)", e.Relation, e.Existing, e.Wanted)
}

// Program is the rule program of one theory
type Program struct {
	Theory     string
	Categories []string
	relations  []*Relation
	byName     map[string]*Relation
	Rules      []*Rule
}

func NewProgram(theory string, categories []string) *Program {
	return &Program{Theory: theory, Categories: categories, byName: map[string]*Relation{}}
}

// Declare adds a relation, or returns the one already declared with the same name.
// Declaring a name again with different column categories is a *ConflictError.
func (p *Program) Declare(r *Relation) (*Relation, error) {
	if existing, ok := p.byName[r.Name]; ok {
		if existing.Signature() != r.Signature() || existing.Kind != r.Kind {
			return existing, &ConflictError{Relation: r.Name, Existing: existing.Signature(), Wanted: r.Signature()}
		}
		return existing, nil
	}
	p.byName[r.Name] = r
	p.relations = append(p.relations, r)
	return r, nil
}

// Relation looks up a declared relation
func (p *Program) Relation(name string) (*Relation, bool) {
	r, ok := p.byName[name]
	return r, ok
}

// Relations are returned in declaration order
func (p *Program) Relations() []*Relation {
	return p.relations
}

// RelationsOf returns the relations of one kind, in declaration order
func (p *Program) RelationsOf(kind RelationKind) []*Relation {
	var res []*Relation
	for _, r := range p.relations {
		if r.Kind == kind {
			res = append(res, r)
		}
	}
	return res
}

// Add appends rules to the program
func (p *Program) Add(rules ...*Rule) {
	p.Rules = append(p.Rules, rules...)
}

// RulesFor returns the rules with a head in relation
func (p *Program) RulesFor(relation string) []*Rule {
	var res []*Rule
	for _, r := range p.Rules {
		if slices.ContainsFunc(r.Head, func(h *Atom) bool { return h.Relation == relation }) {
			res = append(res, r)
		}
	}
	return res
}
