package ir

import "go/token"

// Rule derives its Head atoms for every way its Body clauses can be satisfied,
// evaluated left to right
type Rule struct {
	// Origin describes what the rule was generated from, for diagnostics
	Origin string
	Head   []*Atom
	Body   []Clause
}

// Clause is one step of a rule body. Each clause filters the bindings it is
// given, and may bind new variables.
type Clause interface {
	clauseNode()
}

// Atom matches the facts of Relation. An argument that is a *Ref to a variable
// not bound yet binds it; every other argument is evaluated and compared.
// In a rule head every argument is evaluated.
type Atom struct {
	Relation string
	Args     []Expr
}

// Destructure binds the fields of Subject if it is a node labeled Label.
// Fields with an empty name are ignored. A field name that is already bound is compared.
type Destructure struct {
	Subject string
	Label   string
	Fields  []string
}

// ScopeParts reads the raw placeholder and body of the scope in Scope
// without allocating names. Binder is bound to a free reference to the placeholder.
type ScopeParts struct {
	Scope  string
	Binder string
	Body   string
}

// Iterate binds Elem to each occurrence of each element of the collection in Bag.
// Occurrence, if set, is bound to the occurrence index within the element's multiplicity.
type Iterate struct {
	Bag        string
	Elem       string
	Occurrence string
}

// Guard keeps the bindings for which Cond evaluates to true
type Guard struct {
	Cond Expr
}

// Let binds Var to the value of Value. The bindings are dropped if Value cannot be evaluated.
type Let struct {
	Var   string
	Value Expr
}

func (*Atom) clauseNode()        {}
func (*Destructure) clauseNode() {}
func (*ScopeParts) clauseNode()  {}
func (*Iterate) clauseNode()     {}
func (*Guard) clauseNode()       {}
func (*Let) clauseNode()         {}

// Expr computes a value from bound variables
type Expr interface {
	exprNode()
}

// Ref is the value of a variable
type Ref struct {
	Name string
}

// Wildcard matches anything in an Atom argument
type Wildcard struct{}

// Construct builds a node
type Construct struct {
	Category string
	Label    string
	Args     []Expr
}

// VarNode builds the Var variant node Label of Category referring to the free
// reference Name evaluates to
type VarNode struct {
	Category string
	Label    string
	Name     Expr
}

// BagOf builds the collection of a node labeled Label from Base, if set, and
// Elems. Elements that are themselves nodes labeled Label are merged in rather than nested.
type BagOf struct {
	Label string
	Set   bool
	Base  Expr
	Elems []Expr
}

// BagMinus removes one occurrence per element of Elems from Bag. It cannot
// be evaluated when Bag holds fewer occurrences.
type BagMinus struct {
	Bag   Expr
	Elems []Expr
}

// ScopeRaw rebuilds a scope from a placeholder and a body read with ScopeParts, without closing the body again
type ScopeRaw struct {
	Category string
	Binder   Expr
	Body     Expr
}

// ScopeClose builds a scope binding the free occurrences of Binder in Body
type ScopeClose struct {
	Category string
	Binder   Expr
	Body     Expr
}

// Open replaces the loose references of a raw Body to its scope by the free reference Binder
type Open struct {
	Body   Expr
	Binder Expr
}

// Instantiate replaces the loose references of a raw Body to its scope by Replacement
type Instantiate struct {
	Category    string
	Body        Expr
	Replacement Expr
}

// Substitute replaces the free reference Name in Term by Replacement
type Substitute struct {
	Term        Expr
	Name        Expr
	Replacement Expr
}

// Equal compares values structurally
type Equal struct {
	A, B Expr
}

// NotEqual is the negation of Equal
type NotEqual struct {
	A, B Expr
}

// Fresh is true when the free reference Name does not occur in In
type Fresh struct {
	Name Expr
	In   Expr
}

// Distinct is true unless A and B are the same occurrence of the same element,
// as bound by Iterate
type Distinct struct {
	A, AOccurrence Expr
	B, BOccurrence Expr
}

// FreshName allocates a new free reference, for binders a construction introduces
type FreshName struct {
	Hint string
}

// IntLit is a native integer constant
type IntLit struct {
	Value int64
}

// Arith applies Op, one of token.ADD, SUB, MUL and QUO, to two integers.
// It cannot be evaluated when dividing by zero.
type Arith struct {
	Op   token.Token
	A, B Expr
}

func (*Ref) exprNode()         {}
func (Wildcard) exprNode()     {}
func (*Construct) exprNode()   {}
func (*VarNode) exprNode()     {}
func (*BagOf) exprNode()       {}
func (*BagMinus) exprNode()    {}
func (*ScopeRaw) exprNode()    {}
func (*ScopeClose) exprNode()  {}
func (*Open) exprNode()        {}
func (*Instantiate) exprNode() {}
func (*Substitute) exprNode()  {}
func (*Equal) exprNode()       {}
func (*NotEqual) exprNode()    {}
func (*Fresh) exprNode()       {}
func (*Distinct) exprNode()    {}
func (*FreshName) exprNode()   {}
func (*IntLit) exprNode()      {}
func (*Arith) exprNode()       {}

// R is shorthand for a variable reference
func R(name string) *Ref {
	return &Ref{Name: name}
}

// NewAtom builds an atom over variables
func NewAtom(relation string, vars ...string) *Atom {
	args := make([]Expr, len(vars))
	for i, v := range vars {
		if v == "_" {
			args[i] = Wildcard{}
		} else {
			args[i] = R(v)
		}
	}
	return &Atom{Relation: relation, Args: args}
}

// ExprVars lists the variables e reads
func ExprVars(e Expr) []string {
	var res []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *Ref:
			res = append(res, e.Name)
		case *Construct:
			for _, a := range e.Args {
				walk(a)
			}
		case *VarNode:
			walk(e.Name)
		case *BagOf:
			if e.Base != nil {
				walk(e.Base)
			}
			for _, a := range e.Elems {
				walk(a)
			}
		case *BagMinus:
			walk(e.Bag)
			for _, a := range e.Elems {
				walk(a)
			}
		case *ScopeRaw:
			walk(e.Binder)
			walk(e.Body)
		case *ScopeClose:
			walk(e.Binder)
			walk(e.Body)
		case *Open:
			walk(e.Body)
			walk(e.Binder)
		case *Instantiate:
			walk(e.Body)
			walk(e.Replacement)
		case *Substitute:
			walk(e.Term)
			walk(e.Name)
			walk(e.Replacement)
		case *Equal:
			walk(e.A)
			walk(e.B)
		case *NotEqual:
			walk(e.A)
			walk(e.B)
		case *Fresh:
			walk(e.Name)
			walk(e.In)
		case *Arith:
			walk(e.A)
			walk(e.B)
		case *Distinct:
			walk(e.A)
			walk(e.AOccurrence)
			walk(e.B)
			walk(e.BOccurrence)
		}
	}
	walk(e)
	return res
}
