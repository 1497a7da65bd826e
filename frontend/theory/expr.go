package theory

// Expr is a pattern or construction expression.
// Patterns are the left hand sides of equations and rewrites, constructions are their right hand sides.
type Expr interface {
	Positioner
	exprNode()
}

// Var is a pattern variable, or the name of a nullary constructor
type Var struct {
	Range
	Name string
}

// Apply is a constructor applied to one argument per non-terminal item of its rule
type Apply struct {
	Range
	Constructor string
	Args        []Expr
}

// Subst replaces the variable Var by Replacement in Term.
// It only appears in constructions.
type Subst struct {
	Range
	Term        Expr
	Var         string
	Replacement Expr
}

// CollectionPattern matches (or builds) the elements of a collection field.
// When Constructor is empty, it is the constructor of the enclosing Apply.
// Rest, if set, captures (or splices in) the remaining elements.
type CollectionPattern struct {
	Range
	Constructor string
	Elements    []Expr
	Rest        string
}

// Literal is a native integer value
type Literal struct {
	Range
	Value int64
}

func (*Var) exprNode()               {}
func (*Apply) exprNode()             {}
func (*Subst) exprNode()             {}
func (*CollectionPattern) exprNode() {}
func (*Literal) exprNode()           {}

// Condition guards a rewrite rule
type Condition interface {
	Positioner
	conditionNode()
}

// Freshness requires that the identifier bound to Var does not occur free
// in the term (or collection rest) bound to Term.
type Freshness struct {
	Range
	Var  string
	Term string
}

// EnvQuery requires a fact in the environment relation env_<Relation>
type EnvQuery struct {
	Range
	Relation string
	Args     []string
}

func (Freshness) conditionNode() {}
func (EnvQuery) conditionNode()  {}

// EnvAction asserts a fact in env_<Relation> when its rule fires
type EnvAction struct {
	Range
	Relation string
	Args     []Expr
}

// Equation states that whenever Left matches a term (subject to Freshness),
// the term built from Right is equal to it.
type Equation struct {
	Range
	Index     int
	Freshness []Freshness
	Left      Expr
	Right     Expr
}

// Premise is the `if Source => Target` part of a congruence rule
type Premise struct {
	Range
	Source string
	Target string
}

// RewriteRule is a base rewrite when Premise is nil, and a congruence rule otherwise.
type RewriteRule struct {
	Range
	Index      int
	Conditions []Condition
	Premise    *Premise
	Left       Expr
	Right      Expr
	Actions    []EnvAction
}

// IsCongruence reports whether the rule lifts a sub-term rewrite
func (r *RewriteRule) IsCongruence() bool {
	return r.Premise != nil
}
