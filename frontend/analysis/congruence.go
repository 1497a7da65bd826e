package analysis

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/samber/lo"
)

// CongruenceLHS is the flat shape of a congruence's left hand side
type CongruenceLHS struct {
	Constructor string
	// Field is the field holding the premise variable: the collection field if
	// the variable is a lone collection element
	Field        int
	InCollection bool
	// Vars are the top-level pattern variables, in order
	Vars []string
}

// ParseCongruenceLHS reads a congruence left hand side whose arguments are all
// variables or collection patterns of variables. It returns nil when pattern is
// not an Apply, when an argument is itself an Apply, or when sourceVar is not
// a direct argument nor a lone collection element.
func ParseCongruenceLHS(g *theory.Grammar, pattern theory.Expr, sourceVar string) *CongruenceLHS {
	apply, ok := pattern.(*theory.Apply)
	if !ok {
		return nil
	}
	rule := g.MustRule(apply.Constructor)
	args := rule.Args()
	res := &CongruenceLHS{Constructor: apply.Constructor, Field: -1}
	for i, arg := range apply.Args {
		if i >= len(args) {
			return nil
		}
		switch arg := arg.(type) {
		case *theory.Apply:
			return nil
		case *theory.Var:
			res.Vars = append(res.Vars, arg.Name)
			if arg.Name == sourceVar {
				res.Field = args[i].Field
			}
		case *theory.CollectionPattern:
			for _, elem := range arg.Elements {
				if v, ok := elem.(*theory.Var); ok {
					res.Vars = append(res.Vars, v.Name)
				}
			}
			if arg.Rest != "" {
				res.Vars = append(res.Vars, arg.Rest)
			}
			if isLoneElement(arg, sourceVar) {
				res.Field = args[i].Field
				res.InCollection = true
			}
		}
	}
	if res.Field < 0 {
		return nil
	}
	return res
}

func isLoneElement(c *theory.CollectionPattern, name string) bool {
	if len(c.Elements) != 1 {
		return false
	}
	v, ok := c.Elements[0].(*theory.Var)
	return ok && v.Name == name
}

// Congruence is the classification of a congruence rule,
// either a *CollectionCongruence or a *RegularCongruence
type Congruence interface {
	congruence()
}

// CollectionCongruence lifts a rewrite of one element of a collection field
type CollectionCongruence struct {
	Constructor     string
	ParentCategory  string
	ElementCategory string
	Collection      theory.CollectionKind
	Field           int
	// Arg is the argument position of the collection pattern
	Arg    int
	Source string
	Target string
	// Rest is the captured remainder of the collection, if any
	Rest string
}

// RegularCongruence lifts a rewrite of a field of a constructor. When IsBinding
// is set the field is a scope and the rewritten term is its body.
type RegularCongruence struct {
	Constructor   string
	Category      string
	Field         int
	Arg           int
	FieldCategory string
	IsBinding     bool
	Source        string
	Target        string
}

func (*CollectionCongruence) congruence() {}
func (*RegularCongruence) congruence()    {}

// ClassifyCongruence decides which shape of congruence rule is. rule.Left must be canonical (see Canonicalize).
// A premise variable that does not occur as a direct argument nor as a lone collection
// element makes the rule malformed. The returned error may be a warning (see tcerr.Severity)
// for valid shapes that no generator supports.
func ClassifyCongruence(g *theory.Grammar, rule *theory.RewriteRule) (Congruence, tcerr.TheoryError) {
	if rule.Premise == nil {
		panic("ClassifyCongruence called on a base rewrite")
	}
	source := rule.Premise.Source
	malformed := func(constructor, reason string) tcerr.TheoryError {
		return tcerr.New(tcerr.NewMalformedPattern{Positioner: rule.Range, Rule: theory.RuleString(rule), Constructor: constructor, Reason: reason})
	}
	apply, ok := rule.Left.(*theory.Apply)
	if !ok {
		return nil, malformed("", "the left hand side of a congruence must be a constructor pattern")
	}
	if n := theory.Occurrences(rule.Left)[source]; n != 1 {
		return nil, malformed(apply.Constructor, fmt.Sprintf("premise variable '%s' must occur exactly once in the left hand side, found %d", source, n))
	}
	parent := g.MustRule(apply.Constructor)
	args := parent.Args()
	fields := parent.Fields()

	for i, arg := range apply.Args {
		if i >= len(args) {
			break
		}
		switch arg := arg.(type) {
		case *theory.Var:
			if arg.Name != source {
				continue
			}
			info := args[i]
			if info.Role == theory.ArgBinder {
				return nil, malformed(apply.Constructor, fmt.Sprintf("premise variable '%s' is a binder, not a term", source))
			}
			f := fields[info.Field]
			if f.Kind != theory.FieldTerm && f.Kind != theory.FieldScope {
				return nil, malformed(apply.Constructor, fmt.Sprintf("premise variable '%s' is in a %s field", source, f.Kind))
			}
			return &RegularCongruence{
				Constructor:   apply.Constructor,
				Category:      parent.Category,
				Field:         info.Field,
				Arg:           i,
				FieldCategory: f.Category,
				IsBinding:     f.Kind == theory.FieldScope,
				Source:        source,
				Target:        rule.Premise.Target,
			}, nil

		case *theory.CollectionPattern:
			hasSource := lo.ContainsBy(arg.Elements, func(e theory.Expr) bool {
				v, ok := e.(*theory.Var)
				return ok && v.Name == source
			})
			if !hasSource {
				continue
			}
			if !isLoneElement(arg, source) {
				return nil, tcerr.New(tcerr.NewUnsupportedShape{
					Positioner:  rule.Range,
					Rule:        theory.RuleString(rule),
					Constructor: apply.Constructor,
					Reason:      "a collection congruence must match exactly one element",
				})
			}
			f := fields[args[i].Field]
			return &CollectionCongruence{
				Constructor:     apply.Constructor,
				ParentCategory:  parent.Category,
				ElementCategory: f.Category,
				Collection:      f.Collection,
				Field:           f.Index,
				Arg:             i,
				Source:          source,
				Target:          rule.Premise.Target,
				Rest:            arg.Rest,
			}, nil
		}
	}
	return nil, malformed(apply.Constructor, fmt.Sprintf("premise variable '%s' is nested too deep; it must be a direct argument or a lone collection element", source))
}
