// Package analysis inspects rewrite and equation patterns against a grammar:
// which variables they capture and from where, which shape of congruence a
// rule is, and how a multi-element collection match decomposes into an indexed join.
package analysis

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/internal/log"
)

var analysisLogger = log.DefaultLogger.With("section", "analysis")

// CaptureInfo describes one variable captured by a constructor pattern
type CaptureInfo struct {
	Name     string
	Category string
	// FieldIndex is the field of the pattern's root constructor the variable
	// is found under. A binder and its body share their scope's field index.
	FieldIndex int
	IsBinder   bool
	// InCollection is set for variables matched as elements of the collection field
	InCollection bool
}

// ExtractCaptures lists the variables captured by apply, in order of first
// occurrence. Variables under nested constructors are included with the field index
// of the root argument they are nested in; nested reports whether there were any.
// Names of nullary constructors are not captures. Collection rests are not captures.
//
// ExtractCaptures panics with a *theory.LookupError if a constructor is not in the grammar.
func ExtractCaptures(g *theory.Grammar, apply *theory.Apply) (captures []CaptureInfo, nested bool) {
	seen := map[string]bool{}
	add := func(c CaptureInfo) {
		if seen[c.Name] {
			return
		}
		seen[c.Name] = true
		captures = append(captures, c)
	}
	rule := g.MustRule(apply.Constructor)
	args := rule.Args()
	for i, arg := range apply.Args {
		if i >= len(args) {
			break
		}
		info := args[i]
		switch arg := arg.(type) {
		case *theory.Var:
			if _, isNullary := g.Nullary(info.Category, arg.Name); isNullary {
				continue
			}
			add(CaptureInfo{Name: arg.Name, Category: info.Category, FieldIndex: info.Field, IsBinder: info.Role == theory.ArgBinder})
		case *theory.CollectionPattern:
			for _, elem := range arg.Elements {
				switch elem := elem.(type) {
				case *theory.Var:
					if _, isNullary := g.Nullary(info.Category, elem.Name); isNullary {
						continue
					}
					add(CaptureInfo{Name: elem.Name, Category: info.Category, FieldIndex: info.Field, InCollection: true})
				case *theory.Apply:
					nested = true
					inner, _ := ExtractCaptures(g, elem)
					for _, c := range inner {
						c.FieldIndex = info.Field
						c.InCollection = true
						add(c)
					}
				}
			}
		case *theory.Apply:
			nested = true
			inner, _ := ExtractCaptures(g, arg)
			for _, c := range inner {
				c.FieldIndex = info.Field
				add(c)
			}
		}
	}
	return captures, nested
}

// ExtractCategory resolves the category of a constructor pattern, or of a
// collection pattern with an explicit constructor. For any other expression it returns false.
//
// ExtractCategory panics with a *theory.LookupError if the constructor is not in the grammar.
func ExtractCategory(g *theory.Grammar, expr theory.Expr) (string, bool) {
	switch e := expr.(type) {
	case *theory.Apply:
		return g.MustRule(e.Constructor).Category, true
	case *theory.CollectionPattern:
		if e.Constructor == "" {
			return "", false
		}
		return g.MustRule(e.Constructor).Category, true
	case *theory.Var:
		if r, ok := g.Nullary("", e.Name); ok {
			return r.Category, true
		}
		return "", false
	default:
		return "", false
	}
}

// Canonicalize returns a copy of expr where every collection pattern is the
// argument of an Apply of its constructor. A collection pattern without a
// constructor takes the one of the Apply it is an argument of, or, in a term
// position, the collection constructor of the expected category: `(PNew x {P, Q})`
// becomes `(PNew x (PPar {P, Q}))`. category is the expected category of expr,
// and may be empty if unknown.
//
// Canonicalize panics with a *theory.LookupError if a constructor is not in the grammar.
func Canonicalize(g *theory.Grammar, expr theory.Expr, category string) (theory.Expr, tcerr.TheoryError) {
	var err tcerr.TheoryError
	fail := func(at theory.Positioner, reason string) {
		if err == nil {
			err = tcerr.New(tcerr.NewMalformedPattern{Positioner: theory.RangeOf(at), Category: category, Reason: reason})
		}
	}
	var walk func(e theory.Expr, category string) theory.Expr
	walkCollection := func(e *theory.CollectionPattern, label string) *theory.CollectionPattern {
		res := *e
		res.Constructor = label
		res.Elements = make([]theory.Expr, len(e.Elements))
		elemCategory := ""
		if f, ok := g.CollectionField(label); ok {
			elemCategory = f.Category
		}
		for i, elem := range e.Elements {
			if _, isCollection := elem.(*theory.CollectionPattern); isCollection {
				fail(elem, "nested collection pattern "+theory.ExprString(elem))
			}
			res.Elements[i] = walk(elem, elemCategory)
		}
		return &res
	}
	walk = func(e theory.Expr, category string) theory.Expr {
		switch e := e.(type) {
		case *theory.Apply:
			rule := g.MustRule(e.Constructor)
			args := rule.Args()
			if len(e.Args) != len(args) {
				fail(e, fmt.Sprintf("constructor '%s' takes %d arguments, got %d", e.Constructor, len(args), len(e.Args)))
			}
			res := *e
			res.Args = make([]theory.Expr, len(e.Args))
			for i, arg := range e.Args {
				if i >= len(args) {
					res.Args[i] = arg
					continue
				}
				if coll, ok := arg.(*theory.CollectionPattern); ok && args[i].Collection != 0 {
					label := coll.Constructor
					if label == "" {
						label = e.Constructor
					}
					res.Args[i] = walkCollection(coll, label)
					continue
				}
				res.Args[i] = walk(arg, args[i].Category)
			}
			return &res
		case *theory.CollectionPattern:
			label := e.Constructor
			if label == "" {
				label = collectionConstructor(g, category)
			}
			if label == "" {
				fail(e, "collection pattern "+theory.ExprString(e)+" has no constructor and none can be inferred")
				return e
			}
			if _, ok := g.CollectionField(g.MustRule(label).Label); !ok {
				fail(e, "constructor '"+label+"' has no collection field")
				return e
			}
			return &theory.Apply{Range: e.Range, Constructor: label, Args: []theory.Expr{walkCollection(e, label)}}
		case *theory.Subst:
			res := *e
			res.Term = walk(e.Term, category)
			res.Replacement = walk(e.Replacement, "")
			return &res
		default:
			return e
		}
	}
	return walk(expr, category), err
}

// collectionConstructor returns the constructor of category whose only field is a collection
func collectionConstructor(g *theory.Grammar, category string) string {
	for _, r := range g.RulesOf(category) {
		if fields := r.Fields(); len(fields) == 1 && fields[0].Kind == theory.FieldCollection {
			return r.Label
		}
	}
	return ""
}
