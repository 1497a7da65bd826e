package analysis

import (
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/hashicorp/go-set/v3"
	"github.com/samber/lo"
)

// ElementPattern is one structured element of a collection pattern, with its
// captures split into join keys, shared with other elements, and private ones
type ElementPattern struct {
	// Position is the index of the element in the collection pattern
	Position    int
	Pattern     theory.Expr
	Constructor string
	Category    string
	Captures    []CaptureInfo
	JoinKeys    []CaptureInfo
	Private     []CaptureInfo
}

// ProjectionSpec plans the match of several structured elements of one
// collection as a join of one extraction relation per element
type ProjectionSpec struct {
	// Parent is the root pattern holding the collection
	Parent          *theory.Apply
	Constructor     string
	Category        string
	Field           int
	Arg             int
	ElementCategory string
	Collection      *theory.CollectionPattern
	// SharedVariables are the join keys, in order of first occurrence
	SharedVariables []string
	Elements        []ElementPattern
	// BareElements are the positions of elements that are plain variables
	BareElements []int
	Rest         string
}

// collectionArg finds the collection pattern argument of a canonical root pattern
func collectionArg(g *theory.Grammar, expr theory.Expr) (*theory.Apply, int, *theory.CollectionPattern, bool) {
	apply, ok := expr.(*theory.Apply)
	if !ok {
		return nil, 0, nil, false
	}
	for i, arg := range apply.Args {
		if c, ok := arg.(*theory.CollectionPattern); ok {
			return apply, i, c, true
		}
	}
	return nil, 0, nil, false
}

// isStructured is true for element patterns that must be matched structurally:
// constructor patterns and names of nullary constructors
func isStructured(g *theory.Grammar, category string, elem theory.Expr) bool {
	switch elem := elem.(type) {
	case *theory.Apply:
		return true
	case *theory.Var:
		_, ok := g.Nullary(category, elem.Name)
		return ok
	case *theory.Literal:
		return true
	default:
		return false
	}
}

func elementCaptures(g *theory.Grammar, category string, elem theory.Expr) []CaptureInfo {
	apply, ok := elem.(*theory.Apply)
	if !ok {
		return nil
	}
	captures, _ := ExtractCaptures(g, apply)
	return captures
}

// sharedVariables returns the variables captured by two or more elements, in order of first occurrence
func sharedVariables(elements [][]CaptureInfo) []string {
	counts := map[string]int{}
	var order []string
	for _, captures := range elements {
		names := set.From(lo.Map(captures, func(c CaptureInfo, _ int) string { return c.Name }))
		for _, c := range captures {
			if !names.Contains(c.Name) {
				continue
			}
			names.Remove(c.Name)
			if counts[c.Name] == 0 {
				order = append(order, c.Name)
			}
			counts[c.Name]++
		}
	}
	return lo.Filter(order, func(name string, _ int) bool { return counts[name] > 1 })
}

// RequiresIndexedProjection reports whether the root collection pattern of expr
// matches two or more structured elements that share a variable.
// expr must be canonical (see Canonicalize).
func RequiresIndexedProjection(g *theory.Grammar, expr theory.Expr) bool {
	apply, i, coll, ok := collectionArg(g, expr)
	if !ok {
		return false
	}
	category := g.MustRule(apply.Constructor).Args()[i].Category
	var captures [][]CaptureInfo
	for _, elem := range coll.Elements {
		if _, ok := elem.(*theory.Apply); ok {
			captures = append(captures, elementCaptures(g, category, elem))
		}
	}
	return len(captures) >= 2 && len(sharedVariables(captures)) > 0
}

// AnalyzeCollectionPattern plans the match of the root collection pattern of expr.
// It returns nil when expr has no collection pattern, or when none of its
// elements is structured, in which case iterating the collection is enough.
//
// A plan is returned for a single structured element too, and for structured
// elements with no variable in common (SharedVariables is then empty): each
// structured element is still matched through its own extraction relation, so
// constructor patterns never appear inside the nested iteration of the generic
// compiler. RequiresIndexedProjection tells the plans that carry join keys apart.
// expr must be canonical (see Canonicalize).
func AnalyzeCollectionPattern(g *theory.Grammar, expr theory.Expr) *ProjectionSpec {
	apply, argIdx, coll, ok := collectionArg(g, expr)
	if !ok {
		return nil
	}
	rule := g.MustRule(apply.Constructor)
	info := rule.Args()[argIdx]
	spec := &ProjectionSpec{
		Parent:          apply,
		Constructor:     apply.Constructor,
		Category:        rule.Category,
		Field:           info.Field,
		Arg:             argIdx,
		ElementCategory: info.Category,
		Collection:      coll,
		Rest:            coll.Rest,
	}
	var all [][]CaptureInfo
	for pos, elem := range coll.Elements {
		if !isStructured(g, info.Category, elem) {
			spec.BareElements = append(spec.BareElements, pos)
			continue
		}
		captures := elementCaptures(g, info.Category, elem)
		constructor := ""
		switch elem := elem.(type) {
		case *theory.Apply:
			constructor = elem.Constructor
		case *theory.Var:
			constructor = elem.Name
		}
		spec.Elements = append(spec.Elements, ElementPattern{
			Position:    pos,
			Pattern:     elem,
			Constructor: constructor,
			Category:    info.Category,
			Captures:    captures,
		})
		all = append(all, captures)
	}
	if len(spec.Elements) == 0 {
		return nil
	}
	spec.SharedVariables = sharedVariables(all)
	shared := set.From(spec.SharedVariables)
	for i := range spec.Elements {
		e := &spec.Elements[i]
		for _, name := range spec.SharedVariables {
			if c, ok := lo.Find(e.Captures, func(c CaptureInfo) bool { return c.Name == name }); ok {
				e.JoinKeys = append(e.JoinKeys, c)
			}
		}
		e.Private = lo.Filter(e.Captures, func(c CaptureInfo, _ int) bool { return !shared.Contains(c.Name) })
	}
	analysisLogger.Debug("planned collection projection",
		"constructor", spec.Constructor,
		"elements", len(spec.Elements),
		"shared", spec.SharedVariables,
		"pattern", theory.Slog(expr))
	return spec
}
