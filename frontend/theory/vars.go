package theory

import "github.com/cottand/theoryc/util"

// PatternVariables returns the variable names occurring in expr, in order of first
// occurrence. Names of nullary constructors known to g are skipped when g is not nil.
func PatternVariables(g *Grammar, expr Expr) []string {
	var names []string
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		if g != nil {
			if _, isNullary := g.Nullary("", name); isNullary {
				return
			}
		}
		seen[name] = true
		names = append(names, name)
	}
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *Var:
			add(e.Name)
		case *Apply:
			for _, arg := range e.Args {
				walk(arg)
			}
		case *Subst:
			walk(e.Term)
			add(e.Var)
			walk(e.Replacement)
		case *CollectionPattern:
			for _, elem := range e.Elements {
				walk(elem)
			}
			add(e.Rest)
		}
	}
	walk(expr)
	return names
}

// FreeVariables returns the sorted, deduplicated variables of expr
func FreeVariables(g *Grammar, expr Expr) []string {
	return util.SortedUnique(PatternVariables(g, expr))
}

// Occurrences counts how many times each variable name occurs in expr
func Occurrences(expr Expr) map[string]int {
	counts := map[string]int{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch e := e.(type) {
		case *Var:
			counts[e.Name]++
		case *Apply:
			for _, arg := range e.Args {
				walk(arg)
			}
		case *Subst:
			walk(e.Term)
			counts[e.Var]++
			walk(e.Replacement)
		case *CollectionPattern:
			for _, elem := range e.Elements {
				walk(elem)
			}
			if e.Rest != "" {
				counts[e.Rest]++
			}
		}
	}
	walk(expr)
	return counts
}
