package parser

import (
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"slices"
)

// validate reports what the grammar of def gets wrong before it is indexed:
// labels declared twice and references to categories that are not exported
func validate(def *theory.TheoryDef) *tcerr.Errors {
	var errs *tcerr.Errors
	exported := map[string]bool{}
	for _, export := range def.Exports {
		exported[export.Name] = true
	}
	isCategory := func(name string) bool {
		return exported[name]
	}

	seen := map[string]bool{}
	for _, rule := range def.Terms {
		if seen[rule.Label] {
			errs = errs.With(tcerr.New(tcerr.NewDuplicateConstructor{Positioner: rule.Range, Label: rule.Label}))
		}
		seen[rule.Label] = true
		if !isCategory(rule.Category) {
			errs = errs.With(tcerr.New(tcerr.NewUnknownCategory{Positioner: rule.Range, Name: rule.Category, Where: "constructor " + rule.Label}))
		}
		for _, item := range rule.Items {
			var category string
			switch item := item.(type) {
			case theory.NonTerminal:
				if item.Category == theory.VarCategory {
					continue
				}
				category = item.Category
			case theory.Binder:
				category = item.Category
			case theory.Collection:
				category = item.Element
			default:
				continue
			}
			if !isCategory(category) {
				errs = errs.With(tcerr.New(tcerr.NewUnknownCategory{Positioner: item, Name: category, Where: "constructor " + rule.Label}))
			}
		}
	}

	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	for _, sem := range def.Semantics {
		if !seen[sem.Constructor] {
			errs = errs.With(tcerr.New(tcerr.NewLookupFailure{
				Positioner: sem.Range,
				Kind:       "constructor",
				Name:       sem.Constructor,
				Available:  labels,
			}))
		}
	}
	return errs
}
