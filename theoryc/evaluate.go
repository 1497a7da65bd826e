package theoryc

import (
	"context"

	"github.com/cottand/theoryc/engine"
	"github.com/cottand/theoryc/parser"
	"github.com/cottand/theoryc/term"
	"github.com/pkg/errors"
)

// Ground is a ground term together with its category
type Ground struct {
	Category string
	Value    term.Value
}

// Term builds the ground term of category written in src, in the constructor notation of the theory
func (t *Theory) Term(category, src string) (Ground, error) {
	if t.grammar == nil {
		return Ground{}, errors.New("theory did not parse")
	}
	if !t.grammar.IsCategory(category) {
		return Ground{}, errors.Errorf("unknown category %s, the theory exports %v", category, t.grammar.Categories())
	}
	expr, errs := parser.ParseTerm(src)
	if errs.HasError() {
		return Ground{}, errors.Errorf("parsing term %q: %s", src, errs.Fatal()[0].Error())
	}
	v, err := term.FromExpr(t.grammar, category, expr)
	if err != nil {
		return Ground{}, errors.Wrapf(err, "building term %q", src)
	}
	return Ground{Category: category, Value: v}, nil
}

// Evaluate runs the rule program of the theory to its fixpoint, starting from terms
func (t *Theory) Evaluate(ctx context.Context, opts engine.Options, terms ...Ground) (*engine.Engine, error) {
	if t.program == nil {
		return nil, errors.Errorf("theory %s has no rule program", t.name)
	}
	en := engine.New(t.program, opts)
	for _, g := range terms {
		if err := en.AssertTerm(g.Category, g.Value); err != nil {
			return nil, errors.Wrapf(err, "asserting %s", g.Value)
		}
	}
	theorycLogger.Debug("evaluating", "theory", t.name, "terms", len(terms))
	if err := en.Run(ctx); err != nil {
		return en, err
	}
	theorycLogger.Info("reached fixpoint", "engine", en.String())
	return en, nil
}
