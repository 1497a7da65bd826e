// Package engine evaluates an ir.Program to its least fixpoint, semi-naively:
// after the first round, a rule is only re-evaluated against the facts derived
// in the round before.
package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/cottand/theoryc/internal/log"
	"github.com/cottand/theoryc/ir"
	"github.com/cottand/theoryc/term"
	"github.com/pkg/errors"
)

var engineLogger = log.DefaultLogger.With("section", "engine")

// ErrIterationLimit is returned by Run when Options.MaxIterations rounds did not reach the fixpoint
var ErrIterationLimit = errors.New("iteration limit reached before fixpoint")

type Options struct {
	// MaxIterations bounds the number of rounds, unbounded if zero
	MaxIterations int
}

type Engine struct {
	prog       *ir.Program
	opts       Options
	rels       map[string]*relation
	iterations int
	derived    int
}

func New(prog *ir.Program, opts Options) *Engine {
	en := &Engine{prog: prog, opts: opts, rels: map[string]*relation{}}
	for _, r := range prog.Relations() {
		en.rels[r.Name] = newRelation(r)
	}
	return en
}

// Assert adds a fact before running
func (en *Engine) Assert(relation string, values ...term.Value) error {
	rel, ok := en.rels[relation]
	if !ok {
		return errors.Errorf("unknown relation %s", relation)
	}
	if rel.decl.Arity() != len(values) {
		return errors.Errorf("relation %s has %d columns, got %d values", relation, rel.decl.Arity(), len(values))
	}
	rel.insert(values)
	return nil
}

// AssertTerm adds t to the membership relation of category
func (en *Engine) AssertTerm(category string, t term.Value) error {
	rel, err := en.membership(category)
	if err != nil {
		return err
	}
	return en.Assert(rel, term.Normalize(t))
}

func (en *Engine) relationOf(kind ir.RelationKind, category string) (string, error) {
	for _, r := range en.prog.RelationsOf(kind) {
		if r.Columns[0].Category == category {
			return r.Name, nil
		}
	}
	return "", errors.Errorf("no %s relation for category %s", kind, category)
}

func (en *Engine) membership(category string) (string, error) {
	return en.relationOf(ir.Membership, category)
}

// Run derives facts until no rule derives anything new, ctx is done, or the iteration limit is reached
func (en *Engine) Run(ctx context.Context) error {
	for _, rel := range en.rels {
		rel.advance()
	}
	first := true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if en.opts.MaxIterations > 0 && en.iterations >= en.opts.MaxIterations {
			return errors.Wrapf(ErrIterationLimit, "after %d iterations", en.iterations)
		}
		en.iterations++
		before := en.derived
		for _, rule := range en.prog.Rules {
			if err := en.evalRound(rule, first); err != nil {
				return err
			}
		}
		first = false
		changed := false
		for _, rel := range en.rels {
			rel.advance()
			changed = changed || len(rel.delta) > 0
		}
		engineLogger.Debug("round done", "iteration", en.iterations, "derived", en.derived-before)
		if !changed {
			return nil
		}
	}
}

// evalRound evaluates rule once per body atom whose relation has new facts,
// that atom reading only the new facts. The first round reads everything.
func (en *Engine) evalRound(rule *ir.Rule, first bool) error {
	if first {
		return en.evalRule(rule, -1)
	}
	for i, c := range rule.Body {
		a, ok := c.(*ir.Atom)
		if !ok || len(en.rels[a.Relation].delta) == 0 {
			continue
		}
		if err := en.evalRule(rule, i); err != nil {
			return err
		}
	}
	return nil
}

// Iterations is the number of rounds the last Run took
func (en *Engine) Iterations() int {
	return en.iterations
}

// Facts lists the facts of relation, sorted
func (en *Engine) Facts(relation string) ([][]term.Value, error) {
	rel, ok := en.rels[relation]
	if !ok {
		return nil, errors.Errorf("unknown relation %s", relation)
	}
	var res [][]term.Value
	for _, f := range rel.all() {
		res = append(res, f.values)
	}
	return res, nil
}

// Size is the number of facts of every relation
func (en *Engine) Size() map[string]int {
	res := make(map[string]int, len(en.rels))
	for name, rel := range en.rels {
		res[name] = rel.size()
	}
	return res
}

// Successors lists the terms t rewrites to in one step, sorted by key
func (en *Engine) Successors(category string, t term.Value) ([]term.Value, error) {
	name, err := en.relationOf(ir.Rewrite, category)
	if err != nil {
		return nil, err
	}
	t = term.Normalize(t)
	var res []term.Value
	for _, f := range en.rels[name].lookup([]term.Value{t, nil}) {
		if f.values[0].Key() == t.Key() {
			res = append(res, f.values[1])
		}
	}
	slices.SortFunc(res, func(a, b term.Value) int {
		switch {
		case a.Key() < b.Key():
			return -1
		case a.Key() > b.Key():
			return 1
		}
		return 0
	})
	return res, nil
}

// Equivalent reports whether a and b are known and equivalent terms of category
func (en *Engine) Equivalent(category string, a, b term.Value) (bool, error) {
	name, err := en.relationOf(ir.Equivalence, category)
	if err != nil {
		return false, err
	}
	return en.rels[name].uf.same(term.Normalize(a), term.Normalize(b)), nil
}

func (en *Engine) String() string {
	return fmt.Sprintf("engine(%s, %d iterations, %d facts derived)", en.prog.Theory, en.iterations, en.derived)
}
