package ir_test

import (
	"github.com/cottand/theoryc/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDeclare(t *testing.T) {
	p := ir.NewProgram("T", []string{"Proc"})
	proc := &ir.Relation{Name: "proc", Kind: ir.Membership, Columns: []ir.Column{{Name: "t", Category: "Proc"}}}
	got, err := p.Declare(proc)
	require.NoError(t, err)
	assert.Same(t, proc, got)

	again, err := p.Declare(&ir.Relation{Name: "proc", Kind: ir.Membership, Columns: []ir.Column{{Name: "x", Category: "Proc"}}})
	require.NoError(t, err)
	assert.Same(t, proc, again)

	_, err = p.Declare(&ir.Relation{Name: "proc", Kind: ir.Membership, Columns: []ir.Column{{Category: "Name"}}})
	var conflict *ir.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Proc", conflict.Existing)
	assert.Equal(t, "Name", conflict.Wanted)

	assert.Len(t, p.Relations(), 1)
	assert.Len(t, p.RelationsOf(ir.Membership), 1)
	assert.Empty(t, p.RelationsOf(ir.Rewrite))
}

func TestNameTable(t *testing.T) {
	names := ir.NewNameTable()
	cases := map[ir.NameKey]string{
		{Kind: ir.Membership, Subject: "Proc"}:                    "proc",
		{Kind: ir.Equivalence, Subject: "Proc"}:                   "eq_proc",
		{Kind: ir.Rewrite, Subject: "Proc"}:                       "rw_proc",
		{Kind: ir.Path, Subject: "Proc"}:                          "path_proc",
		{Kind: ir.Contains, Subject: "PPar"}:                      "p_par_contains",
		{Kind: ir.BindingProjection, Subject: "PNew"}:             "p_new_direct_congruence_proj",
		{Kind: ir.Extraction, Subject: "PPar", Rule: 3, Pattern: 1}: "p_par_r3_e1",
		{Kind: ir.Env, Subject: "proc"}:                           "env_proc",
	}
	for key, want := range cases {
		got, err := names.Name(key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		// stable
		got, err = names.Name(key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	// a category called PPar_contains would be spelled like the projection of PPar
	_, err := names.Name(ir.NameKey{Kind: ir.Membership, Subject: "PPar_contains"})
	assert.Error(t, err)
}

func TestRuleScopeFresh(t *testing.T) {
	s := ir.NewRuleScope()
	assert.Equal(t, "_s0", s.Fresh("s"))
	assert.Equal(t, "_s1", s.Fresh("s"))
	assert.Equal(t, "_e0", s.Fresh("e"))
}

func TestCheck(t *testing.T) {
	p := ir.NewProgram("T", []string{"Proc"})
	_, _ = p.Declare(&ir.Relation{Name: "proc", Kind: ir.Membership, Columns: []ir.Column{{Category: "Proc"}}})
	_, _ = p.Declare(&ir.Relation{Name: "rw_proc", Kind: ir.Rewrite, Columns: []ir.Column{{Category: "Proc"}, {Category: "Proc"}}})

	good := &ir.Rule{
		Origin: "drop",
		Head:   []*ir.Atom{{Relation: "rw_proc", Args: []ir.Expr{ir.R("s"), ir.R("n")}}},
		Body: []ir.Clause{
			ir.NewAtom("proc", "s"),
			&ir.Destructure{Subject: "s", Label: "PDrop", Fields: []string{"q"}},
			&ir.Destructure{Subject: "q", Label: "NQuote", Fields: []string{"n"}},
		},
	}
	assert.NoError(t, good.Check(p))

	unbound := &ir.Rule{
		Origin: "bad",
		Head:   []*ir.Atom{{Relation: "rw_proc", Args: []ir.Expr{ir.R("s"), ir.R("t")}}},
		Body:   []ir.Clause{ir.NewAtom("proc", "s")},
	}
	assert.ErrorContains(t, unbound.Check(p), "unbound variable t")

	arity := &ir.Rule{Origin: "arity", Head: []*ir.Atom{ir.NewAtom("proc", "s")}, Body: []ir.Clause{ir.NewAtom("rw_proc", "s")}}
	assert.ErrorContains(t, arity.Check(p), "has 2 columns")

	undeclared := &ir.Rule{Origin: "undeclared", Head: []*ir.Atom{ir.NewAtom("proc", "s")}, Body: []ir.Clause{ir.NewAtom("nope", "s")}}
	assert.ErrorContains(t, undeclared.Check(p), "not declared")
}

func TestString(t *testing.T) {
	p := ir.NewProgram("T", []string{"Proc"})
	_, _ = p.Declare(&ir.Relation{Name: "proc", Kind: ir.Membership, Columns: []ir.Column{{Category: "Proc"}}})
	_, _ = p.Declare(&ir.Relation{Name: "eq_proc", Kind: ir.Equivalence, Columns: []ir.Column{{Category: "Proc"}, {Category: "Proc"}}})
	p.Add(&ir.Rule{
		Origin: "reflexivity",
		Head:   []*ir.Atom{ir.NewAtom("eq_proc", "t", "t")},
		Body:   []ir.Clause{ir.NewAtom("proc", "t")},
	})
	assert.Equal(t, `// rules for theory T

relation proc(Proc);
#[ds(eqrel)]
relation eq_proc(Proc, Proc);

// reflexivity
eq_proc(t, t) <--
    proc(t);
`, p.String())
}
