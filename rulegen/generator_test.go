package rulegen_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cottand/theoryc/frontend/analysis"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/ir"
	"github.com/cottand/theoryc/parser"
	"github.com/cottand/theoryc/rulegen"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rhoCalc = `
theory RhoCalc {
  exports { Proc; Name }
  terms {
    PZero  . Proc ::= "0" ;
    PDrop  . Proc ::= "*" Name ;
    PInput . Proc ::= "for" "(" Name "->" <Name> ")" "{" Proc "}" ;
    POutput. Proc ::= Name "!" "(" Proc ")" ;
    PPar   . Proc ::= HashBag(Proc) sep "|" delim "{" "}" ;
    PNew   . Proc ::= "new" "(" <Name> "," Proc ")" ;
    NQuote . Name ::= "@" "(" Proc ")" ;
    NVar   . Name ::= Var ;
  }
  equations {
    (NQuote (PDrop N)) == N ;
  }
  rewrites {
    (PPar {(PInput chan x P), (POutput chan Q), ...rest}) => (PPar {(subst P x (NQuote Q)), ...rest}) ;
    if S => T then (PPar {S, ...rest}) => (PPar {T, ...rest}) ;
    if S => T then (PNew x S) => (PNew x T) ;
    if S => T then (POutput n S) => (POutput n T) ;
  }
}
`

func parse(t *testing.T, src string) *theory.TheoryDef {
	def, errs := parser.ParseTheory(src)
	for _, e := range errs.Errors() {
		t.Log(tcerr.FormatWithSource(e, src))
	}
	require.False(t, errs.HasError())
	return def
}

func generate(t *testing.T, src string, opts rulegen.Options) (*ir.Program, *tcerr.Errors) {
	prog, errs := rulegen.Generate(parse(t, src), opts)
	for _, e := range errs.Errors() {
		t.Log(tcerr.FormatWithCode(e))
	}
	return prog, errs
}

func relationNames(rels []*ir.Relation) []string {
	return lo.Map(rels, func(r *ir.Relation, _ int) string { return r.Name })
}

func codes(errs *tcerr.Errors) []tcerr.ErrCode {
	return lo.Map(errs.Errors(), func(e tcerr.TheoryError, _ int) tcerr.ErrCode { return e.Code() })
}

func TestGenerateRhoCalc(t *testing.T) {
	prog, errs := generate(t, rhoCalc, rulegen.Options{})
	require.Empty(t, errs.Errors())
	assert.Equal(t, "RhoCalc", prog.Theory)

	names := relationNames(prog.Relations())
	for _, want := range []string{
		"proc", "eq_proc", "rw_proc", "path_proc",
		"name", "eq_name", "rw_name", "path_name",
		"p_par_contains",
		"p_input_direct_congruence_proj",
		"p_new_direct_congruence_proj",
		"p_par_r0_e0", "p_par_r0_e1",
	} {
		assert.Contains(t, names, want)
	}

	eq, ok := prog.Relation("eq_name")
	require.True(t, ok)
	assert.True(t, eq.IsEquivalence())

	proj, ok := prog.Relation("p_input_direct_congruence_proj")
	require.True(t, ok)
	assert.Equal(t, "Proc, Var, Proc", proj.Signature())

	under := lo.Filter(prog.Rules, func(r *ir.Rule, _ int) bool {
		return len(r.Head) > 0 && r.Head[0].Relation == "rw_proc" && strings.Contains(r.String(), "p_new_direct_congruence_proj(")
	})
	assert.Len(t, under, 1, "one congruence rewriting under the binder of PNew")

	for _, r := range prog.Rules {
		assert.NoError(t, r.Check(prog), r.String())
	}
}

func TestExtractionRelationsJoinOnSharedVariables(t *testing.T) {
	prog, errs := generate(t, rhoCalc, rulegen.Options{})
	require.Empty(t, errs.Errors())

	input, ok := prog.Relation("p_par_r0_e0")
	require.True(t, ok)
	output, ok := prog.Relation("p_par_r0_e1")
	require.True(t, ok)
	// parent, then the shared channel first, then the element itself
	assert.Equal(t, "chan", input.Columns[1].Name)
	assert.Equal(t, "chan", output.Columns[1].Name)
	assert.Equal(t, "Proc", input.Columns[input.Arity()-1].Category)

	comm := lo.Filter(prog.Rules, func(r *ir.Rule, _ int) bool {
		return len(r.Head) > 0 && r.Head[0].Relation == "rw_proc" && strings.Contains(r.Origin, "PInput chan x P")
	})
	require.Len(t, comm, 1)
	rendered := comm[0].String()
	assert.Contains(t, rendered, "p_par_r0_e0(")
	assert.Contains(t, rendered, "p_par_r0_e1(")
	assert.Contains(t, rendered, "eq_name(")
}

func TestNestedLoopCollections(t *testing.T) {
	prog, errs := generate(t, rhoCalc, rulegen.Options{NestedLoopCollections: true})
	require.Empty(t, errs.Errors())
	assert.Empty(t, prog.RelationsOf(ir.Extraction))
	for _, r := range prog.Rules {
		assert.NoError(t, r.Check(prog), r.String())
	}
}

func TestSkipEquivalenceCongruence(t *testing.T) {
	full, errs := generate(t, rhoCalc, rulegen.Options{})
	require.Empty(t, errs.Errors())
	skipped, errs := generate(t, rhoCalc, rulegen.Options{SkipEquivalenceCongruence: true})
	require.Empty(t, errs.Errors())
	assert.Less(t, len(skipped.Rules), len(full.Rules))
}

func TestRuleDiagnostics(t *testing.T) {
	tests := map[string]struct {
		rule string
		want []tcerr.ErrCode
	}{
		"unbound variable on the right": {
			rule: `rewrites { (PDrop N) => (PDrop M) ; }`,
			want: []tcerr.ErrCode{tcerr.UnboundVariable},
		},
		"name used as a process": {
			rule: `rewrites { (PDrop N) => N ; }`,
			want: []tcerr.ErrCode{tcerr.MalformedPattern},
		},
		"unknown constructor": {
			rule: `rewrites { (PNope N) => PZero ; }`,
			want: []tcerr.ErrCode{tcerr.LookupFailure},
		},
		"wrong arity": {
			rule: `rewrites { (PDrop N N) => PZero ; }`,
			want: []tcerr.ErrCode{tcerr.MalformedPattern},
		},
		"binder bound twice": {
			rule: `rewrites { (PPar {(PInput n x (PInput m x P))}) => PZero ; }`,
			want: []tcerr.ErrCode{tcerr.MalformedPattern},
		},
		"rewriting under a binder beside another field": {
			rule: `rewrites { if S => T then (PInput n x S) => (PInput n x T) ; }`,
			want: []tcerr.ErrCode{tcerr.UnsupportedShape},
		},
		"env relation asserted with two arities": {
			rule: `rewrites { (PDrop N) => PZero then env_seen(N) ; (POutput N P) => P then env_seen(N, N) ; }`,
			want: []tcerr.ErrCode{tcerr.ConflictingRelation},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			src := `theory T {
  exports { Proc; Name }
  terms {
    PZero  . Proc ::= "0" ;
    PDrop  . Proc ::= "*" Name ;
    PInput . Proc ::= "for" "(" Name "->" <Name> ")" "{" Proc "}" ;
    POutput. Proc ::= Name "!" "(" Proc ")" ;
    PPar   . Proc ::= HashBag(Proc) ;
    NQuote . Name ::= "@" "(" Proc ")" ;
  }
  ` + tt.rule + `
}`
			prog, errs := generate(t, src, rulegen.Options{})
			assert.Equal(t, tt.want, codes(errs))
			// the other rules are still generated
			_, ok := prog.Relation("rw_proc")
			assert.True(t, ok)
		})
	}
}

func TestUnsupportedShapesAreWarnings(t *testing.T) {
	src := `
theory T {
  exports { Proc; Name; Int: native i64 }
  terms {
    PZero . Proc ::= "0" ;
    PSeq  . Proc ::= Vec(Proc) ;
    Neg   . Int ::= "-" Int ;
  }
  rewrites {
    (PSeq {PZero, ...rest}) => (PSeq rest) ;
  }
  semantics { Neg: - }
}
`
	prog, errs := generate(t, src, rulegen.Options{})
	assert.False(t, errs.HasError())
	require.Len(t, errs.Warnings(), 2)
	for _, w := range errs.Warnings() {
		assert.Equal(t, tcerr.UnsupportedShape, w.Code())
	}
	_, ok := prog.Relation("rw_proc")
	assert.True(t, ok)
}

func TestEnvQueryColumns(t *testing.T) {
	src := `
theory T {
  exports { Proc; Name }
  terms {
    PZero . Proc ::= "0" ;
    PDrop . Proc ::= "*" Name ;
  }
  rewrites {
    if env_val(n, v) then (PDrop n) => v ;
  }
}
`
	prog, errs := generate(t, src, rulegen.Options{})
	require.Empty(t, errs.Errors())
	rel, ok := prog.Relation("env_val")
	require.True(t, ok)
	assert.Equal(t, ir.Env, rel.Kind)
	assert.Equal(t, "Name, Proc", rel.Signature())
}

const channels = `
theory Channels {
  exports { Proc; Name }
  terms {
    PZero  . Proc ::= "0" ;
    PDrop  . Proc ::= "*" Name ;
    PInput . Proc ::= "for" "(" Name "->" <Name> ")" "{" Proc "}" ;
    POutput. Proc ::= Name "!" "(" Proc ")" ;
    PPar   . Proc ::= HashBag(Proc) ;
    NQuote . Name ::= "@" "(" Proc ")" ;
  }
  rewrites { %s => PZero ; }
}
`

// rewriteRule returns the rule generated for the only rewrite of src
func rewriteRule(t *testing.T, src string, opts rulegen.Options) (*ir.Program, *ir.Rule) {
	origin := theory.RuleString(parse(t, src).Rewrites[0])
	prog, errs := generate(t, src, opts)
	require.Empty(t, errs.Errors())
	rules := lo.Filter(prog.Rules, func(r *ir.Rule, _ int) bool { return r.Origin == origin })
	require.Len(t, rules, 1)
	return prog, rules[0]
}

func TestRepeatedVariablesJoinOnEquivalence(t *testing.T) {
	tests := map[string]struct {
		lhs   string
		joins int
	}{
		"distinct variables":         {lhs: `(POutput n (PDrop m))`, joins: 0},
		"used twice":                 {lhs: `(POutput n (PDrop n))`, joins: 1},
		"used three times":           {lhs: `(POutput n (POutput n (PDrop n)))`, joins: 2},
		"shared by two bag elements": {lhs: `(PPar {(PInput n x P), (POutput n Q)})`, joins: 1},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, rule := rewriteRule(t, fmt.Sprintf(channels, tt.lhs), rulegen.Options{})
			assert.Equal(t, tt.joins, strings.Count(rule.String(), "eq_name("), rule.String())
		})
	}
}

func TestCollectionPatternDispatch(t *testing.T) {
	tests := map[string]struct {
		lhs         string
		indexed     bool
		extractions int
	}{
		"structured elements sharing a channel": {
			lhs:         `(PPar {(PInput chan x P), (POutput chan Q), ...rest})`,
			indexed:     true,
			extractions: 2,
		},
		"structured elements without a join key": {
			lhs:         `(PPar {(PInput a x P), (POutput b Q), ...rest})`,
			extractions: 2,
		},
		"one structured element": {
			lhs:         `(PPar {(PDrop n), P})`,
			extractions: 1,
		},
		"bare elements": {
			lhs: `(PPar {P, Q, ...rest})`,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			src := fmt.Sprintf(channels, tt.lhs)
			g := theory.NewGrammar(parse(t, src))
			expr, errs := parser.ParseExpr(tt.lhs)
			require.False(t, errs.HasError())
			lhs, err := analysis.Canonicalize(g, expr, "Proc")
			require.Nil(t, err)
			assert.Equal(t, tt.indexed, analysis.RequiresIndexedProjection(g, lhs))

			prog, _ := rewriteRule(t, src, rulegen.Options{})
			assert.Len(t, prog.RelationsOf(ir.Extraction), tt.extractions)

			nested, _ := rewriteRule(t, src, rulegen.Options{NestedLoopCollections: true})
			assert.Empty(t, nested.RelationsOf(ir.Extraction))
		})
	}
}
