package parser_test

import (
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go/token"
	"testing"
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
    NQuote . Name ::= "@" "(" Proc ")" ;
    NVar   . Name ::= Var ;
  }
  equations {
    (NQuote (PDrop N)) == N ;
  }
  rewrites {
    // communication
    (PPar {(PInput chan x P), (POutput chan Q), ...rest}) => (PPar {(subst P x (NQuote Q)), ...rest}) ;
    if S => T then (PPar {S, ...rest}) => (PPar {T, ...rest}) ;
  }
}
`

func testParse(t *testing.T, input string) (*theory.TheoryDef, *tcerr.Errors) {
	def, errs := parser.ParseTheory(input)
	for _, e := range errs.Errors() {
		t.Log(tcerr.FormatWithSource(e, input))
	}
	return def, errs
}

func TestNoPanics(t *testing.T) {
	files := map[string]string{
		"empty":                ``,
		"theory keyword only":  `theory`,
		"unclosed theory":      `theory T {`,
		"unclosed rule":        `theory T { exports { P } terms { A . P ::= "a" `,
		"unterminated string":  `theory T { exports { P } terms { A . P ::= "a ; } }`,
		"unclosed apply":       `theory T { exports { P } rewrites { (A => B } }`,
		"stray character":      `theory T { ? }`,
		"missing arrow":        `theory T { exports { P } rewrites { (A) (B) } }`,
	}

	for name, file := range files {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, errs := parser.ParseTheory(file)
				assert.True(t, errs.HasError())
			})
		})
	}
}

func TestParseRhoCalc(t *testing.T) {
	def, errs := testParse(t, rhoCalc)
	require.False(t, errs.HasError())

	assert.Equal(t, "RhoCalc", def.Name)
	require.Len(t, def.Exports, 2)
	assert.Equal(t, "Proc", def.Exports[0].Name)

	g := theory.NewGrammar(def)
	input := g.MustRule("PInput")
	assert.Equal(t, "Proc", input.Category)
	assert.Equal(t, []theory.Binding{{Binder: 4, Bodies: []int{7}}}, input.Bindings)

	par := g.MustRule("PPar")
	require.Len(t, par.Items, 1)
	coll, ok := par.Items[0].(theory.Collection)
	require.True(t, ok)
	assert.Equal(t, theory.MultiSet, coll.Kind)
	assert.Equal(t, "Proc", coll.Element)
	assert.Equal(t, "|", coll.Separator)
	assert.Equal(t, "{", coll.Open)
	assert.Equal(t, "}", coll.Close)

	// PVar is added by Prepare, NVar was declared
	pVar, ok := g.VarRule("Proc")
	require.True(t, ok)
	assert.Equal(t, "ProcVar", pVar.Label)
	assert.True(t, pVar.Implicit)
	nVar, ok := g.VarRule("Name")
	require.True(t, ok)
	assert.Equal(t, "NVar", nVar.Label)
}

func TestParseRewrites(t *testing.T) {
	def, errs := testParse(t, rhoCalc)
	require.False(t, errs.HasError())
	require.Len(t, def.Rewrites, 2)

	comm := def.Rewrites[0]
	assert.Nil(t, comm.Premise)
	assert.Equal(t, 0, comm.Index)
	assert.Equal(t, "(PPar {(PInput chan x P), (POutput chan Q), ...rest})", theory.ExprString(comm.Left))
	assert.Equal(t, "(PPar {(subst P x (NQuote Q)), ...rest})", theory.ExprString(comm.Right))

	cong := def.Rewrites[1]
	require.NotNil(t, cong.Premise)
	assert.Equal(t, "S", cong.Premise.Source)
	assert.Equal(t, "T", cong.Premise.Target)
	assert.True(t, cong.IsCongruence())
	assert.Equal(t, 1, cong.Index)
}

func TestParseConditionsAndActions(t *testing.T) {
	src := `
theory T {
  exports { Proc; Name }
  terms {
    PNew  . Proc ::= "new" <Name> Proc ;
    PPar  . Proc ::= HashBag(Proc) ;
    PDrop . Proc ::= "*" Name ;
  }
  equations {
    if x # Q then (PPar {(PNew x P), Q}) == (PNew x (PPar {P, Q})) ;
  }
  rewrites {
    if env_proc(x, v), x # v then (PDrop (NameVar x)) => v then env_seen(v), env_pair(v, (PDrop (NameVar x))) ;
  }
}
`
	def, errs := testParse(t, src)
	require.False(t, errs.HasError())

	require.Len(t, def.Equations, 1)
	eq := def.Equations[0]
	require.Len(t, eq.Freshness, 1)
	assert.Equal(t, "x", eq.Freshness[0].Var)
	assert.Equal(t, "Q", eq.Freshness[0].Term)

	rule := def.Rewrites[0]
	require.Len(t, rule.Conditions, 2)
	query, ok := rule.Conditions[0].(theory.EnvQuery)
	require.True(t, ok)
	assert.Equal(t, "proc", query.Relation)
	assert.Equal(t, []string{"x", "v"}, query.Args)
	_, ok = rule.Conditions[1].(theory.Freshness)
	assert.True(t, ok)

	require.Len(t, rule.Actions, 2)
	assert.Equal(t, "seen", rule.Actions[0].Relation)
	assert.Equal(t, "pair", rule.Actions[1].Relation)
	assert.Len(t, rule.Actions[1].Args, 2)
}

func TestParseNativeAndSemantics(t *testing.T) {
	src := `
theory Arith {
  exports { Int: native i64 }
  terms {
    Add . Int ::= Int "+" Int ;
    Mul . Int ::= Int "*" Int ;
  }
  semantics { Add: + ; Mul: * }
}
`
	def, errs := testParse(t, src)
	require.False(t, errs.HasError())
	assert.Equal(t, "i64", def.Exports[0].Native)
	require.Len(t, def.Semantics, 2)
	assert.Equal(t, token.ADD, def.Semantics[0].Op)
	assert.Equal(t, token.MUL, def.Semantics[1].Op)

	g := theory.NewGrammar(def)
	lit, ok := g.LitRule("Int")
	require.True(t, ok)
	assert.Equal(t, "IntLit", lit.Label)
}

func TestValidation(t *testing.T) {
	t.Run("duplicate constructor", func(t *testing.T) {
		_, errs := testParse(t, `theory T { exports { P } terms { A . P ::= "a" ; A . P ::= "b" } }`)
		require.Len(t, errs.Errors(), 1)
		assert.Equal(t, tcerr.DuplicateConstructor, errs.Errors()[0].Code())
	})
	t.Run("unknown category", func(t *testing.T) {
		_, errs := testParse(t, `theory T { exports { P } terms { A . P ::= Q ; B . R ::= "b" } }`)
		require.Len(t, errs.Errors(), 2)
		for _, e := range errs.Errors() {
			assert.Equal(t, tcerr.UnknownCategory, e.Code())
		}
	})
	t.Run("semantics of unknown constructor", func(t *testing.T) {
		_, errs := testParse(t, `theory T { exports { I: native i64 } semantics { Add: + } }`)
		require.Len(t, errs.Errors(), 1)
		assert.Equal(t, tcerr.LookupFailure, errs.Errors()[0].Code())
	})
	t.Run("reserved identifier", func(t *testing.T) {
		_, errs := testParse(t, `theory T { exports { P } rewrites { (A _x) => _x } }`)
		require.Len(t, errs.Errors(), 1)
		assert.Equal(t, tcerr.Parse, errs.Errors()[0].Code())
	})
}

func TestErrorPosition(t *testing.T) {
	src := "theory T {\n  exports { P }\n  terms { A . P \"a\" }\n}"
	_, errs := parser.ParseTheory(src)
	require.Len(t, errs.Errors(), 1)
	formatted := tcerr.FormatWithSource(errs.Errors()[0], src)
	assert.Contains(t, formatted, "3:17: error:")
	assert.Contains(t, formatted, "expected '::='")
}

func TestParseTerms(t *testing.T) {
	terms, errs := parser.ParseTerms(`(PPar {(POutput chan PZero), (PInput chan y (PDrop y))}); PZero`)
	require.False(t, errs.HasError())
	require.Len(t, terms, 2)
	assert.Equal(t, "(PPar {(POutput chan PZero), (PInput chan y (PDrop y))})", theory.ExprString(terms[0]))

	_, errs = parser.ParseTerm(`(PPar {PZero, ...rest})`)
	assert.True(t, errs.HasError())

	_, errs = parser.ParseTerm(`(subst P x Q)`)
	assert.True(t, errs.HasError())
}

func TestParseExplicitCollectionConstructor(t *testing.T) {
	e, errs := parser.ParseExpr(`(PNew x PPar{P, Q})`)
	require.False(t, errs.HasError())
	apply := e.(*theory.Apply)
	require.Len(t, apply.Args, 2)
	coll, ok := apply.Args[1].(*theory.CollectionPattern)
	require.True(t, ok)
	assert.Equal(t, "PPar", coll.Constructor)

	e, errs = parser.ParseExpr(`(Add -3 4)`)
	require.False(t, errs.HasError())
	assert.Equal(t, int64(-3), e.(*theory.Apply).Args[0].(*theory.Literal).Value)
}
