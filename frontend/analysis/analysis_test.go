package analysis_test

import (
	"github.com/cottand/theoryc/frontend/analysis"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
    PNew   . Proc ::= "new" <Name> Proc ;
    NQuote . Name ::= "@" "(" Proc ")" ;
  }
  rewrites {
    (PPar {(PInput chan x P), (POutput chan Q), ...rest}) => (PPar {(subst P x (NQuote Q)), ...rest}) ;
    if S => T then (PPar {S, ...rest}) => (PPar {T, ...rest}) ;
    if S => T then (PNew x S) => (PNew x T) ;
    if S => T then (POutput n S) => (POutput n T) ;
    if S => T then (PPar {S, U}) => (PPar {T, U}) ;
    if S => T then (PDrop (NQuote S)) => (PDrop (NQuote T)) ;
    if S => T then (POutput S P) => (POutput T P) ;
  }
}
`

func grammar(t *testing.T) (*theory.TheoryDef, *theory.Grammar) {
	def, errs := parser.ParseTheory(rhoCalc)
	require.False(t, errs.HasError())
	return def, theory.NewGrammar(def)
}

func canonical(t *testing.T, g *theory.Grammar, src string) theory.Expr {
	e, errs := parser.ParseExpr(src)
	require.False(t, errs.HasError())
	c, err := analysis.Canonicalize(g, e, "Proc")
	require.Nil(t, err)
	return c
}

func TestExtractCaptures(t *testing.T) {
	_, g := grammar(t)
	e := canonical(t, g, `(PInput chan x P)`)
	captures, nested := analysis.ExtractCaptures(g, e.(*theory.Apply))
	assert.False(t, nested)
	assert.Equal(t, []analysis.CaptureInfo{
		{Name: "chan", Category: "Name", FieldIndex: 0},
		{Name: "x", Category: "Name", FieldIndex: 1, IsBinder: true},
		{Name: "P", Category: "Proc", FieldIndex: 1},
	}, captures)
}

func TestExtractCapturesNested(t *testing.T) {
	_, g := grammar(t)
	e := canonical(t, g, `(POutput (NQuote P) (PPar {PZero, Q}))`)
	captures, nested := analysis.ExtractCaptures(g, e.(*theory.Apply))
	assert.True(t, nested)
	require.Len(t, captures, 2)
	assert.Equal(t, "P", captures[0].Name)
	assert.Equal(t, 0, captures[0].FieldIndex)
	assert.Equal(t, "Q", captures[1].Name)
	assert.Equal(t, 1, captures[1].FieldIndex)
	assert.Equal(t, "Proc", captures[1].Category)
}

func TestExtractCategory(t *testing.T) {
	_, g := grammar(t)
	cat, ok := analysis.ExtractCategory(g, canonical(t, g, `(NQuote P)`))
	assert.True(t, ok)
	assert.Equal(t, "Name", cat)

	cat, ok = analysis.ExtractCategory(g, &theory.CollectionPattern{Constructor: "PPar"})
	assert.True(t, ok)
	assert.Equal(t, "Proc", cat)

	_, ok = analysis.ExtractCategory(g, &theory.Var{Name: "P"})
	assert.False(t, ok)

	assert.PanicsWithError(t, "constructor 'Nope' not found in grammar; available: [NQuote, NameVar, PDrop, PInput, PNew, POutput, PPar, PZero, ProcVar]", func() {
		analysis.ExtractCategory(g, &theory.Apply{Constructor: "Nope"})
	})
}

func TestCanonicalize(t *testing.T) {
	_, g := grammar(t)
	e := canonical(t, g, `(PNew x {P, Q})`)
	assert.Equal(t, "(PNew x (PPar PPar{P, Q}))", theory.ExprString(e))

	e = canonical(t, g, `{P, ...rest}`)
	assert.Equal(t, "(PPar PPar{P, ...rest})", theory.ExprString(e))

	bad, errs := parser.ParseExpr(`(PDrop {P})`)
	require.False(t, errs.HasError())
	_, err := analysis.Canonicalize(g, bad, "Proc")
	require.NotNil(t, err)
	assert.Equal(t, tcerr.MalformedPattern, err.Code())

	bad, errs = parser.ParseExpr(`(PPar {{P}})`)
	require.False(t, errs.HasError())
	_, err = analysis.Canonicalize(g, bad, "Proc")
	require.NotNil(t, err)

	bad, errs = parser.ParseExpr(`(PDrop x y)`)
	require.False(t, errs.HasError())
	_, err = analysis.Canonicalize(g, bad, "Proc")
	require.NotNil(t, err)
}

func TestParseCongruenceLHS(t *testing.T) {
	_, g := grammar(t)
	lhs := analysis.ParseCongruenceLHS(g, canonical(t, g, `(PPar {S, ...rest})`), "S")
	require.NotNil(t, lhs)
	assert.Equal(t, "PPar", lhs.Constructor)
	assert.Equal(t, 0, lhs.Field)
	assert.True(t, lhs.InCollection)
	assert.Equal(t, []string{"S", "rest"}, lhs.Vars)

	lhs = analysis.ParseCongruenceLHS(g, canonical(t, g, `(POutput n S)`), "S")
	require.NotNil(t, lhs)
	assert.Equal(t, 1, lhs.Field)
	assert.False(t, lhs.InCollection)

	assert.Nil(t, analysis.ParseCongruenceLHS(g, canonical(t, g, `(PDrop (NQuote S))`), "S"))
	assert.Nil(t, analysis.ParseCongruenceLHS(g, &theory.Var{Name: "S"}, "S"))
	assert.Nil(t, analysis.ParseCongruenceLHS(g, canonical(t, g, `(POutput n P)`), "S"))
}

func TestParseCongruenceLHSReportsCollectionFieldIndex(t *testing.T) {
	def, errs := parser.ParseTheory(`
theory T {
  exports { Proc; Name }
  terms {
    PZero . Proc ::= "0" ;
    PTag  . Proc ::= Name "[" HashBag(Proc) "]" ;
  }
}
`)
	require.False(t, errs.HasError())
	g := theory.NewGrammar(def)

	lhs := analysis.ParseCongruenceLHS(g, canonical(t, g, `(PTag n {S, ...rest})`), "S")
	require.NotNil(t, lhs)
	// the field the collection lives in, not a placeholder index
	assert.Equal(t, 1, lhs.Field)
	assert.True(t, lhs.InCollection)
	assert.Equal(t, []string{"n", "S", "rest"}, lhs.Vars)
}

func classify(t *testing.T, def *theory.TheoryDef, g *theory.Grammar, i int) (analysis.Congruence, tcerr.TheoryError) {
	rule := *def.Rewrites[i]
	left, err := analysis.Canonicalize(g, rule.Left, "Proc")
	require.Nil(t, err)
	rule.Left = left
	return analysis.ClassifyCongruence(g, &rule)
}

func TestClassifyCongruence(t *testing.T) {
	def, g := grammar(t)

	c, err := classify(t, def, g, 1)
	require.Nil(t, err)
	coll, ok := c.(*analysis.CollectionCongruence)
	require.True(t, ok)
	assert.Equal(t, "PPar", coll.Constructor)
	assert.Equal(t, "Proc", coll.ElementCategory)
	assert.Equal(t, "rest", coll.Rest)
	assert.Equal(t, theory.MultiSet, coll.Collection)

	c, err = classify(t, def, g, 2)
	require.Nil(t, err)
	binding, ok := c.(*analysis.RegularCongruence)
	require.True(t, ok)
	assert.True(t, binding.IsBinding)
	assert.Equal(t, 0, binding.Field)
	assert.Equal(t, "Proc", binding.FieldCategory)

	c, err = classify(t, def, g, 3)
	require.Nil(t, err)
	regular, ok := c.(*analysis.RegularCongruence)
	require.True(t, ok)
	assert.False(t, regular.IsBinding)
	assert.Equal(t, 1, regular.Field)
	assert.Equal(t, 1, regular.Arg)

	// S next to another element
	_, err = classify(t, def, g, 4)
	require.NotNil(t, err)
	assert.Equal(t, tcerr.UnsupportedShape, err.Code())
	assert.Equal(t, tcerr.SeverityWarning, err.Severity())

	// S under a nested constructor
	_, err = classify(t, def, g, 5)
	require.NotNil(t, err)
	assert.Equal(t, tcerr.MalformedPattern, err.Code())

	// S in a Name field
	c, err = classify(t, def, g, 6)
	require.Nil(t, err)
	assert.Equal(t, "Name", c.(*analysis.RegularCongruence).FieldCategory)
}

func TestClassifyRejectsRepeatedPremise(t *testing.T) {
	_, g := grammar(t)
	rule := &theory.RewriteRule{
		Premise: &theory.Premise{Source: "S", Target: "T"},
		Left:    canonical(t, g, `(PPar {S, S})`),
		Right:   canonical(t, g, `(PPar {T, S})`),
	}
	_, err := analysis.ClassifyCongruence(g, rule)
	require.NotNil(t, err)
	assert.Equal(t, tcerr.MalformedPattern, err.Code())
}

func TestRequiresIndexedProjection(t *testing.T) {
	_, g := grammar(t)
	assert.True(t, analysis.RequiresIndexedProjection(g, canonical(t, g, `(PPar {(PInput chan x P), (POutput chan Q), ...rest})`)))
	assert.False(t, analysis.RequiresIndexedProjection(g, canonical(t, g, `(PPar {(PInput a x P), (POutput b Q), ...rest})`)))
	assert.False(t, analysis.RequiresIndexedProjection(g, canonical(t, g, `(PPar {(PInput a x P), Q})`)))
	assert.False(t, analysis.RequiresIndexedProjection(g, canonical(t, g, `(PDrop a)`)))
}

func TestAnalyzeCollectionPattern(t *testing.T) {
	_, g := grammar(t)
	spec := analysis.AnalyzeCollectionPattern(g, canonical(t, g, `(PPar {(PInput chan x P), (POutput chan Q), R, ...rest})`))
	require.NotNil(t, spec)
	assert.Equal(t, "PPar", spec.Constructor)
	assert.Equal(t, "Proc", spec.ElementCategory)
	assert.Equal(t, []string{"chan"}, spec.SharedVariables)
	assert.Equal(t, []int{2}, spec.BareElements)
	assert.Equal(t, "rest", spec.Rest)

	require.Len(t, spec.Elements, 2)
	input := spec.Elements[0]
	assert.Equal(t, "PInput", input.Constructor)
	assert.Equal(t, []string{"chan"}, names(input.JoinKeys))
	assert.Equal(t, []string{"x", "P"}, names(input.Private))
	output := spec.Elements[1]
	assert.Equal(t, []string{"chan"}, names(output.JoinKeys))
	assert.Equal(t, []string{"Q"}, names(output.Private))
}

func TestAnalyzeCollectionPatternIsDeterministic(t *testing.T) {
	_, g := grammar(t)
	src := `(PPar {(POutput b (PDrop a)), (POutput a P), (PInput b x Q), (PInput a y R)})`
	first := analysis.AnalyzeCollectionPattern(g, canonical(t, g, src))
	for range 20 {
		again := analysis.AnalyzeCollectionPattern(g, canonical(t, g, src))
		assert.Equal(t, first.SharedVariables, again.SharedVariables)
	}
	assert.Equal(t, []string{"b", "a"}, first.SharedVariables)
}

func TestAnalyzeCollectionPatternWithoutStructure(t *testing.T) {
	_, g := grammar(t)
	assert.Nil(t, analysis.AnalyzeCollectionPattern(g, canonical(t, g, `(PPar {P, Q, ...rest})`)))

	spec := analysis.AnalyzeCollectionPattern(g, canonical(t, g, `(PPar {(PDrop n), ...rest})`))
	require.NotNil(t, spec)
	assert.Empty(t, spec.SharedVariables)
	assert.Equal(t, []string{"n"}, names(spec.Elements[0].Private))
}

func names(cs []analysis.CaptureInfo) []string {
	res := make([]string, len(cs))
	for i, c := range cs {
		res[i] = c.Name
	}
	return res
}
