package backend

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/parser"
	"github.com/cottand/theoryc/term"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
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
}
`

func grammarOf(t *testing.T, src string) *theory.Grammar {
	def, errs := parser.ParseTheory(src)
	require.False(t, errs.HasError(), "%v", errs.Errors())
	return theory.NewGrammar(def)
}

func transpile(t *testing.T, g *theory.Grammar, opts Options) (string, *tcerr.Errors) {
	tp := NewTranspiler(g, opts)
	file, errs := tp.TranspileTheory()
	for _, e := range errs.Errors() {
		t.Log(tcerr.FormatWithCode(e))
	}
	require.NotNil(t, file)
	src, err := tp.Render(file)
	require.NoError(t, err)
	return string(src), errs
}

// load interprets generated source as package main
func load(t *testing.T, src string) *interp.Interpreter {
	i := interp.New(interp.Options{})
	require.NoError(t, i.Use(stdlib.Symbols))
	if _, err := i.Eval(src); err != nil {
		slog.Warn("had errors while evaluating", "err", err.Error(), "body", src)
		t.Fatal(err)
	}
	return i
}

// compileAndRun builds generated source of package main together with a main
// function running body, and returns the lines it prints.
// Some generated code (type switches on values passed through function
// parameters) is not interpreted faithfully by yaegi, so it goes through the
// go tool instead.
func compileAndRun(t *testing.T, src, body string) []string {
	goTool, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go tool not available")
	}
	dir := t.TempDir()
	files := map[string]string{
		"go.mod":       "module generated\n\ngo 1.21\n",
		"generated.go": src,
		"main.go":      "package main\n\nimport \"fmt\"\n\nfunc main() {" + body + "}\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	cmd := exec.Command(goTool, "run", ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod")
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.Split(strings.TrimSpace(string(out)), "\n")
}

func evalString(t *testing.T, i *interp.Interpreter, expr string) string {
	v, err := i.Eval(expr)
	require.NoError(t, err, expr)
	return v.String()
}

func termKey(t *testing.T, g *theory.Grammar, category, src string) string {
	expr, errs := parser.ParseTerm(src)
	require.False(t, errs.HasError(), "%v", errs.Errors())
	v, err := term.FromExpr(g, category, expr)
	require.NoError(t, err)
	return v.Key()
}

func TestTranspileRhoCalc(t *testing.T) {
	g := grammarOf(t, rhoCalc)
	src, errs := transpile(t, g, Options{})
	require.Empty(t, errs.Errors())

	assert.True(t, strings.HasPrefix(src, "package main"))
	for _, want := range []string{
		"type Proc interface",
		"type PInput struct",
		"F1 ScopeNameProc",
		"func InsertPPar(b ProcBag, e Proc) ProcBag",
		"SubstituteName(n Ident, r Name) Proc",
		"type ProcBag struct",
	} {
		assert.Contains(t, src, want)
	}
	assert.NotContains(t, src, "NameBag", "no constructor holds a collection of names")

	i := load(t, src)
	assert.Contains(t, i.Globals(), "identCounter")
}

func TestKeysMatchTerms(t *testing.T) {
	g := grammarOf(t, rhoCalc)
	src, _ := transpile(t, g, Options{})
	i := load(t, src)

	tests := []struct {
		name     string
		category string
		term     string
		goExpr   string
	}{
		{
			name:     "nullary",
			category: "Proc",
			term:     `PZero`,
			goExpr:   `(&PZero{}).Key()`,
		},
		{
			name:     "nested",
			category: "Proc",
			term:     `(PDrop (NQuote PZero))`,
			goExpr:   `(&PDrop{F0: &NQuote{F0: &PZero{}}}).Key()`,
		},
		{
			name:     "free name",
			category: "Name",
			term:     `a`,
			goExpr:   `(&NVar{F0: Ident{Text: "a"}}).Key()`,
		},
		{
			name:     "scope",
			category: "Proc",
			term:     `(PInput a x (PDrop x))`,
			goExpr:   `(&PInput{F0: &NVar{F0: Ident{Text: "a"}}, F1: NewScopeNameProc(Ident{Text: "x"}, &PDrop{F0: &NVar{F0: Ident{Text: "x"}}})}).Key()`,
		},
		{
			name:     "alpha equivalent scope",
			category: "Proc",
			term:     `(PInput a x (PDrop x))`,
			goExpr:   `(&PInput{F0: &NVar{F0: Ident{Text: "a"}}, F1: NewScopeNameProc(Ident{Text: "y"}, &PDrop{F0: &NVar{F0: Ident{Text: "y"}}})}).Key()`,
		},
		{
			name:     "nested scopes",
			category: "Proc",
			term:     `(PInput a x (PInput x y (PDrop x)))`,
			goExpr: `(&PInput{F0: &NVar{F0: Ident{Text: "a"}}, F1: NewScopeNameProc(Ident{Text: "x"},
				&PInput{F0: &NVar{F0: Ident{Text: "x"}}, F1: NewScopeNameProc(Ident{Text: "y"}, &PDrop{F0: &NVar{F0: Ident{Text: "x"}}})})}).Key()`,
		},
		{
			name:     "bag is unordered",
			category: "Proc",
			term:     `(PPar {(PDrop a), PZero, PZero})`,
			goExpr:   `(&PPar{F0: NewProcBag(&PZero{}, &PDrop{F0: &NVar{F0: Ident{Text: "a"}}}, &PZero{})}).Key()`,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, termKey(t, g, test.category, test.term), evalString(t, i, test.goExpr))
		})
	}
}

func TestNormalize(t *testing.T) {
	g := grammarOf(t, rhoCalc)
	src, _ := transpile(t, g, Options{})

	out := compileAndRun(t, src, `
	nested := &PPar{F0: NewProcBag(&PPar{F0: NewProcBag(&PZero{}, &PPar{F0: NewProcBag(&PZero{})})}, &PZero{})}
	fmt.Println(nested.Key())
	fmt.Println(nested.Normalize().Key())
	fmt.Println(nested.Normalize().Normalize().Key())
	drop := &PDrop{F0: &NVar{F0: Ident{Text: "a"}}}
	fmt.Println((&PPar{F0: NewProcBag(&PZero{}, &PPar{F0: NewProcBag(&PZero{}, drop)})}).Normalize().Key())
`)
	require.Len(t, out, 4)
	assert.NotEqual(t, out[1], out[0])
	assert.Equal(t, "PPar({PZero,PZero,PZero})", out[1])
	assert.Equal(t, out[1], out[2], "normalizing twice changes nothing")
	assert.Equal(t, termKey(t, g, "Proc", `(PPar {PZero, (PPar {PZero, (PDrop a)})})`), out[3])
}

func TestSubstitution(t *testing.T) {
	g := grammarOf(t, rhoCalc)
	src, _ := transpile(t, g, Options{})
	i := load(t, src)

	_, err := i.Eval(`var input = &PInput{F0: &NVar{F0: Ident{Text: "a"}}, F1: NewScopeNameProc(Ident{Text: "x"}, &PPar{F0: NewProcBag(&PDrop{F0: &NVar{F0: Ident{Text: "x"}}}, &PDrop{F0: &NVar{F0: Ident{Text: "y"}}})})}`)
	require.NoError(t, err)

	t.Run("free occurrences are replaced", func(t *testing.T) {
		got := evalString(t, i, `input.SubstituteName(Ident{Text: "y"}, &NQuote{F0: &PZero{}}).Key()`)
		assert.Equal(t, termKey(t, g, "Proc", `(PInput a x (PPar {(PDrop x), (PDrop (NQuote PZero))}))`), got)
	})
	t.Run("bound occurrences are shadowed", func(t *testing.T) {
		got := evalString(t, i, `input.SubstituteName(Ident{Text: "x"}, &NQuote{F0: &PZero{}}).Key()`)
		assert.Equal(t, evalString(t, i, `input.Key()`), got)
	})
	t.Run("binders are renamed instead of capturing", func(t *testing.T) {
		got := evalString(t, i, `input.SubstituteName(Ident{Text: "y"}, &NVar{F0: Ident{Text: "x"}}).Key()`)
		assert.Equal(t, `PInput(NVar($a),\.PPar({PDrop(NVar($x)),PDrop(NVar(^0))}))`, got)
	})
}

func TestUnbind(t *testing.T) {
	g := grammarOf(t, rhoCalc)
	src, _ := transpile(t, g, Options{})

	out := compileAndRun(t, src, `
	input := &PInput{F0: &NVar{F0: Ident{Text: "a"}}, F1: NewScopeNameProc(Ident{Text: "x"}, &PDrop{F0: &NVar{F0: Ident{Text: "x"}}})}
	fresh, body := input.F1.Unbind()
	fmt.Println(fresh.String())
	fmt.Println(body.Occurs(fresh))
	other, _ := input.F1.Unbind()
	fmt.Println(other != fresh)
`)
	require.Len(t, out, 3)
	assert.NotEqual(t, "x", out[0])
	assert.Equal(t, "true", out[1])
	assert.Equal(t, "true", out[2], "every unbind allocates a new name")
}

func TestNativeCategories(t *testing.T) {
	src := `
theory Arith {
  exports { Int: native i64 }
  terms {
    Add . Int ::= Int "+" Int ;
  }
  semantics { Add: + }
}
`
	g := grammarOf(t, src)
	goSrc, errs := transpile(t, g, Options{})
	require.Empty(t, errs.Errors())
	assert.Contains(t, goSrc, "F0 int64")

	i := load(t, goSrc)
	got := evalString(t, i, `(&Add{F0: &IntLit{F0: 2}, F1: &IntVar{F0: Ident{Text: "n"}}}).Key()`)
	assert.Equal(t, termKey(t, g, "Int", `(Add 2 n)`), got)
	got = evalString(t, i, `(&Add{F0: &IntLit{F0: 2}, F1: &IntVar{F0: Ident{Text: "n"}}}).SubstituteInt(Ident{Text: "n"}, &IntLit{F0: 40}).Key()`)
	assert.Equal(t, "Add(IntLit(2),IntLit(40))", got)
}

func TestSetsAndSequences(t *testing.T) {
	src := `
theory Coll {
  exports { Elem }
  terms {
    One  . Elem ::= "1" ;
    Many . Elem ::= HashSet(Elem) sep "," delim "{" "}" ;
    Seq  . Elem ::= Vec(Elem) sep ";" delim "[" "]" ;
  }
}
`
	g := grammarOf(t, src)
	goSrc, errs := transpile(t, g, Options{Package: "coll"})
	require.Empty(t, errs.Errors())
	assert.True(t, strings.HasPrefix(goSrc, "package coll"))
	assert.Contains(t, goSrc, "func InsertMany(b ElemSet, e Elem) ElemSet")
	assert.NotContains(t, goSrc, "InsertSeq", "sequences never flatten")

	i := load(t, strings.Replace(goSrc, "package coll", "package main", 1))
	assert.Equal(t, termKey(t, g, "Elem", `(Many {One, One})`), evalString(t, i, `(&Many{F0: NewElemSet(&One{}, &One{})}).Key()`))
	assert.Equal(t, "Seq([One,Many(#{})])", evalString(t, i, `(&Seq{F0: NewElemVec(&One{}, &Many{})}).Key()`))
}

func TestUnrepresentableShapes(t *testing.T) {
	t.Run("unknown native type", func(t *testing.T) {
		g := grammarOf(t, `theory F { exports { Num: native f32 } terms { Neg . Num ::= "-" Num ; } }`)
		src, errs := transpile(t, g, Options{})
		require.False(t, errs.HasError())
		require.Len(t, errs.Warnings(), 1)
		assert.Equal(t, tcerr.UnsupportedShape, errs.Warnings()[0].Code())
		assert.NotContains(t, src, "type NumLit struct")
		assert.Contains(t, src, "type Neg struct")
		load(t, src)
	})
	t.Run("generated names clash", func(t *testing.T) {
		g := grammarOf(t, `theory C { exports { Proc } terms { Ident . Proc ::= "i" ; } }`)
		_, errs := transpile(t, g, Options{})
		require.True(t, errs.HasError())
		assert.Equal(t, tcerr.DuplicateConstructor, errs.Fatal()[0].Code())
	})
}
