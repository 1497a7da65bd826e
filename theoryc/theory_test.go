package theoryc

import (
	"context"
	"os"
	"path"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/cottand/theoryc/backend"
	"github.com/cottand/theoryc/engine"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const comm = `theory Comm {
  exports { Proc; Name }
  terms {
    PZero  . Proc ::= "0" ;
    PDrop  . Proc ::= "*" Name ;
    PInput . Proc ::= "for" "(" Name "->" <Name> ")" "{" Proc "}" ;
    POutput. Proc ::= Name "!" "(" Proc ")" ;
    PPar   . Proc ::= HashBag(Proc) sep "|" delim "{" "}" ;
    NQuote . Name ::= "@" "(" Proc ")" ;
  }
  rewrites {
    (PPar {(PInput chan x P), (POutput chan Q), ...rest}) => (PPar {(subst P x (NQuote Q)), ...rest}) ;
  }
}
`

func testDiagnostics(t *testing.T, src string, shouldContain ...string) *Theory {
	th := Compile(src)
	msg := th.FormatDiagnostics()
	for _, s := range shouldContain {
		assert.Contains(t, msg, s)
	}
	t.Log("diagnostics:\n" + msg)
	return th
}

func TestLoadTheory(t *testing.T) {
	filesystem := fstest.MapFS{
		"comm/comm.theory": &fstest.MapFile{Data: []byte(comm)},
		"comm/README.md":   &fstest.MapFile{Data: []byte("not a theory")},
	}
	th, err := LoadTheory(filesystem, LoadSettings{Dir: "comm"})
	require.NoError(t, err)
	require.Empty(t, th.Diagnostics().Errors())
	assert.Equal(t, "Comm", th.Name())
	assert.NotNil(t, th.Program())
	assert.NotNil(t, th.GoFile())

	_, err = LoadTheory(filesystem, LoadSettings{Dir: "comm", File: "missing.theory"})
	assert.Error(t, err)
	_, err = LoadTheory(fstest.MapFS{"a.txt": &fstest.MapFile{}}, LoadSettings{})
	assert.ErrorContains(t, err, "no .theory file")
}

func TestWriteOutputs(t *testing.T) {
	th := Compile(comm)
	dir := path.Join(t.TempDir(), "out")
	require.NoError(t, th.WriteOutputs(dir))

	goSrc, err := os.ReadFile(path.Join(dir, "comm.go"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(goSrc), "package main"))
	assert.Contains(t, string(goSrc), "type PPar struct")

	datalog, err := os.ReadFile(path.Join(dir, "comm.dl"))
	require.NoError(t, err)
	assert.Contains(t, string(datalog), "rw_proc")
}

func TestGoPackageSetting(t *testing.T) {
	src, err := CompileWith(comm, LoadSettings{Go: backend.Options{Package: "comm"}}).GoSource()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(src), "package comm"))
}

func TestErrorOffsets(t *testing.T) {
	t.Run("unbound variable", func(t *testing.T) {
		src := `theory T {
  exports { Proc }
  terms {
    PZero . Proc ::= "0" ;
    PDrop . Proc ::= "*" Proc ;
  }
  rewrites {
    (PDrop P) => (PDrop Q) ;
  }
}`
		th := testDiagnostics(t, src, "8:")
		require.True(t, th.Diagnostics().HasError())
		assert.Equal(t, tcerr.UnboundVariable, th.Diagnostics().Fatal()[0].Code())
		assert.Nil(t, th.Program())
		_, err := th.Datalog()
		assert.Error(t, err)
		assert.Error(t, th.WriteOutputs(t.TempDir()))
	})
	t.Run("parse error", func(t *testing.T) {
		th := testDiagnostics(t, "theory T {\n  exports { Proc \n", "error")
		assert.True(t, th.Diagnostics().HasError())
		assert.Nil(t, th.Grammar())
		_, err := th.Term("Proc", "PZero")
		assert.Error(t, err)
	})
}

func TestEvaluate(t *testing.T) {
	th := Compile(comm)
	require.False(t, th.Diagnostics().HasError())

	g, err := th.Term("Proc", `(PPar {(PInput a x (PDrop x)), (POutput a PZero)})`)
	require.NoError(t, err)
	en, err := th.Evaluate(context.Background(), engine.Options{MaxIterations: 100}, g)
	require.NoError(t, err)

	succ, err := en.Successors("Proc", g.Value)
	require.NoError(t, err)
	require.Len(t, succ, 1)
	assert.Equal(t, "(PPar {(PDrop (NQuote PZero))})", succ[0].String())

	_, err = th.Term("Nope", "PZero")
	assert.ErrorContains(t, err, "unknown category")
	_, err = th.Term("Proc", "(PDrop")
	assert.Error(t, err)
}
