package main

import (
	"context"
	"embed"
	"io/fs"
	"path"
	"strings"
	"testing"

	"github.com/cottand/theoryc/engine"
	"github.com/cottand/theoryc/term"
	"github.com/cottand/theoryc/theoryc"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// embeds the test folder
//
//go:embed testdata
var testSet embed.FS

// directive is one expectation written at the top of a test theory, as
//
//	//theoryc:rewrites Category | term | successor ; successor
//	//theoryc:equivalent Category | term | term
//	//theoryc:normal Category | term
type directive struct {
	kind     string
	category string
	args     []string
}

func extractDirectives(t *testing.T, src string) []directive {
	var res []directive
	for _, line := range strings.Split(src, "\n") {
		rest, ok := strings.CutPrefix(line, "//theoryc:")
		if !ok {
			continue
		}
		kind, rest, _ := strings.Cut(rest, " ")
		elems := lo.Map(strings.Split(rest, "|"), func(s string, _ int) string { return strings.TrimSpace(s) })
		if len(elems) < 2 {
			t.Fatalf("could not parse directive: '%v'", line)
		}
		res = append(res, directive{kind: kind, category: elems[0], args: elems[1:]})
	}
	return res
}

func TestTheoriesEndToEnd(t *testing.T) {
	files, err := testSet.ReadDir("testdata")
	require.NoError(t, err)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), theoryc.Extension) {
			continue
		}
		testFile(t, f)
	}
}

func testFile(t *testing.T, f fs.DirEntry) bool {
	return t.Run(f.Name(), func(t *testing.T) {
		content, err := testSet.ReadFile(path.Join("testdata", f.Name()))
		require.NoError(t, err)

		th := theoryc.Compile(string(content))
		require.False(t, th.Diagnostics().HasError(), th.FormatDiagnostics())

		// the Go types must compile
		goSrc, err := th.GoSource()
		require.NoError(t, err)
		i := interp.New(interp.Options{})
		require.NoError(t, i.Use(stdlib.Symbols))
		_, err = i.Eval(string(goSrc))
		require.NoError(t, err, "go program:\n-------\n%s---------", goSrc)

		directives := extractDirectives(t, string(content))
		require.NotEmpty(t, directives)

		build := func(category, src string) theoryc.Ground {
			g, err := th.Term(category, src)
			require.NoError(t, err)
			return g
		}
		var grounds []theoryc.Ground
		for _, d := range directives {
			grounds = append(grounds, build(d.category, d.args[0]))
		}
		en, err := th.Evaluate(context.Background(), engine.Options{MaxIterations: 500}, grounds...)
		require.NoError(t, err)

		for _, d := range directives {
			subject := build(d.category, d.args[0]).Value
			switch d.kind {
			case "rewrites":
				require.Len(t, d.args, 2)
				expected := lo.Map(strings.Split(d.args[1], ";"), func(s string, _ int) string {
					return build(d.category, strings.TrimSpace(s)).Value.Key()
				})
				successors, err := en.Successors(d.category, subject)
				require.NoError(t, err)
				assert.ElementsMatch(t, expected, lo.Map(successors, func(v term.Value, _ int) string { return v.Key() }), subject.String())
			case "normal":
				successors, err := en.Successors(d.category, subject)
				require.NoError(t, err)
				assert.Empty(t, successors, subject.String())
			case "equivalent":
				require.Len(t, d.args, 2)
				other := build(d.category, d.args[1]).Value
				eq, err := en.Equivalent(d.category, subject, other)
				require.NoError(t, err)
				assert.True(t, eq, "%s and %s", subject, other)
			default:
				t.Fatalf("unknown directive %s", d.kind)
			}
		}
	})
}
