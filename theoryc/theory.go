// Package theoryc compiles a theory end to end: parsing, rule generation and
// Go emission, collecting the diagnostics of every phase.
package theoryc

import (
	goast "go/ast"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/cottand/theoryc/backend"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/internal/log"
	"github.com/cottand/theoryc/ir"
	"github.com/cottand/theoryc/parser"
	"github.com/cottand/theoryc/rulegen"
	"github.com/pkg/errors"
)

var theorycLogger = log.DefaultLogger.With("section", "theoryc")

// Extension is the file extension of theory sources
const Extension = ".theory"

type LoadSettings struct {
	// Dir is the path of the folder in the filesystem where the theory is located
	// the default is `.`
	Dir string
	// File is the theory file within Dir. If empty, the first file with
	// Extension in Dir is used
	File string

	Rules rulegen.Options
	Go    backend.Options
}

// Theory is one compiled theory. A Theory whose Diagnostics hold an error has
// no program, and no Go file unless the error came from Go emission.
type Theory struct {
	name   string
	source string

	def        *theory.TheoryDef
	grammar    *theory.Grammar
	program    *ir.Program
	goFile     *goast.File
	transpiler *backend.Transpiler
	errors     *tcerr.Errors
}

// LoadTheory reads a theory from dir and compiles it.
// The error is only set when the theory could not be read; compile errors are in Theory.Diagnostics.
func LoadTheory(dir fs.FS, settings LoadSettings) (*Theory, error) {
	dirPath := settings.Dir
	if dirPath == "" {
		dirPath = "."
	}
	fileName := settings.File
	if fileName == "" {
		entries, err := fs.ReadDir(dir, dirPath)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", dirPath)
		}
		var candidates []string
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), Extension) {
				candidates = append(candidates, entry.Name())
			}
		}
		if len(candidates) == 0 {
			return nil, errors.Errorf("no %s file in %s", Extension, dirPath)
		}
		if len(candidates) > 1 {
			theorycLogger.Warn("multiple theories found, using the first one", "dir", dirPath, "using", candidates[0])
		}
		fileName = candidates[0]
	}
	src, err := fs.ReadFile(dir, path.Join(dirPath, fileName))
	if err != nil {
		return nil, errors.Wrapf(err, "reading theory %s", fileName)
	}
	return CompileWith(string(src), settings), nil
}

// Compile does every phase end to end for a theory given as source, with default settings
func Compile(src string) *Theory {
	return CompileWith(src, LoadSettings{})
}

func CompileWith(src string, settings LoadSettings) *Theory {
	t := &Theory{source: src}
	def, errs := parser.ParseTheory(src)
	t.errors = t.errors.Merge(errs)
	if errs.HasError() {
		theorycLogger.Debug("theory does not parse", "errors", errs)
		return t
	}
	t.def = def
	t.name = def.Name
	t.grammar = theory.NewGrammar(def)

	prog, errs := rulegen.Generate(def, settings.Rules)
	t.errors = t.errors.Merge(errs)
	if !errs.HasError() {
		t.program = prog
	}

	t.transpiler = backend.NewTranspiler(t.grammar, settings.Go)
	file, errs := t.transpiler.TranspileTheory()
	t.errors = t.errors.Merge(errs)
	if !errs.HasError() {
		t.goFile = file
	}
	theorycLogger.Info("compiled theory", "name", t.name, "diagnostics", len(t.errors.Errors()), "error", t.errors.HasError())
	return t
}

func (t *Theory) Name() string { return t.name }

// Source is the text the theory was compiled from
func (t *Theory) Source() string { return t.source }

func (t *Theory) Grammar() *theory.Grammar { return t.grammar }

// Program is the generated rule program, nil if rule generation failed
func (t *Theory) Program() *ir.Program { return t.program }

// GoFile is the generated Go file, nil if Go emission failed
func (t *Theory) GoFile() *goast.File { return t.goFile }

// Diagnostics returns the errors and warnings of every phase
func (t *Theory) Diagnostics() *tcerr.Errors { return t.errors }

// GoSource renders GoFile
func (t *Theory) GoSource() ([]byte, error) {
	if t.goFile == nil {
		return nil, errors.New("theory has no Go output")
	}
	return t.transpiler.Render(t.goFile)
}

// Datalog renders Program in rule notation
func (t *Theory) Datalog() (string, error) {
	if t.program == nil {
		return "", errors.New("theory has no rule program")
	}
	return t.program.String(), nil
}

// FormatDiagnostics shows every diagnostic with the source line it points at, one per paragraph
func (t *Theory) FormatDiagnostics() string {
	sb := strings.Builder{}
	for i, e := range t.errors.Errors() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(tcerr.FormatWithSource(e, t.source))
		sb.WriteString("\n")
	}
	return sb.String()
}

// OutputName is the base name of the files WriteOutputs writes
func (t *Theory) OutputName() string {
	return strings.ToLower(t.name)
}

// WriteOutputs writes the Go file and the rule program of the theory to dir,
// as <name>.go and <name>.dl
func (t *Theory) WriteOutputs(dir string) error {
	if t.errors.HasError() {
		return errors.Errorf("theory %s has errors", t.name)
	}
	goSrc, err := t.GoSource()
	if err != nil {
		return err
	}
	datalog, err := t.Datalog()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "create output directory")
	}
	goPath := path.Join(dir, t.OutputName()+".go")
	if err := os.WriteFile(goPath, goSrc, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", goPath)
	}
	dlPath := path.Join(dir, t.OutputName()+".dl")
	if err := os.WriteFile(dlPath, []byte(datalog), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", dlPath)
	}
	theorycLogger.Debug("wrote outputs", "go", goPath, "datalog", dlPath)
	return nil
}
