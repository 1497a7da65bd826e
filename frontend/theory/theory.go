package theory

import (
	"github.com/cottand/theoryc/internal/log"
	"go/token"
)

var theoryLogger = log.DefaultLogger.With("section", "theory")

// Export is a category exported by a theory, optionally backed by a native scalar type
type Export struct {
	Range
	Name   string
	Native string
}

// SemanticRule annotates a constructor of a native-backed category with the
// operator that evaluates it
type SemanticRule struct {
	Range
	Constructor string
	Op          token.Token
}

// TheoryDef is the root of a parsed theory. It is not mutated after Prepare.
type TheoryDef struct {
	Range
	Name      string
	Exports   []Export
	Terms     []*GrammarRule
	Equations []*Equation
	Rewrites  []*RewriteRule
	Semantics []SemanticRule
}

// VarLabel is the label given to the implicit Var variant of category
func VarLabel(category string) string {
	return category + "Var"
}

// LitLabel is the label given to the literal variant of a native category
func LitLabel(category string) string {
	return category + "Lit"
}

// Prepare infers missing bindings, then adds the implicit Var variant to every exported
// category that lacks one, and a literal variant to every native-backed category.
func (def *TheoryDef) Prepare() {
	labels := make(map[string]bool, len(def.Terms))
	hasVar := map[string]bool{}
	hasLit := map[string]bool{}
	for _, r := range def.Terms {
		if r.Bindings == nil {
			r.Bindings = InferBindings(r.Items)
		}
		labels[r.Label] = true
		if r.IsVarVariant() {
			hasVar[r.Category] = true
		}
		if r.IsLiteral() {
			hasLit[r.Category] = true
		}
	}
	for _, export := range def.Exports {
		if export.Native != "" && !hasLit[export.Name] {
			label := LitLabel(export.Name)
			if labels[label] {
				theoryLogger.Warn("cannot add literal variant, label already taken", "label", label)
			} else {
				def.Terms = append(def.Terms, &GrammarRule{
					Range:    export.Range,
					Label:    label,
					Category: export.Name,
					Items:    []GrammarItem{Native{Range: export.Range, Type: export.Native}},
					Implicit: true,
				})
				labels[label] = true
			}
		}
		if hasVar[export.Name] {
			continue
		}
		label := VarLabel(export.Name)
		if labels[label] {
			theoryLogger.Warn("cannot add implicit Var variant, label already taken", "label", label)
			continue
		}
		def.Terms = append(def.Terms, &GrammarRule{
			Range:    export.Range,
			Label:    label,
			Category: export.Name,
			Items:    []GrammarItem{NonTerminal{Range: export.Range, Category: VarCategory}},
			Implicit: true,
		})
		labels[label] = true
	}
}
