package parser

import (
	"errors"
	"github.com/cottand/theoryc/frontend/tcerr"
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/cottand/theoryc/internal/log"
	"go/token"
)

var parserLogger = log.DefaultLogger.With("section", "parser")

// ParseTheory parses the textual notation of a theory and prepares it for
// code generation (see theory.TheoryDef.Prepare).
// The returned TheoryDef is nil when errors contains at least one error.
func ParseTheory(src string) (*theory.TheoryDef, *tcerr.Errors) {
	var def *theory.TheoryDef
	errs := run(src, func(p *parser) {
		def = p.theory()
	})
	if errs.HasError() {
		return nil, errs
	}
	errs = errs.Merge(validate(def))
	if errs.HasError() {
		return nil, errs
	}
	def.Prepare()
	parserLogger.Debug("parsed theory", "name", def.Name, "terms", len(def.Terms), "equations", len(def.Equations), "rewrites", len(def.Rewrites))
	return def, errs
}

// ParseExpr parses a single pattern or construction expression
func ParseExpr(src string) (theory.Expr, *tcerr.Errors) {
	var expr theory.Expr
	errs := run(src, func(p *parser) {
		expr = p.expr()
		p.expect(tokEOF)
	})
	if errs.HasError() {
		return nil, errs
	}
	return expr, errs
}

// ParseTerm parses a ground term: an expression without substitutions or rest captures
func ParseTerm(src string) (theory.Expr, *tcerr.Errors) {
	terms, errs := ParseTerms(src)
	if errs.HasError() {
		return nil, errs
	}
	if len(terms) != 1 {
		return nil, errs.With(tcerr.New(tcerr.NewParse{
			Positioner:    theory.Range{PosStart: posOf(0), PosEnd: posOf(len(src))},
			ParserMessage: "expected exactly one term",
		}))
	}
	return terms[0], errs
}

// ParseTerms parses ground terms separated by semicolons
func ParseTerms(src string) ([]theory.Expr, *tcerr.Errors) {
	var terms []theory.Expr
	errs := run(src, func(p *parser) {
		for p.peek().kind != tokEOF {
			terms = append(terms, p.groundTerm(p.expr()))
			if _, ok := p.accept(tokSemicolon); !ok {
				break
			}
		}
		p.expect(tokEOF)
	})
	if errs.HasError() {
		return nil, errs
	}
	return terms, errs
}

func (p *parser) groundTerm(e theory.Expr) theory.Expr {
	switch e := e.(type) {
	case *theory.Subst:
		p.fail(e, "substitutions are not allowed in ground terms")
	case *theory.Apply:
		for _, arg := range e.Args {
			p.groundTerm(arg)
		}
	case *theory.CollectionPattern:
		if e.Rest != "" {
			p.fail(e, "rest captures are not allowed in ground terms")
		}
		for _, elem := range e.Elements {
			p.groundTerm(elem)
		}
	}
	return e
}

// run tokenizes src and runs parse, converting lexer and parser failures into diagnostics
func run(src string, parse func(p *parser)) (errs *tcerr.Errors) {
	toks, err := tokenize(src)
	if err != nil {
		var lexErr *lexError
		if errors.As(err, &lexErr) {
			return errs.With(tcerr.New(tcerr.NewParse{
				Positioner:    theory.Range{PosStart: lexErr.pos, PosEnd: lexErr.pos + 1},
				ParserMessage: lexErr.msg,
			}))
		}
		return errs.With(tcerr.New(tcerr.Unclassified{From: err, Positioner: theory.Range{PosStart: token.NoPos}}))
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		pErr, ok := r.(*parseError)
		if !ok {
			panic(r)
		}
		errs = errs.With(tcerr.New(tcerr.NewParse{
			Positioner:    pErr.at,
			ParserMessage: pErr.msg,
			Hint:          pErr.hint,
		}))
	}()
	parse(&parser{toks: toks})
	return errs
}
