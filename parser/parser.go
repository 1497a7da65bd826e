package parser

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/theory"
	"go/token"
	"strconv"
	"strings"
)

// envPrefix marks identifiers naming environment relations in conditions and actions
const envPrefix = "env_"

type parseError struct {
	at   theory.Positioner
	msg  string
	hint string
}

type parser struct {
	toks []tok
	i    int
}

func (p *parser) peek() tok {
	return p.toks[p.i]
}

func (p *parser) peekN(n int) tok {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() tok {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) fail(at theory.Positioner, format string, args ...any) {
	panic(&parseError{at: theory.RangeOf(at), msg: fmt.Sprintf(format, args...)})
}

func (p *parser) failHint(at theory.Positioner, hint string, format string, args ...any) {
	panic(&parseError{at: theory.RangeOf(at), msg: fmt.Sprintf(format, args...), hint: hint})
}

func (p *parser) expect(kind tokKind) tok {
	t := p.next()
	if t.kind != kind {
		p.fail(t, "expected %s, found %s", kind, t)
	}
	return t
}

func (p *parser) accept(kind tokKind) (tok, bool) {
	if p.peek().kind == kind {
		return p.next(), true
	}
	return tok{}, false
}

func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.kind == tokIdent && t.text == text
}

func (p *parser) expectKeyword(text string) tok {
	t := p.next()
	if t.kind != tokIdent || t.text != text {
		p.fail(t, "expected '%s', found %s", text, t)
	}
	return t
}

func (p *parser) ident() tok {
	t := p.expect(tokIdent)
	return t
}

// userIdent is an identifier the theory author chose. Those starting with an
// underscore are reserved for generated names.
func (p *parser) userIdent() tok {
	t := p.ident()
	if strings.HasPrefix(t.text, "_") {
		p.failHint(t, "rename it so it does not start with '_'", "identifier '%s' is reserved", t.text)
	}
	return t
}

func rangeOf(from, to theory.Positioner) theory.Range {
	return theory.RangeBetween(from, to)
}

func (p *parser) theory() *theory.TheoryDef {
	start := p.expectKeyword("theory")
	name := p.userIdent()
	def := &theory.TheoryDef{Name: name.text}
	p.expect(tokLBrace)
	for p.peek().kind != tokRBrace {
		section := p.ident()
		switch section.text {
		case "exports":
			def.Exports = append(def.Exports, p.exports()...)
		case "terms":
			def.Terms = append(def.Terms, p.terms()...)
		case "equations":
			def.Equations = append(def.Equations, p.equations(len(def.Equations))...)
		case "rewrites":
			def.Rewrites = append(def.Rewrites, p.rewrites(len(def.Rewrites))...)
		case "semantics":
			def.Semantics = append(def.Semantics, p.semantics()...)
		default:
			p.failHint(section, "sections are exports, terms, equations, rewrites and semantics", "unknown section '%s'", section.text)
		}
	}
	end := p.expect(tokRBrace)
	p.expect(tokEOF)
	def.Range = rangeOf(start, end)
	return def
}

// block parses `{ entry ; entry ; ... }`, the trailing semicolon being optional
func (p *parser) block(entry func()) {
	p.expect(tokLBrace)
	for p.peek().kind != tokRBrace {
		entry()
		if _, ok := p.accept(tokSemicolon); !ok && p.peek().kind != tokRBrace {
			t := p.peek()
			p.fail(t, "expected ';' or '}', found %s", t)
		}
	}
	p.expect(tokRBrace)
}

func (p *parser) exports() []theory.Export {
	var exports []theory.Export
	p.block(func() {
		name := p.userIdent()
		export := theory.Export{Range: theory.RangeOf(name), Name: name.text}
		if _, ok := p.accept(tokColon); ok {
			p.expectKeyword("native")
			native := p.ident()
			export.Native = native.text
			export.Range = rangeOf(name, native)
		}
		exports = append(exports, export)
	})
	return exports
}

func (p *parser) terms() []*theory.GrammarRule {
	var rules []*theory.GrammarRule
	p.block(func() {
		label := p.userIdent()
		p.expect(tokPeriod)
		category := p.userIdent()
		p.expect(tokDefine)
		rule := &theory.GrammarRule{Label: label.text, Category: category.text}
		var last theory.Positioner = category
		for p.peek().kind != tokSemicolon && p.peek().kind != tokRBrace {
			item := p.item()
			rule.Items = append(rule.Items, item)
			last = item
		}
		rule.Range = rangeOf(label, last)
		rules = append(rules, rule)
	})
	return rules
}

var collectionKinds = map[string]theory.CollectionKind{
	"HashBag": theory.MultiSet,
	"HashSet": theory.Set,
	"Vec":     theory.Sequence,
}

func (p *parser) item() theory.GrammarItem {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return theory.Terminal{Range: theory.RangeOf(t), Text: t.text}
	case tokLess:
		p.next()
		category := p.userIdent()
		end := p.expect(tokGreater)
		return theory.Binder{Range: rangeOf(t, end), Category: category.text}
	case tokIdent:
		p.next()
		kind, isCollection := collectionKinds[t.text]
		if !isCollection || p.peek().kind != tokLParen {
			return theory.NonTerminal{Range: theory.RangeOf(t), Category: t.text}
		}
		p.expect(tokLParen)
		elem := p.userIdent()
		var end theory.Positioner = p.expect(tokRParen)
		c := theory.Collection{Kind: kind, Element: elem.text}
		if p.isKeyword("sep") {
			p.next()
			sep := p.expect(tokString)
			c.Separator = sep.text
			end = sep
		}
		if p.isKeyword("delim") {
			p.next()
			c.Open = p.expect(tokString).text
			closing := p.expect(tokString)
			c.Close = closing.text
			end = closing
		}
		c.Range = rangeOf(t, end)
		return c
	default:
		p.failHint(t, "grammar items are strings, categories, <Binder>s and collections", "unexpected %s in grammar rule", t)
		return nil
	}
}

func (p *parser) equations(offset int) []*theory.Equation {
	var eqs []*theory.Equation
	p.block(func() {
		start := p.peek()
		eq := &theory.Equation{Index: offset + len(eqs)}
		if p.isKeyword("if") {
			p.next()
			for {
				cond := p.condition()
				fresh, ok := cond.(theory.Freshness)
				if !ok {
					p.failHint(cond, "equations only accept 'x # T' conditions", "unexpected condition in equation")
				}
				eq.Freshness = append(eq.Freshness, fresh)
				if _, more := p.accept(tokComma); !more {
					break
				}
			}
			p.expectKeyword("then")
		}
		eq.Left = p.expr()
		p.expect(tokEqual)
		eq.Right = p.expr()
		eq.Range = rangeOf(start, eq.Right)
		eqs = append(eqs, eq)
	})
	return eqs
}

// premiseCondition is only produced while parsing, and moved into RewriteRule.Premise
type premiseCondition struct {
	theory.Premise
}

func (p *parser) rewrites(offset int) []*theory.RewriteRule {
	var rules []*theory.RewriteRule
	p.block(func() {
		start := p.peek()
		rule := &theory.RewriteRule{Index: offset + len(rules)}
		if p.isKeyword("if") {
			p.next()
			for {
				switch cond := p.condition().(type) {
				case *premiseCondition:
					if rule.Premise != nil {
						p.fail(cond, "a rewrite rule takes at most one premise")
					}
					premise := cond.Premise
					rule.Premise = &premise
				case theory.Condition:
					rule.Conditions = append(rule.Conditions, cond)
				}
				if _, more := p.accept(tokComma); !more {
					break
				}
			}
			p.expectKeyword("then")
		}
		rule.Left = p.expr()
		p.expect(tokArrow)
		rule.Right = p.expr()
		var end theory.Positioner = rule.Right
		if p.isKeyword("then") {
			p.next()
			for {
				action := p.action()
				rule.Actions = append(rule.Actions, action)
				end = action
				if _, more := p.accept(tokComma); !more {
					break
				}
			}
		}
		rule.Range = rangeOf(start, end)
		rules = append(rules, rule)
	})
	return rules
}

// condition parses `x # T`, `S => T` or `env_rel(a, b)`
func (p *parser) condition() theory.Positioner {
	first := p.userIdent()
	if strings.HasPrefix(first.text, envPrefix) && p.peek().kind == tokLParen {
		p.next()
		query := theory.EnvQuery{Relation: strings.TrimPrefix(first.text, envPrefix)}
		for p.peek().kind != tokRParen {
			query.Args = append(query.Args, p.userIdent().text)
			if _, ok := p.accept(tokComma); !ok {
				break
			}
		}
		end := p.expect(tokRParen)
		query.Range = rangeOf(first, end)
		return query
	}
	switch t := p.next(); t.kind {
	case tokHash:
		term := p.userIdent()
		return theory.Freshness{Range: rangeOf(first, term), Var: first.text, Term: term.text}
	case tokArrow:
		target := p.userIdent()
		return &premiseCondition{theory.Premise{Range: rangeOf(first, target), Source: first.text, Target: target.text}}
	default:
		p.failHint(t, "conditions are 'x # T', 'S => T' or 'env_name(args)'", "unexpected %s in condition", t)
		return nil
	}
}

func (p *parser) action() theory.EnvAction {
	name := p.userIdent()
	if !strings.HasPrefix(name.text, envPrefix) {
		p.failHint(name, "actions assert facts like 'env_name(args)'", "unexpected action '%s'", name.text)
	}
	action := theory.EnvAction{Relation: strings.TrimPrefix(name.text, envPrefix)}
	p.expect(tokLParen)
	for p.peek().kind != tokRParen {
		action.Args = append(action.Args, p.expr())
		if _, ok := p.accept(tokComma); !ok {
			break
		}
	}
	end := p.expect(tokRParen)
	action.Range = rangeOf(name, end)
	return action
}

var semanticOps = map[tokKind]token.Token{
	tokPlus:  token.ADD,
	tokMinus: token.SUB,
	tokStar:  token.MUL,
	tokSlash: token.QUO,
}

func (p *parser) semantics() []theory.SemanticRule {
	var rules []theory.SemanticRule
	p.block(func() {
		label := p.userIdent()
		p.expect(tokColon)
		t := p.next()
		op, ok := semanticOps[t.kind]
		if !ok {
			p.failHint(t, "operators are + - * /", "unexpected %s in semantics", t)
		}
		rules = append(rules, theory.SemanticRule{Range: rangeOf(label, t), Constructor: label.text, Op: op})
	})
	return rules
}

func (p *parser) expr() theory.Expr {
	t := p.peek()
	switch t.kind {
	case tokIdent:
		p.next()
		if next := p.peek(); next.kind == tokLBrace && next.pos == t.end {
			return p.collection(t.text, t)
		}
		if strings.HasPrefix(t.text, "_") {
			p.failHint(t, "rename it so it does not start with '_'", "identifier '%s' is reserved", t.text)
		}
		return &theory.Var{Range: theory.RangeOf(t), Name: t.text}
	case tokInt, tokMinus:
		return p.literal()
	case tokLBrace:
		return p.collection("", t)
	case tokLParen:
		p.next()
		head := p.userIdent()
		if head.text == "subst" {
			term := p.expr()
			v := p.userIdent()
			repl := p.expr()
			end := p.expect(tokRParen)
			return &theory.Subst{Range: rangeOf(t, end), Term: term, Var: v.text, Replacement: repl}
		}
		apply := &theory.Apply{Constructor: head.text}
		for p.peek().kind != tokRParen {
			if p.peek().kind == tokEOF {
				p.fail(p.peek(), "unclosed application of '%s'", head.text)
			}
			apply.Args = append(apply.Args, p.expr())
		}
		end := p.expect(tokRParen)
		apply.Range = rangeOf(t, end)
		return apply
	default:
		p.failHint(t, "expressions are variables, integers, (Constructor args...) or {elements}", "unexpected %s in expression", t)
		return nil
	}
}

func (p *parser) literal() theory.Expr {
	start := p.peek()
	negative := false
	if _, ok := p.accept(tokMinus); ok {
		negative = true
	}
	t := p.expect(tokInt)
	text := t.text
	if negative {
		text = "-" + text
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		p.fail(t, "integer literal %s out of range", text)
	}
	return &theory.Literal{Range: rangeOf(start, t), Value: v}
}

func (p *parser) collection(constructor string, start tok) theory.Expr {
	p.expect(tokLBrace)
	c := &theory.CollectionPattern{Constructor: constructor}
	for p.peek().kind != tokRBrace {
		if _, ok := p.accept(tokEllipsis); ok {
			c.Rest = p.userIdent().text
			break
		}
		c.Elements = append(c.Elements, p.expr())
		if _, ok := p.accept(tokComma); !ok {
			break
		}
	}
	end := p.expect(tokRBrace)
	c.Range = rangeOf(start, end)
	return c
}
