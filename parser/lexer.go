package parser

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokInt
	tokPeriod    // .
	tokDefine    // ::=
	tokSemicolon // ;
	tokColon     // :
	tokComma     // ,
	tokLBrace    // {
	tokRBrace    // }
	tokLParen    // (
	tokRParen    // )
	tokLess      // <
	tokGreater   // >
	tokEllipsis  // ...
	tokEqual     // ==
	tokArrow     // =>
	tokHash      // #
	tokPlus      // +
	tokMinus     // -
	tokStar      // *
	tokSlash     // /
)

var tokNames = map[tokKind]string{
	tokEOF:       "end of input",
	tokIdent:     "identifier",
	tokString:    "string",
	tokInt:       "integer",
	tokPeriod:    "'.'",
	tokDefine:    "'::='",
	tokSemicolon: "';'",
	tokColon:     "':'",
	tokComma:     "','",
	tokLBrace:    "'{'",
	tokRBrace:    "'}'",
	tokLParen:    "'('",
	tokRParen:    "')'",
	tokLess:      "'<'",
	tokGreater:   "'>'",
	tokEllipsis:  "'...'",
	tokEqual:     "'=='",
	tokArrow:     "'=>'",
	tokHash:      "'#'",
	tokPlus:      "'+'",
	tokMinus:     "'-'",
	tokStar:      "'*'",
	tokSlash:     "'/'",
}

func (k tokKind) String() string {
	if name, ok := tokNames[k]; ok {
		return name
	}
	return fmt.Sprintf("tokKind(%d)", int(k))
}

// punctuation, longest first
var punctuation = []struct {
	text string
	kind tokKind
}{
	{"::=", tokDefine},
	{"...", tokEllipsis},
	{"==", tokEqual},
	{"=>", tokArrow},
	{".", tokPeriod},
	{";", tokSemicolon},
	{":", tokColon},
	{",", tokComma},
	{"{", tokLBrace},
	{"}", tokRBrace},
	{"(", tokLParen},
	{")", tokRParen},
	{"<", tokLess},
	{">", tokGreater},
	{"#", tokHash},
	{"+", tokPlus},
	{"-", tokMinus},
	{"*", tokStar},
	{"/", tokSlash},
}

type tok struct {
	kind tokKind
	// text is the unquoted value for strings
	text string
	pos  token.Pos
	end  token.Pos
}

func (t tok) Pos() token.Pos { return t.pos }
func (t tok) End() token.Pos { return t.end }

func (t tok) String() string {
	switch t.kind {
	case tokIdent, tokInt:
		return fmt.Sprintf("%s '%s'", t.kind, t.text)
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return t.kind.String()
	}
}

// lexError is raised by tokenize and carries the offending offset
type lexError struct {
	pos token.Pos
	msg string
}

func (e *lexError) Error() string { return e.msg }

// positions are 1-based byte offsets so that token.NoPos stays invalid
func posOf(offset int) token.Pos {
	return token.Pos(offset + 1)
}

func tokenize(src string) ([]tok, error) {
	var toks []tok
	i := 0
	for i < len(src) {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
			continue
		case strings.HasPrefix(src[i:], "//"):
			nl := strings.IndexByte(src[i:], '\n')
			if nl < 0 {
				i = len(src)
			} else {
				i += nl + 1
			}
			continue
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(src) {
				r, size := utf8.DecodeRuneInString(src[i:])
				if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
					break
				}
				i += size
			}
			toks = append(toks, tok{kind: tokIdent, text: src[start:i], pos: posOf(start), end: posOf(i)})
			continue
		case unicode.IsDigit(r):
			start := i
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			toks = append(toks, tok{kind: tokInt, text: src[start:i], pos: posOf(start), end: posOf(i)})
			continue
		case r == '"':
			start := i
			i++
			for i < len(src) && src[i] != '"' && src[i] != '\n' {
				if src[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(src) || src[i] != '"' {
				return nil, &lexError{pos: posOf(start), msg: "unterminated string literal"}
			}
			i++
			text, err := strconv.Unquote(src[start:i])
			if err != nil {
				return nil, &lexError{pos: posOf(start), msg: fmt.Sprintf("invalid string literal %s", src[start:i])}
			}
			toks = append(toks, tok{kind: tokString, text: text, pos: posOf(start), end: posOf(i)})
			continue
		}
		matched := false
		for _, p := range punctuation {
			if strings.HasPrefix(src[i:], p.text) {
				toks = append(toks, tok{kind: p.kind, text: p.text, pos: posOf(i), end: posOf(i + len(p.text))})
				i += len(p.text)
				matched = true
				break
			}
		}
		if !matched {
			return nil, &lexError{pos: posOf(i), msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
	toks = append(toks, tok{kind: tokEOF, pos: posOf(len(src)), end: posOf(len(src))})
	return toks, nil
}
