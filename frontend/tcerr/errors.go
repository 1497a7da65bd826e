package tcerr

import (
	"fmt"
	"github.com/cottand/theoryc/frontend/theory"
	"go/token"
	"runtime/debug"
	"strings"
)

// enableDebugErrorPrinting makes errors include the frame that raised them when printed
const enableDebugErrorPrinting bool = false
const enableDebugFullStacktrace bool = false

type ErrCode int

const (
	None ErrCode = iota
	Parse
	MalformedPattern
	UnsupportedShape
	LookupFailure
	UnboundVariable
	DuplicateConstructor
	UnknownCategory
	ConflictingRelation
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

type TheoryError interface {
	Error() string
	Code() ErrCode
	Severity() Severity
	theory.Positioner

	withStack([]byte) TheoryError
	getStack() []byte
}

func FormatWithCode(e TheoryError) string {
	if enableDebugErrorPrinting && e.getStack() != nil {
		stack := string(e.getStack())
		if !enableDebugFullStacktrace {
			lines := strings.Split(stack, "\n")
			if len(lines) > 6 {
				stack = lines[6]
			}
		}
		return fmt.Sprintf("%s:(E%03d) %s", stack, e.Code(), e.Error())
	}
	return fmt.Sprintf("(E%03d) %s", e.Code(), e.Error())
}

// FormatWithSource prefixes the message with the line and column the error points at in src
func FormatWithSource(e TheoryError, src string) string {
	line, col := lineCol(src, e.Pos())
	if line == 0 {
		return fmt.Sprintf("%s: %s", e.Severity(), FormatWithCode(e))
	}
	return fmt.Sprintf("%d:%d: %s: %s", line, col, e.Severity(), FormatWithCode(e))
}

// lineCol resolves a 1-based offset position into a 1-based line and column
func lineCol(src string, pos token.Pos) (line, col int) {
	if !pos.IsValid() || int(pos) > len(src)+1 {
		return 0, 0
	}
	offset := int(pos) - 1
	line = 1 + strings.Count(src[:offset], "\n")
	col = offset - strings.LastIndex(src[:offset], "\n")
	return line, col
}

func New[E TheoryError](err E) TheoryError {
	return err.withStack(debug.Stack())
}

type Unclassified struct {
	From error
	theory.Positioner
	stack []byte
}

func (e Unclassified) Error() string {
	return fmt.Sprintf("unclassified error: %v", e.From)
}
func (e Unclassified) Code() ErrCode      { return None }
func (e Unclassified) Severity() Severity { return SeverityError }
func (e Unclassified) getStack() []byte   { return e.stack }
func (e Unclassified) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

type NewParse struct {
	theory.Positioner
	ParserMessage string
	Hint          string
	stack         []byte
}

func (e NewParse) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s (hint: %s)", e.ParserMessage, e.Hint)
	}
	return e.ParserMessage
}
func (e NewParse) Code() ErrCode      { return Parse }
func (e NewParse) Severity() Severity { return SeverityError }
func (e NewParse) getStack() []byte   { return e.stack }
func (e NewParse) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

// NewMalformedPattern is a theory-authoring bug in a pattern's shape
type NewMalformedPattern struct {
	theory.Positioner
	Rule        string
	Constructor string
	Category    string
	Reason      string
	stack       []byte
}

func (e NewMalformedPattern) Error() string {
	sb := strings.Builder{}
	sb.WriteString("malformed pattern")
	if e.Constructor != "" {
		sb.WriteString(fmt.Sprintf(" for constructor '%s'", e.Constructor))
	}
	if e.Category != "" {
		sb.WriteString(fmt.Sprintf(" of category '%s'", e.Category))
	}
	sb.WriteString(": " + e.Reason)
	if e.Rule != "" {
		sb.WriteString(fmt.Sprintf(" in rule `%s`", e.Rule))
	}
	return sb.String()
}
func (e NewMalformedPattern) Code() ErrCode      { return MalformedPattern }
func (e NewMalformedPattern) Severity() Severity { return SeverityError }
func (e NewMalformedPattern) getStack() []byte   { return e.stack }
func (e NewMalformedPattern) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

// NewUnsupportedShape is a valid rule that no generator handles. The rule is skipped.
type NewUnsupportedShape struct {
	theory.Positioner
	Rule        string
	Constructor string
	Reason      string
	stack       []byte
}

func (e NewUnsupportedShape) Error() string {
	if e.Constructor != "" {
		return fmt.Sprintf("unsupported rule shape for constructor '%s': %s; rule `%s` is skipped", e.Constructor, e.Reason, e.Rule)
	}
	return fmt.Sprintf("unsupported rule shape: %s; rule `%s` is skipped", e.Reason, e.Rule)
}
func (e NewUnsupportedShape) Code() ErrCode      { return UnsupportedShape }
func (e NewUnsupportedShape) Severity() Severity { return SeverityWarning }
func (e NewUnsupportedShape) getStack() []byte   { return e.stack }
func (e NewUnsupportedShape) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

type NewLookupFailure struct {
	theory.Positioner
	Kind      string
	Name      string
	Available []string
	Rule      string
	stack     []byte
}

func (e NewLookupFailure) Error() string {
	msg := fmt.Sprintf("%s '%s' not found in grammar; available: [%s]", e.Kind, e.Name, strings.Join(e.Available, ", "))
	if e.Rule != "" {
		msg += fmt.Sprintf(" (in rule `%s`)", e.Rule)
	}
	return msg
}
func (e NewLookupFailure) Code() ErrCode      { return LookupFailure }
func (e NewLookupFailure) Severity() Severity { return SeverityError }
func (e NewLookupFailure) getStack() []byte   { return e.stack }
func (e NewLookupFailure) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

type NewUnboundVariable struct {
	theory.Positioner
	Name  string
	Rule  string
	stack []byte
}

func (e NewUnboundVariable) Error() string {
	return fmt.Sprintf("variable '%s' is not bound by the left hand side of `%s`", e.Name, e.Rule)
}
func (e NewUnboundVariable) Code() ErrCode      { return UnboundVariable }
func (e NewUnboundVariable) Severity() Severity { return SeverityError }
func (e NewUnboundVariable) getStack() []byte   { return e.stack }
func (e NewUnboundVariable) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

type NewDuplicateConstructor struct {
	theory.Positioner
	Label string
	stack []byte
}

func (e NewDuplicateConstructor) Error() string {
	return fmt.Sprintf("constructor '%s' is declared more than once", e.Label)
}
func (e NewDuplicateConstructor) Code() ErrCode      { return DuplicateConstructor }
func (e NewDuplicateConstructor) Severity() Severity { return SeverityError }
func (e NewDuplicateConstructor) getStack() []byte   { return e.stack }
func (e NewDuplicateConstructor) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

type NewUnknownCategory struct {
	theory.Positioner
	Name  string
	Where string
	stack []byte
}

func (e NewUnknownCategory) Error() string {
	return fmt.Sprintf("category '%s' used in %s is not exported by the theory", e.Name, e.Where)
}
func (e NewUnknownCategory) Code() ErrCode      { return UnknownCategory }
func (e NewUnknownCategory) Severity() Severity { return SeverityError }
func (e NewUnknownCategory) getStack() []byte   { return e.stack }
func (e NewUnknownCategory) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

type NewConflictingRelation struct {
	theory.Positioner
	Relation string
	Existing string
	Wanted   string
	stack    []byte
}

func (e NewConflictingRelation) Error() string {
	return fmt.Sprintf("relation '%s' is used with columns (%s) but was declared with (%s)", e.Relation, e.Wanted, e.Existing)
}
func (e NewConflictingRelation) Code() ErrCode      { return ConflictingRelation }
func (e NewConflictingRelation) Severity() Severity { return SeverityError }
func (e NewConflictingRelation) getStack() []byte   { return e.stack }
func (e NewConflictingRelation) withStack(stack []byte) TheoryError {
	e.stack = stack
	return e
}

// FromLookup converts the panic value raised by theory.Grammar lookups
func FromLookup(at theory.Positioner, rule string, err *theory.LookupError) TheoryError {
	return New(NewLookupFailure{
		Positioner: theory.RangeOf(at),
		Kind:       err.Kind,
		Name:       err.Name,
		Available:  err.Available,
		Rule:       rule,
	})
}
