package tcerr

import (
	"github.com/cottand/theoryc/frontend/theory"
	"github.com/stretchr/testify/assert"
	"go/token"
	"testing"
)

func TestFormatWithCode(t *testing.T) {
	err := New(NewUnboundVariable{Name: "Q", Rule: "(PDrop N) => Q"})
	assert.Equal(t, "(E005) variable 'Q' is not bound by the left hand side of `(PDrop N) => Q`", FormatWithCode(err))
}

func TestFormatWithSource(t *testing.T) {
	src := "theory T {\n  exports { P }\n}"
	at := theory.Range{PosStart: token.Pos(16), PosEnd: token.Pos(17)}
	err := New(NewUnknownCategory{Positioner: at, Name: "Q", Where: "constructor A"})
	assert.Equal(t, "2:5: error: (E007) category 'Q' used in constructor A is not exported by the theory", FormatWithSource(err, src))

	noPos := New(NewDuplicateConstructor{Positioner: theory.Range{}, Label: "A"})
	assert.Equal(t, "error: (E006) constructor 'A' is declared more than once", FormatWithSource(noPos, src))
}

func TestSeverities(t *testing.T) {
	var errs *Errors
	assert.False(t, errs.HasError())
	assert.Empty(t, errs.Errors())

	errs = errs.With(New(NewUnsupportedShape{Positioner: theory.Range{}, Reason: "nested collection", Rule: "r"}))
	assert.False(t, errs.HasError())
	assert.Len(t, errs.Warnings(), 1)

	errs = errs.Merge(nil)
	errs = errs.Merge((*Errors)(nil).With(New(NewMalformedPattern{Positioner: theory.Range{}, Constructor: "PPar", Reason: "arity"})))
	assert.True(t, errs.HasError())
	assert.Len(t, errs.Errors(), 2)
	assert.Len(t, errs.Fatal(), 1)
	assert.Equal(t, MalformedPattern, errs.Fatal()[0].Code())
}

func TestFromLookup(t *testing.T) {
	err := FromLookup(theory.Range{}, "(PNope) => PZero", &theory.LookupError{
		Kind:      "constructor",
		Name:      "PNope",
		Available: []string{"PDrop", "PZero"},
	})
	assert.Equal(t, LookupFailure, err.Code())
	assert.Contains(t, err.Error(), "available: [PDrop, PZero]")
	assert.Contains(t, err.Error(), "(in rule `(PNope) => PZero`)")
}
