package ir

import (
	"fmt"
	"github.com/cottand/theoryc/util"
	"strconv"
)

// NameKey identifies a generated relation. Fields that do not apply to Kind are zero.
type NameKey struct {
	Kind RelationKind
	// Subject is the category, constructor or env relation the relation is about
	Subject string
	// Rule and Pattern locate the element pattern of an Extraction relation
	Rule    int
	Pattern int
}

// NameTable interns relation names, so that two different keys can never be
// given the same name
type NameTable struct {
	byKey  map[NameKey]string
	byName map[string]NameKey
}

func NewNameTable() *NameTable {
	return &NameTable{byKey: map[NameKey]string{}, byName: map[string]NameKey{}}
}

// Name returns the relation name for key. It fails if the name is already taken by another key.
func (t *NameTable) Name(key NameKey) (string, error) {
	if name, ok := t.byKey[key]; ok {
		return name, nil
	}
	name := spell(key)
	if other, taken := t.byName[name]; taken {
		return "", fmt.Errorf("relation name %s for %s %s collides with %s %s", name, key.Kind, key.Subject, other.Kind, other.Subject)
	}
	t.byKey[key] = name
	t.byName[name] = key
	return name, nil
}

func spell(key NameKey) string {
	subject := util.SnakeCase(key.Subject)
	switch key.Kind {
	case Membership:
		return subject
	case Equivalence:
		return "eq_" + subject
	case Rewrite:
		return "rw_" + subject
	case Path:
		return "path_" + subject
	case Contains:
		return subject + "_contains"
	case BindingProjection:
		return subject + "_direct_congruence_proj"
	case Extraction:
		return subject + "_r" + strconv.Itoa(key.Rule) + "_e" + strconv.Itoa(key.Pattern)
	case Env:
		return "env_" + key.Subject
	default:
		return fmt.Sprintf("%s_%d", subject, int(key.Kind))
	}
}

// RuleScope hands out variable names local to one rule. Generated names start
// with an underscore, which theory identifiers cannot.
type RuleScope struct {
	counters map[string]int
}

func NewRuleScope() *RuleScope {
	return &RuleScope{counters: map[string]int{}}
}

// Fresh returns a new variable name starting with hint
func (s *RuleScope) Fresh(hint string) string {
	n := s.counters[hint]
	s.counters[hint] = n + 1
	return "_" + hint + strconv.Itoa(n)
}
