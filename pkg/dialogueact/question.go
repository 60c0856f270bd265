// Package dialogueact defines the sum types of the dialogue algebra:
// questions, answers, propositions, and moves (spec §3 Entities). These are
// closed tagged variants — every consumer pattern-matches on a Kind field
// rather than relying on inheritance or duck typing.
package dialogueact

import "github.com/google/uuid"

// QuestionKind discriminates the three question shapes in the algebra.
type QuestionKind string

const (
	QuestionWh  QuestionKind = "wh"
	QuestionYN  QuestionKind = "yn"
	QuestionAlt QuestionKind = "alt"
)

// IsValid reports whether k is a recognized question kind.
func (k QuestionKind) IsValid() bool {
	switch k {
	case QuestionWh, QuestionYN, QuestionAlt:
		return true
	default:
		return false
	}
}

// Question is a closed variant over Wh{variable, predicate, constraints},
// YN{proposition}, and Alt{alternatives}. Only the fields relevant to Kind
// are populated; callers must switch on Kind before reading them.
type Question struct {
	ID   uuid.UUID
	Kind QuestionKind

	// Wh fields.
	Variable    string
	Predicate   string
	Constraints []Term

	// YN fields.
	Proposition Proposition

	// Alt fields.
	Alternatives []Proposition

	// Shared optional fields (spec §3).
	IsClarification bool
	Refines         *uuid.UUID
}

// NewWh constructs a Wh question with a fresh identity.
func NewWh(variable, predicate string, constraints ...Term) Question {
	return Question{
		ID:          uuid.New(),
		Kind:        QuestionWh,
		Variable:    variable,
		Predicate:   predicate,
		Constraints: constraints,
	}
}

// NewYN constructs a YN question with a fresh identity.
func NewYN(prop Proposition) Question {
	return Question{
		ID:          uuid.New(),
		Kind:        QuestionYN,
		Proposition: prop,
	}
}

// NewAlt constructs an Alt question with a fresh identity.
func NewAlt(alternatives ...Proposition) Question {
	return Question{
		ID:           uuid.New(),
		Kind:         QuestionAlt,
		Alternatives: alternatives,
	}
}

// Clarification returns a copy of q marked as a clarification question that
// refines the given parent question, per the fixed discipline of spec §9:
// clarifications are first-class QUD questions, never agenda-only.
func (q Question) Clarification(parent uuid.UUID) Question {
	c := q
	c.ID = uuid.New()
	c.IsClarification = true
	c.Refines = &parent
	return c
}

// Equal compares two questions by identity, not structure — QUD/issues
// membership (invariant 8.4) is always tracked by ID.
func (q Question) Equal(other Question) bool {
	return q.ID == other.ID
}

// String renders a human-debuggable form; not used for NLG.
func (q Question) String() string {
	switch q.Kind {
	case QuestionWh:
		return "?" + q.Variable + "." + q.Predicate
	case QuestionYN:
		return "?" + q.Proposition.String()
	case QuestionAlt:
		s := "?alt("
		for i, a := range q.Alternatives {
			if i > 0 {
				s += " | "
			}
			s += a.String()
		}
		return s + ")"
	default:
		return "?<invalid>"
	}
}
