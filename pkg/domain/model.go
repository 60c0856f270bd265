// Package domain defines the Domain Model contract of spec §4.7: the set of
// operations the engine consumes but never implements itself — predicates,
// sorts, plan builders, semantic relations, and question templates. The
// engine is domain-parametric; it must not hardcode domain identifiers
// (spec §4.7 "Registrations are process-local and keyed by name").
package domain

import (
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/plan"
)

// Model is the full Domain Model contract consumed by the rule engine.
// A concrete domain (see examples/domain/nda, examples/domain/travel)
// implements Model and is injected into the engine at construction time;
// the engine only ever calls through this interface.
type Model interface {
	// Resolves reports whether an answer's content matches a question's
	// shape and sort.
	Resolves(a dialogueact.Answer, q dialogueact.Question) bool

	// Combines derives the proposition committed when an answer resolves
	// a question.
	Combines(q dialogueact.Question, a dialogueact.Answer) dialogueact.Proposition

	// Relevant reports whether an answer, though not resolving q, is
	// topically relevant to it (spec §4.2 IntegrateAnswer non-resolving
	// path precondition).
	Relevant(a dialogueact.Answer, q dialogueact.Question) bool

	// Depends reports whether question a presupposes question b's answer
	// (spec §4.4 Rule 4.4, §4.7: "DAG invariant required").
	Depends(a, b dialogueact.Question) bool

	// Incompatible reports whether two propositions cannot both hold
	// (spec invariant 5).
	Incompatible(p, p2 dialogueact.Proposition) bool

	// GetQuestionFromCommitment returns the question that, if answered,
	// would have produced p, if the domain can reconstruct it (spec §4.3
	// Rule 4.6).
	GetQuestionFromCommitment(p dialogueact.Proposition) (dialogueact.Question, bool)

	// HasPlan reports whether the domain can build a plan for task.
	HasPlan(task string) bool

	// BuildPlan constructs the goal tree for task given the current
	// context (typically beliefs extracted from the IS at call time).
	BuildPlan(task string, ctx map[string]dialogueact.Term) (plan.Step, error)

	// Sorts returns the enumerated value set for a named sort, for
	// validation of Wh-question answers. Returns false if the sort is
	// unknown to this domain.
	Sorts(name string) ([]dialogueact.Term, bool)

	// QuestionTemplate returns the NLG template key for a question, which
	// the NLG adapter uses to render an utterance.
	QuestionTemplate(q dialogueact.Question) string

	// ClarificationFor returns the clarification question raised when an
	// answer fails to resolve q (spec §4.4 Rule 4.3). The returned
	// question is a fresh, generic question; the caller is responsible
	// for marking it IsClarification/Refines via Question.Clarification.
	ClarificationFor(q dialogueact.Question) dialogueact.Question

	// Dominates is used by the IBiS4 negotiation selection rule to break
	// ties between alternatives under negotiation (spec §4.6).
	Dominates(a, b dialogueact.Proposition) bool
}
