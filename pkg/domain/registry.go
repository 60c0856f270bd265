package domain

import (
	"errors"
	"fmt"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/plan"
)

// CyclePolicy governs what happens when a dependency registration would
// introduce a cycle into the `depends` DAG (spec §6 dependency_cycle_policy,
// §9 "any cycle-introducing registration must fail at domain-build time
// unless policy is drop").
type CyclePolicy string

const (
	CyclePolicyError CyclePolicy = "error"
	CyclePolicyDrop   CyclePolicy = "drop"
)

// IsValid reports whether p is a recognized cycle policy.
func (p CyclePolicy) IsValid() bool {
	return p == CyclePolicyError || p == CyclePolicyDrop
}

// ErrDependencyCycle is returned (or logged and dropped, per CyclePolicy)
// when a depends() registration would close a cycle.
var ErrDependencyCycle = errors.New("domain: dependency registration would introduce a cycle")

// PlanBuilderFunc constructs a goal tree for a task given a context of
// known beliefs.
type PlanBuilderFunc func(ctx map[string]dialogueact.Term) (plan.Step, error)

// Registry is a process-local, name-keyed implementation of Model: a
// reusable base a concrete domain builds by registering predicates, sorts,
// plan builders, and relations, in the spirit of the teacher's built-in
// config registries (predicates/sorts/templates keyed by name rather than
// switch-statement dispatch). Concrete domains may embed a *Registry and
// override individual Model methods where generic registry-driven logic
// is not expressive enough (spec §4.7 "Registrations are process-local and
// keyed by name").
type Registry struct {
	policy CyclePolicy

	sorts        map[string][]dialogueact.Term
	planBuilders map[string]PlanBuilderFunc

	// dependsOn[q] is the set of predicates q presupposes.
	dependsOn map[string]map[string]bool

	// crossIncompatible[a][b] marks a cross-predicate incompatibility pair.
	crossIncompatible map[string]map[string]bool
	// sameProviderIncompatible, when true (default), treats two
	// propositions with the same predicate but different argument values
	// as incompatible — the common case (spec scenario S3: depart_day
	// changing value retracts the old commitment).
	sameProviderIncompatible bool

	templates       map[string]string
	clarifications  map[string]func() dialogueact.Question
	dominancePred   func(a, b dialogueact.Proposition) bool
}

var _ Model = (*Registry)(nil)

// NewRegistry constructs an empty Registry with the given cycle policy.
// An empty policy defaults to CyclePolicyError (spec §6 default).
func NewRegistry(policy CyclePolicy) *Registry {
	if !policy.IsValid() {
		policy = CyclePolicyError
	}
	return &Registry{
		policy:                   policy,
		sorts:                    make(map[string][]dialogueact.Term),
		planBuilders:             make(map[string]PlanBuilderFunc),
		dependsOn:                make(map[string]map[string]bool),
		crossIncompatible:        make(map[string]map[string]bool),
		sameProviderIncompatible: true,
		templates:                make(map[string]string),
		clarifications:           make(map[string]func() dialogueact.Question),
	}
}

// RegisterSort registers an enumerated value set for a named sort (spec
// §4.7 Sorts).
func (r *Registry) RegisterSort(name string, values ...dialogueact.Term) {
	r.sorts[name] = values
}

// RegisterPlanBuilder registers the plan builder for a task name.
func (r *Registry) RegisterPlanBuilder(task string, fn PlanBuilderFunc) {
	r.planBuilders[task] = fn
}

// RegisterQuestionTemplate registers the NLG template key for questions
// whose predicate is predicate.
func (r *Registry) RegisterQuestionTemplate(predicate, templateKey string) {
	r.templates[predicate] = templateKey
}

// RegisterClarification registers a factory producing the generic
// clarification question for a predicate (spec §4.4 Rule 4.3). If none is
// registered, ClarificationFor falls back to a generic "valid X" Wh
// question.
func (r *Registry) RegisterClarification(predicate string, factory func() dialogueact.Question) {
	r.clarifications[predicate] = factory
}

// RegisterDependency declares that the question for predicate `q`
// presupposes the question for predicate `prereq` (spec §4.4 Rule 4.4,
// §4.7 Depends). Returns ErrDependencyCycle if the registration would
// create a cycle and the registry's policy is CyclePolicyError; under
// CyclePolicyDrop the edge is silently skipped and nil is returned.
func (r *Registry) RegisterDependency(q, prereq string) error {
	if r.reachable(prereq, q) {
		if r.policy == CyclePolicyDrop {
			return nil
		}
		return fmt.Errorf("%w: %s -> %s", ErrDependencyCycle, q, prereq)
	}
	if r.dependsOn[q] == nil {
		r.dependsOn[q] = make(map[string]bool)
	}
	r.dependsOn[q][prereq] = true
	return nil
}

// reachable reports whether to is reachable from-> along existing depends
// edges, i.e. whether `from` (transitively) depends on `to`.
func (r *Registry) reachable(from, to string) bool {
	if from == to {
		return true
	}
	visited := make(map[string]bool)
	var visit func(string) bool
	visit = func(n string) bool {
		if visited[n] {
			return false
		}
		visited[n] = true
		for prereq := range r.dependsOn[n] {
			if prereq == to || visit(prereq) {
				return true
			}
		}
		return false
	}
	return visit(from)
}

// RegisterIncompatible declares a cross-predicate incompatibility: any
// proposition with predicate a and any with predicate b are incompatible
// regardless of argument values (spec invariant 5).
func (r *Registry) RegisterIncompatible(a, b string) {
	if r.crossIncompatible[a] == nil {
		r.crossIncompatible[a] = make(map[string]bool)
	}
	if r.crossIncompatible[b] == nil {
		r.crossIncompatible[b] = make(map[string]bool)
	}
	r.crossIncompatible[a][b] = true
	r.crossIncompatible[b][a] = true
}

// SetSameProviderIncompatible toggles the default rule that two
// propositions sharing a predicate but differing in argument values are
// incompatible. Domains that model multi-valued predicates (a predicate
// that may legitimately hold with several argument sets at once) should
// disable this.
func (r *Registry) SetSameProviderIncompatible(enabled bool) {
	r.sameProviderIncompatible = enabled
}

// SetDominance registers the tie-breaking predicate used by Dominates.
func (r *Registry) SetDominance(fn func(a, b dialogueact.Proposition) bool) {
	r.dominancePred = fn
}

// --- Model interface, generic registry-driven implementation ---

// Resolves implements a generic shape/sort check: the NLU adapter is
// expected to have already parsed free text into a structured Proposition
// before the move reaches the engine (spec §6), so Resolves here only
// confirms predicate and sort agreement, not natural-language parsing.
func (r *Registry) Resolves(a dialogueact.Answer, q dialogueact.Question) bool {
	switch q.Kind {
	case dialogueact.QuestionWh:
		prop, ok := r.answerAsProposition(a, q.Predicate)
		if !ok {
			return false
		}
		return r.satisfiesConstraints(prop, q.Constraints)
	case dialogueact.QuestionYN:
		prop, ok := a.AsProposition()
		if !ok {
			return false
		}
		return prop.Equal(q.Proposition)
	case dialogueact.QuestionAlt:
		prop, ok := a.AsProposition()
		if !ok {
			return false
		}
		for _, alt := range q.Alternatives {
			if prop.Equal(alt) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// answerAsProposition coerces an elliptical (bare Term) answer into a
// Proposition keyed by predicate, or returns the answer's own Proposition
// content unchanged if it already carries one.
func (r *Registry) answerAsProposition(a dialogueact.Answer, predicate string) (dialogueact.Proposition, bool) {
	switch c := a.Content.(type) {
	case dialogueact.Proposition:
		return c, c.Predicate == predicate
	case dialogueact.Term:
		return dialogueact.NewProposition(predicate, c), true
	default:
		return dialogueact.Proposition{}, false
	}
}

func (r *Registry) satisfiesConstraints(prop dialogueact.Proposition, constraints []dialogueact.Term) bool {
	if len(constraints) == 0 {
		return true
	}
	if len(prop.Args) != len(constraints) {
		return false
	}
	for i, c := range constraints {
		sortName, _ := c.Value.(string)
		values, known := r.sorts[sortName]
		if !known {
			continue // unconstrained/free-text sort: any value is accepted
		}
		matched := false
		for _, v := range values {
			// Compare by value only: the inbound answer's bare Term
			// generally arrives with no Sort set (the NLU adapter parsed
			// free text into a value, not a sort-tagged term), while the
			// registered sort's values carry their sort. The constraint
			// already established which sort applies; matching on Sort
			// too would reject every valid answer.
			if v.Value == prop.Args[i].Value {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Combines derives the committed proposition for a resolving answer.
func (r *Registry) Combines(q dialogueact.Question, a dialogueact.Answer) dialogueact.Proposition {
	switch q.Kind {
	case dialogueact.QuestionWh:
		prop, _ := r.answerAsProposition(a, q.Predicate)
		return prop
	case dialogueact.QuestionYN:
		if prop, ok := a.AsProposition(); ok {
			return prop
		}
		return q.Proposition
	case dialogueact.QuestionAlt:
		prop, _ := a.AsProposition()
		return prop
	default:
		return dialogueact.Proposition{}
	}
}

// Relevant reports topical relevance without requiring full resolution:
// same predicate family, but (for Wh) failing sort validation — this is
// exactly the non-resolving-but-relevant case spec §4.2/§4.4 clarifies.
func (r *Registry) Relevant(a dialogueact.Answer, q dialogueact.Question) bool {
	base := q.Predicate
	if q.Kind != dialogueact.QuestionWh {
		base = q.Proposition.Predicate
	}
	switch c := a.Content.(type) {
	case dialogueact.Proposition:
		return c.Predicate == base
	case dialogueact.Term:
		return q.Kind == dialogueact.QuestionWh
	default:
		return false
	}
}

// Depends reports whether a's predicate is registered as depending on b's.
func (r *Registry) Depends(a, b dialogueact.Question) bool {
	return r.dependsOn[a.Predicate][b.Predicate]
}

// Incompatible reports whether p and p2 conflict: either an explicitly
// registered cross-predicate pair, or (by default) the same predicate with
// differing argument values.
func (r *Registry) Incompatible(p, p2 dialogueact.Proposition) bool {
	if r.crossIncompatible[p.Predicate][p2.Predicate] {
		return true
	}
	if r.sameProviderIncompatible && p.Predicate == p2.Predicate {
		return !p.Equal(p2)
	}
	return false
}

// GetQuestionFromCommitment reconstructs a fresh Wh question for the
// predicate that produced p. Registries only track predicate-level
// shape, so the returned question omits constraints unless the domain
// overrides this method with richer bookkeeping.
func (r *Registry) GetQuestionFromCommitment(p dialogueact.Proposition) (dialogueact.Question, bool) {
	return dialogueact.NewWh(p.Predicate, p.Predicate), true
}

// HasPlan reports whether a plan builder is registered for task.
func (r *Registry) HasPlan(task string) bool {
	_, ok := r.planBuilders[task]
	return ok
}

// BuildPlan invokes the registered plan builder for task.
func (r *Registry) BuildPlan(task string, ctx map[string]dialogueact.Term) (plan.Step, error) {
	fn, ok := r.planBuilders[task]
	if !ok {
		return plan.Step{}, fmt.Errorf("domain: no plan builder registered for task %q", task)
	}
	return fn(ctx)
}

// Sorts returns the registered enumerated value set for name.
func (r *Registry) Sorts(name string) ([]dialogueact.Term, bool) {
	v, ok := r.sorts[name]
	return v, ok
}

// QuestionTemplate returns the registered template key for q's predicate,
// or the predicate name itself as a fallback key.
func (r *Registry) QuestionTemplate(q dialogueact.Question) string {
	base := q.Predicate
	if q.Kind != dialogueact.QuestionWh {
		base = q.Proposition.Predicate
	}
	if key, ok := r.templates[base]; ok {
		return key
	}
	return base
}

// ClarificationFor returns the registered clarification factory's result,
// or a generic "valid X" Wh question over q's predicate.
func (r *Registry) ClarificationFor(q dialogueact.Question) dialogueact.Question {
	base := q.Predicate
	if q.Kind != dialogueact.QuestionWh {
		base = q.Proposition.Predicate
	}
	if factory, ok := r.clarifications[base]; ok {
		return factory()
	}
	return dialogueact.NewWh("x", "valid_"+base)
}

// Dominates delegates to the registered dominance predicate, defaulting to
// false (no preference) when none is registered.
func (r *Registry) Dominates(a, b dialogueact.Proposition) bool {
	if r.dominancePred == nil {
		return false
	}
	return r.dominancePred(a, b)
}
