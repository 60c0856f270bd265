// Package integrate builds the Integrate-phase rule set of spec §4.2/§4.3:
// the IBiS1 core integration rules, plus the IBiS3 issue-accommodation and
// belief-revision cascade. All rules close over a domain.Model supplied at
// construction so the engine itself never references a domain predicate by
// name (spec §4.7).
package integrate

import (
	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/plan"
	"github.com/ibdm-project/ibdm/pkg/rules"
)

// Rules returns the full Integrate-phase rule set for the given domain. The
// list is not in priority order; the Set sorts it by descending priority,
// and rules of equal priority keep the order listed here.
func Rules(model domain.Model) []rules.Rule {
	return []rules.Rule{
		integrateQuit(),
		integrateGreet(),
		integrateAsk(),
		integrateAssert(model),
		integrateAnswerClarification(model),
		integrateAnswerQUD(model),
		volunteerAnswer(model),
		questionReaccommodation(model),
		integrateAnswerNonResolving(model),
		retractIncompatibleCommitment(),
		dependentQuestionReaccommodation(model),
		formTaskPlan(model),
		issueAccommodation(),
		advanceCompletedFindoutSteps(),
		rejectRequest(model),
		integrateRequest(model),
	}
}

func lastInbound(ctx rules.Context) *dialogueact.Move {
	return ctx.Inbound
}

// integrateGreet handles spec §4.2 IntegrateGreet (priority 20). Well-founded
// measure: the effect clears ctx.Inbound and records the "greeted" belief
// that the precondition checks, so it fires at most once per greet move.
func integrateGreet() rules.Rule {
	return rules.Rule{
		Name:     "IntegrateGreet",
		Phase:    rules.PhaseIntegrate,
		Priority: 20,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			return m != nil && m.Kind == dialogueact.MoveGreet &&
				ctx.State.Control.DialogueState == istate.StateActive &&
				!greeted(ctx.State)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			next.State.Private.Beliefs["greeted"] = dialogueact.Term{Sort: "bool", Value: true}
			next.State.Shared.Commitments = append(next.State.Shared.Commitments,
				dialogueact.NewProposition("greeted", dialogueact.Term{Sort: "bool", Value: true}))
			next.Inbound = nil
			return next, nil
		},
	}
}

func greeted(s istate.InformationState) bool {
	t, ok := s.Private.Beliefs["greeted"]
	return ok && t.Value == true
}

// integrateQuit handles spec §4.2 IntegrateQuit (priority 25, the highest in
// this package — ends the dialogue before any other content integration;
// pkg/grounding's rules at 26–30 still run ahead of it).
func integrateQuit() rules.Rule {
	return rules.Rule{
		Name:     "IntegrateQuit",
		Phase:    rules.PhaseIntegrate,
		Priority: 25,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			return m != nil && m.Kind == dialogueact.MoveQuit
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			next.State.Control.DialogueState = istate.StateEnded
			next.Inbound = nil
			return next, nil
		},
	}
}

// integrateAsk handles spec §4.2 IntegrateAsk (priority 18).
func integrateAsk() rules.Rule {
	return rules.Rule{
		Name:     "IntegrateAsk",
		Phase:    rules.PhaseIntegrate,
		Priority: 18,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAsk {
				return false
			}
			q, ok := m.AsQuestion()
			return ok && !ctx.State.InIssuesOrQUD(q.ID)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := lastInbound(next)
			q, _ := m.AsQuestion()
			next.State = next.State.PushQUD(q)
			next.Inbound = nil
			return next, nil
		},
	}
}

// integrateAssert handles spec §4.2 IntegrateAssert (priority 18).
func integrateAssert(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "IntegrateAssert",
		Phase:    rules.PhaseIntegrate,
		Priority: 18,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAssert {
				return false
			}
			p, ok := m.AsProposition()
			if !ok {
				return false
			}
			return !anyIncompatible(model, ctx.State.Shared.Commitments, p)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := lastInbound(next)
			p, _ := m.AsProposition()
			next.State.Shared.Commitments = append(next.State.Shared.Commitments, p)
			next.Inbound = nil
			return next, nil
		},
	}
}

func anyIncompatible(model domain.Model, commitments []dialogueact.Proposition, p dialogueact.Proposition) bool {
	for _, c := range commitments {
		if model.Incompatible(p, c) {
			return true
		}
	}
	return false
}

// integrateAnswerQUD handles the QUD-resolving path of spec §4.2
// IntegrateAnswer (priority 17).
func integrateAnswerQUD(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "IntegrateAnswerQUD",
		Phase:    rules.PhaseIntegrate,
		Priority: 17,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAnswer {
				return false
			}
			a, ok := m.AsAnswer()
			if !ok {
				return false
			}
			top, ok := ctx.State.TopQUD()
			return ok && model.Resolves(a, top)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := lastInbound(next)
			a, _ := m.AsAnswer()
			var popped dialogueact.Question
			next.State, popped, _ = next.State.PopQUD()
			p := model.Combines(popped, a)
			next.State.Shared.Commitments = append(next.State.Shared.Commitments, p)
			next.Inbound = nil
			return next, nil
		},
	}
}

// integrateAnswerClarification handles the resolution of a clarification
// question (spec §4.4 Rule 4.3, §9: "clarifications are first-class QUD
// questions that carry is_clarification=true"). Priority 18 — strictly
// above IntegrateAnswerQUD/volunteerAnswer (17) — so a resolving answer to
// a clarification is never instead read as resolving some other QUD or
// issue question. Resolving the clarification also resolves the parent
// question it refines: both pop in the same cycle and exactly one
// commitment is added, keyed by the parent's predicate, not the
// clarification's own (spec §8 S4: "both pop in order, commitment added").
func integrateAnswerClarification(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "IntegrateAnswerClarification",
		Phase:    rules.PhaseIntegrate,
		Priority: 18,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAnswer {
				return false
			}
			a, ok := m.AsAnswer()
			if !ok {
				return false
			}
			top, ok := ctx.State.TopQUD()
			return ok && top.IsClarification && top.Refines != nil && model.Resolves(a, top)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := lastInbound(next)
			a, _ := m.AsAnswer()

			var clarification dialogueact.Question
			next.State, clarification, _ = next.State.PopQUD()

			target := clarification
			if parent, ok := next.State.TopQUD(); ok && parent.ID == *clarification.Refines {
				next.State, _, _ = next.State.PopQUD()
				target = parent
			}
			next.State.Shared.Commitments = append(next.State.Shared.Commitments, model.Combines(target, a))
			next.Inbound = nil
			return next, nil
		},
	}
}

// volunteerAnswer handles spec §4.3's volunteer-answer handling, folded
// into the IntegrateAnswer priority band (17): an answer that doesn't
// resolve top(qud) but does resolve some accommodated issue is taken as
// volunteered information without disturbing QUD.
func volunteerAnswer(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "IntegrateAnswerVolunteer",
		Phase:    rules.PhaseIntegrate,
		Priority: 17,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAnswer {
				return false
			}
			a, ok := m.AsAnswer()
			if !ok {
				return false
			}
			if top, ok := ctx.State.TopQUD(); ok && model.Resolves(a, top) {
				return false
			}
			_, ok = findResolvedIssue(model, ctx.State.Private.Issues, a)
			return ok
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := lastInbound(next)
			a, _ := m.AsAnswer()
			qp, idx := findResolvedIssue(model, next.State.Private.Issues, a)
			next.State.Private.Issues = append(
				append([]dialogueact.Question{}, next.State.Private.Issues[:idx]...),
				next.State.Private.Issues[idx+1:]...)
			p := model.Combines(qp, a)
			next.State.Shared.Commitments = append(next.State.Shared.Commitments, p)
			next.Inbound = nil
			return next, nil
		},
	}
}

func findResolvedIssue(model domain.Model, issues []dialogueact.Question, a dialogueact.Answer) (dialogueact.Question, int) {
	for i, q := range issues {
		if model.Resolves(a, q) {
			return q, i
		}
	}
	return dialogueact.Question{}, -1
}

// integrateAnswerNonResolving handles the non-resolving path of spec §4.2
// IntegrateAnswer (priority 16): keeps the question on QUD and stages the
// clarification that Rule 4.3 (Select phase) will raise.
func integrateAnswerNonResolving(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "IntegrateAnswerNonResolving",
		Phase:    rules.PhaseIntegrate,
		Priority: 16,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAnswer {
				return false
			}
			a, ok := m.AsAnswer()
			if !ok {
				return false
			}
			top, ok := ctx.State.TopQUD()
			if !ok || model.Resolves(a, top) {
				return false
			}
			if _, ok := findResolvedIssue(model, ctx.State.Private.Issues, a); ok {
				return false
			}
			return model.Relevant(a, top) && !ctx.Staging.NonResolvingAnswer
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			next.Staging.NonResolvingAnswer = true
			next.Inbound = nil
			return next, nil
		},
	}
}

// questionReaccommodation handles spec §4.3 Rule 4.6 (priority 15): an
// answer that contradicts an existing commitment stages that commitment's
// retraction and reaccommodates its question.
func questionReaccommodation(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "QuestionReaccommodation",
		Phase:    rules.PhaseIntegrate,
		Priority: 15,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveAnswer || ctx.Staging.StagedRetraction != nil {
				return false
			}
			p, ok := pendingAnswerProposition(model, ctx)
			if !ok {
				return false
			}
			_, ok = conflictingCommitment(model, ctx.State.Shared.Commitments, p)
			return ok
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			p, _ := pendingAnswerProposition(model, ctx)
			conflict, _ := conflictingCommitment(model, next.State.Shared.Commitments, p)
			pp := conflict
			next.Staging.StagedRetraction = &pp
			if q, ok := model.GetQuestionFromCommitment(conflict); ok {
				if !next.State.InIssuesOrQUD(q.ID) {
					next.State.Private.Issues = append(next.State.Private.Issues, q)
				}
			}
			return next, nil
		},
	}
}

// pendingAnswerProposition recovers the proposition the inbound answer
// would commit, without performing that commit (the QUD/volunteer rules
// own the actual commit; this is read-only lookahead for conflict checks).
func pendingAnswerProposition(model domain.Model, ctx rules.Context) (dialogueact.Proposition, bool) {
	m := lastInbound(ctx)
	if m == nil {
		return dialogueact.Proposition{}, false
	}
	a, ok := m.AsAnswer()
	if !ok {
		return dialogueact.Proposition{}, false
	}
	if top, ok := ctx.State.TopQUD(); ok && model.Resolves(a, top) {
		return model.Combines(top, a), true
	}
	if q, ok := findResolvedIssue(model, ctx.State.Private.Issues, a); ok {
		return model.Combines(q, a), true
	}
	return dialogueact.Proposition{}, false
}

func conflictingCommitment(model domain.Model, commitments []dialogueact.Proposition, p dialogueact.Proposition) (dialogueact.Proposition, bool) {
	for _, c := range commitments {
		if model.Incompatible(p, c) {
			return c, true
		}
	}
	return dialogueact.Proposition{}, false
}

// retractIncompatibleCommitment handles spec §4.3 Rule 4.7 (priority 14,
// runs after 4.6).
func retractIncompatibleCommitment() rules.Rule {
	return rules.Rule{
		Name:     "RetractIncompatibleCommitment",
		Phase:    rules.PhaseIntegrate,
		Priority: 14,
		Precondition: func(ctx rules.Context) bool {
			return ctx.Staging.StagedRetraction != nil
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			stale := *next.Staging.StagedRetraction
			out := make([]dialogueact.Proposition, 0, len(next.State.Shared.Commitments))
			for _, c := range next.State.Shared.Commitments {
				if c.Equal(stale) {
					continue
				}
				out = append(out, c)
			}
			next.State.Shared.Commitments = out
			next.Staging.StagedRetraction = nil
			next.Staging.JustRetracted = &stale
			return next, nil
		},
	}
}

// dependentQuestionReaccommodation handles spec §4.3 Rule 4.8 (priority
// 13): cascades retraction transitively across the `depends` DAG.
// Termination is guaranteed by the DAG invariant domain.Registry enforces
// on `depends` registration (spec §4.7).
func dependentQuestionReaccommodation(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "DependentQuestionReaccommodation",
		Phase:    rules.PhaseIntegrate,
		Priority: 13,
		Precondition: func(ctx rules.Context) bool {
			if ctx.Staging.JustRetracted == nil {
				return false
			}
			_, _, found := findDependent(model, ctx.State, *ctx.Staging.JustRetracted)
			return found
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			retracted := *ctx.Staging.JustRetracted
			qd, pp, _ := findDependent(model, next.State, retracted)

			out := make([]dialogueact.Proposition, 0, len(next.State.Shared.Commitments))
			for _, c := range next.State.Shared.Commitments {
				if c.Equal(pp) {
					continue
				}
				out = append(out, c)
			}
			next.State.Shared.Commitments = out
			if !next.State.InIssuesOrQUD(qd.ID) {
				next.State.Private.Issues = append(next.State.Private.Issues, qd)
			}
			next.Staging.JustRetracted = &pp
			return next, nil
		},
	}
}

// findDependent locates a commitment whose question depends on the
// question underlying the just-retracted proposition.
func findDependent(model domain.Model, s istate.InformationState, retracted dialogueact.Proposition) (dialogueact.Question, dialogueact.Proposition, bool) {
	qOfRetracted, ok := model.GetQuestionFromCommitment(retracted)
	if !ok {
		return dialogueact.Question{}, dialogueact.Proposition{}, false
	}
	for _, c := range s.Shared.Commitments {
		qd, ok := model.GetQuestionFromCommitment(c)
		if !ok {
			continue
		}
		if model.Depends(qd, qOfRetracted) {
			return qd, c, true
		}
	}
	return dialogueact.Question{}, dialogueact.Proposition{}, false
}

// formTaskPlan handles spec §4.2 FormTaskPlan (priority 12). Must run
// before accommodation per the ordering note in spec §4.2.
func formTaskPlan(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "FormTaskPlan",
		Phase:    rules.PhaseIntegrate,
		Priority: 12,
		Precondition: func(ctx rules.Context) bool {
			m := lastInbound(ctx)
			if m == nil || m.Kind != dialogueact.MoveRequest {
				return false
			}
			task, ok := requestTask(m)
			return ok && model.HasPlan(task) && len(ctx.State.Private.Plan) == 0
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := lastInbound(next)
			task, _ := requestTask(m)
			step, err := model.BuildPlan(task, beliefsAsContext(next.State.Private.Beliefs))
			if err != nil {
				return ctx, err
			}
			next.State.Private.Plan = []plan.Step{step}
			next.Inbound = nil
			return next, nil
		},
	}
}

func requestTask(m *dialogueact.Move) (string, bool) {
	if t, ok := m.Content.(string); ok {
		return t, true
	}
	if p, ok := m.AsProposition(); ok {
		return p.Predicate, true
	}
	return "", false
}

func beliefsAsContext(beliefs map[string]dialogueact.Term) map[string]dialogueact.Term {
	out := make(map[string]dialogueact.Term, len(beliefs))
	for k, v := range beliefs {
		out[k] = v
	}
	return out
}

// issueAccommodation handles spec §4.3 Rule 4.1 (priority 11). A plan may
// name several sibling Findout steps at once (spec scenario S1: a task's
// plan carries issues `[parties, effective_date, governing_law]` all at
// once after the request, before any are asked) — so the effect
// accommodates the whole leading run of not-yet-accommodated Findout
// steps in plan order, stopping at the first step that isn't one (a
// Perform/Consult step still gates on its predecessors via plan.Head).
func issueAccommodation() rules.Rule {
	return rules.Rule{
		Name:     "IssueAccommodation",
		Phase:    rules.PhaseIntegrate,
		Priority: 11,
		Precondition: func(ctx rules.Context) bool {
			_, ok := nextAccommodatableFindouts(ctx.State)
			return ok
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			run, _ := nextAccommodatableFindouts(next.State)
			for _, step := range run {
				q, _ := step.Question()
				next.State.Private.Issues = append(next.State.Private.Issues, q)
				next.State.Private.Plan = plan.WithStepStatus(next.State.Private.Plan, step.ID, plan.StepAccommodated)
			}
			return next, nil
		},
	}
}

// nextAccommodatableFindouts returns the leading run of the plan's
// still-Active Findout leaves not already resolved or tracked in
// issues/qud, stopping at the first leaf that is not an accommodatable
// Findout (a Perform/Consult step, or one already Accommodated/Completed
// whose successor isn't ready yet).
func nextAccommodatableFindouts(s istate.InformationState) ([]plan.Step, bool) {
	var run []plan.Step
	for _, leaf := range flattenLeaves(s.Private.Plan) {
		if leaf.Kind != plan.StepFindout || leaf.Status != plan.StepActive {
			break
		}
		q, ok := leaf.Question()
		if !ok {
			break
		}
		if s.InIssuesOrQUD(q.ID) || projectedByCommitment(s, q) {
			break
		}
		run = append(run, leaf)
	}
	return run, len(run) > 0
}

// flattenLeaves returns every non-container step of the plan in source
// order, recursing into Subplans depth-first. A step's own Kind/Status
// carry no meaning once it has Subplans (see plan.Sequence).
func flattenLeaves(steps []plan.Step) []plan.Step {
	var out []plan.Step
	for _, s := range steps {
		if len(s.Subplans) > 0 {
			out = append(out, flattenLeaves(s.Subplans)...)
			continue
		}
		out = append(out, s)
	}
	return out
}

// advanceCompletedFindoutSteps handles plan progression once an
// accommodated Findout step's question has actually been answered: the
// question leaves issues/qud the moment it's resolved (IntegrateAnswerQUD
// or the volunteer-answer path), but nothing else marks its plan step
// done, so plan.Head would otherwise return the same resolved step
// forever instead of advancing to the next Findout or a Perform step
// (spec §4.2 FindPlan: plan progression tracks resolution, not just
// accommodation).
func advanceCompletedFindoutSteps() rules.Rule {
	return rules.Rule{
		Name:     "AdvanceCompletedFindoutSteps",
		Phase:    rules.PhaseIntegrate,
		Priority: 10,
		Precondition: func(ctx rules.Context) bool {
			return len(resolvedAccommodatedFindouts(ctx.State)) > 0
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			for _, id := range resolvedAccommodatedFindouts(next.State) {
				next.State.Private.Plan = plan.WithStepStatus(next.State.Private.Plan, id, plan.StepCompleted)
			}
			return next, nil
		},
	}
}

func resolvedAccommodatedFindouts(s istate.InformationState) []uuid.UUID {
	var ids []uuid.UUID
	for _, step := range flattenLeaves(s.Private.Plan) {
		if step.Kind != plan.StepFindout || step.Status != plan.StepAccommodated {
			continue
		}
		q, ok := step.Question()
		if !ok {
			continue
		}
		if !s.InIssuesOrQUD(q.ID) && projectedByCommitment(s, q) {
			ids = append(ids, step.ID)
		}
	}
	return ids
}

// projectedByCommitment reports whether q's variable already has a
// committed value, i.e. the question is already answered by the current
// commitment set (spec §4.3 Rule 4.1: "projection of commitments").
func projectedByCommitment(s istate.InformationState, q dialogueact.Question) bool {
	if q.Kind != dialogueact.QuestionWh {
		return false
	}
	for _, c := range s.Shared.Commitments {
		if c.Predicate == q.Predicate {
			return true
		}
	}
	return false
}
