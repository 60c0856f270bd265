// Package selectrules builds the Select-phase rule set of spec §4.4/§4.6:
// issue-to-QUD promotion, dependency-ordered issue raising, clarification
// raising, plan-driven move selection, IBiS4 action execution, and the
// agenda-empty fallback.
package selectrules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/adapter"
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/plan"
	"github.com/ibdm-project/ibdm/pkg/rules"
)

// Rules returns the full Select-phase rule set for the given domain.
func Rules(model domain.Model) []rules.Rule {
	return []rules.Rule{
		issueClarification(),
		dependentIssueAccommodation(model),
		localQuestionAccommodation(model),
		executeAction(),
		selectFromPlan(),
		fallback(),
	}
}

func enqueue(ctx rules.Context, m dialogueact.Move) rules.Context {
	ctx.State.Private.Agenda = append(ctx.State.Private.Agenda, m)
	return ctx
}

// issueClarification handles spec §4.4 Rule 4.3 (priority 25, highest in
// Select — a misunderstanding always takes precedence over advancing the
// plan). Well-founded measure: Staging.NonResolvingAnswer is cleared by
// this rule's own effect, so it cannot refire within the same fixpoint.
func issueClarification() rules.Rule {
	return rules.Rule{
		Name:     "IssueClarification",
		Phase:    rules.PhaseSelect,
		Priority: 25,
		Precondition: func(ctx rules.Context) bool {
			_, ok := ctx.State.TopQUD()
			return ok && ctx.Staging.NonResolvingAnswer
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			top, _ := next.State.TopQUD()
			cq := next.Domain.ClarificationFor(top).Clarification(top.ID)
			next.State = next.State.PushQUD(cq)
			next.Staging.NonResolvingAnswer = false
			next = enqueue(next, dialogueact.NewMove(dialogueact.MoveAsk, cq, next.State.AgentID, 1.0, next.Now))
			return next, nil
		},
	}
}

// dependentIssueAccommodation handles spec §4.4 Rule 4.4 (priority 22):
// a prerequisite question is inserted ahead of the issue that depends on
// it, so LocalQuestionAccommodation (priority 20) raises the prerequisite
// first. Well-founded measure: strictly decreases the number of
// issues-with-unmet-prerequisites, bounded by the depends DAG's depth.
func dependentIssueAccommodation(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "DependentIssueAccommodation",
		Phase:    rules.PhaseSelect,
		Priority: 22,
		Precondition: func(ctx rules.Context) bool {
			_, _, ok := headWithUnmetPrereq(model, ctx.State)
			return ok
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			idx, pre, _ := headWithUnmetPrereq(model, next.State)
			issues := next.State.Private.Issues
			preIdx := indexOf(issues, pre.ID)

			out := make([]dialogueact.Question, 0, len(issues))
			out = append(out, issues[:idx]...)
			out = append(out, pre)
			for i, q := range issues[idx:] {
				if idx+i == preIdx {
					continue
				}
				out = append(out, q)
			}
			next.State.Private.Issues = out
			return next, nil
		},
	}
}

// headWithUnmetPrereq finds the first (issue, prerequisite) pair where the
// prerequisite is unresolved and currently sits after the dependent issue
// in private.issues, meaning it needs to be moved ahead.
func headWithUnmetPrereq(model domain.Model, s istate.InformationState) (int, dialogueact.Question, bool) {
	for i, q := range s.Private.Issues {
		for _, pre := range unresolvedPrerequisitesOf(model, s, q) {
			if j := indexOf(s.Private.Issues, pre.ID); j == -1 || j > i {
				return i, pre, true
			}
		}
	}
	return 0, dialogueact.Question{}, false
}

// prerequisitesOf has no direct domain enumerator for "questions q depends
// on" (the contract only exposes pairwise Depends), so it checks q against
// every other currently-tracked issue — sufficient because dependencies
// only matter once both questions are already on the agenda of open issues.
func prerequisitesOf(model domain.Model, s istate.InformationState, q dialogueact.Question) []dialogueact.Question {
	var out []dialogueact.Question
	for _, other := range s.Private.Issues {
		if other.ID == q.ID {
			continue
		}
		if model.Depends(q, other) {
			out = append(out, other)
		}
	}
	return out
}

// unresolvedPrerequisitesOf filters prerequisitesOf to those not yet
// satisfied by a commitment.
func unresolvedPrerequisitesOf(model domain.Model, s istate.InformationState, q dialogueact.Question) []dialogueact.Question {
	var out []dialogueact.Question
	for _, pre := range prerequisitesOf(model, s, q) {
		if !resolvedByCommitment(s, pre) {
			out = append(out, pre)
		}
	}
	return out
}

func resolvedByCommitment(s istate.InformationState, q dialogueact.Question) bool {
	for _, c := range s.Shared.Commitments {
		if c.Predicate == q.Predicate {
			return true
		}
	}
	return false
}

func indexOf(issues []dialogueact.Question, id uuid.UUID) int {
	for i, q := range issues {
		if q.ID == id {
			return i
		}
	}
	return -1
}

// localQuestionAccommodation handles spec §4.4 Rule 4.2 (priority 20).
func localQuestionAccommodation(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "LocalQuestionAccommodation",
		Phase:    rules.PhaseSelect,
		Priority: 20,
		Precondition: func(ctx rules.Context) bool {
			_, ok := ctx.State.TopQUD()
			if ok || len(ctx.State.Private.Issues) == 0 {
				return false
			}
			head := ctx.State.Private.Issues[0]
			return len(unresolvedPrerequisitesOf(model, ctx.State, head)) == 0
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			head := next.State.Private.Issues[0]
			next.State.Private.Issues = append([]dialogueact.Question{}, next.State.Private.Issues[1:]...)
			next.State = next.State.PushQUD(head)
			next = enqueue(next, dialogueact.NewMove(dialogueact.MoveAsk, head, next.State.AgentID, 1.0, next.Now))
			return next, nil
		},
	}
}

// executeAction handles spec §4.6 ExecuteAction (priority 18): the one
// Select-phase rule whose effect suspends at an external boundary (the
// Device adapter), matching spec §5's "suspension points ... with external
// adapters" allowance.
func executeAction() rules.Rule {
	return rules.Rule{
		Name:     "ExecuteAction",
		Phase:    rules.PhaseSelect,
		Priority: 18,
		Precondition: func(ctx rules.Context) bool {
			a, ok := headAction(ctx.State)
			return ok && a.Status == plan.ActionPending && ctx.Device != nil
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			a, _ := headAction(next.State)

			if !next.Device.CheckPreconditions(next.Ctx, a, next.State) {
				return next, nil
			}

			outcome, err := next.Device.Execute(next.Ctx, a, next.State)
			if err != nil {
				return next, fmt.Errorf("selectrules: device execute %s: %w: %w", a.Name, adapter.ErrAdapterFailure, err)
			}

			if outcome.Success {
				next.State.Private.Actions = withActionStatus(next.State.Private.Actions, a.ID, plan.ActionSucceeded)
				next.State.Shared.Commitments = append(next.State.Shared.Commitments, outcome.Postconditions...)
				next.State.Private.Plan = markPerformStepDone(next.State.Private.Plan, a.ID, plan.StepCompleted)
				return next, nil
			}

			next.State.Shared.Commitments = rollbackOptimisticCommitments(next.State.Shared.Commitments, a)
			next.State.Private.Actions = withActionStatus(next.State.Private.Actions, a.ID, plan.ActionFailed)
			next.State.Private.Plan = markPerformStepDone(next.State.Private.Plan, a.ID, plan.StepAbandoned)
			failure := dialogueact.NewProposition("failure",
				dialogueact.Term{Sort: "action", Value: a.Name},
				dialogueact.Term{Sort: "reason", Value: outcome.Reason})
			next = enqueue(next, dialogueact.NewMove(dialogueact.MoveAssert, failure, next.State.AgentID, 1.0, next.Now))
			return next, nil
		},
	}
}

func headAction(s istate.InformationState) (plan.Action, bool) {
	for _, a := range s.Private.Actions {
		if a.Status == plan.ActionPending {
			return a, true
		}
	}
	return plan.Action{}, false
}

func withActionStatus(actions []plan.Action, id uuid.UUID, status plan.ActionStatus) []plan.Action {
	out := make([]plan.Action, len(actions))
	for i, a := range actions {
		if a.ID == id {
			a.Status = status
		}
		out[i] = a
	}
	return out
}

// rollbackOptimisticCommitments removes any commitment whose predicate
// matches one of a's postconditions — the provisional beliefs IntroduceAlternative
// or a Perform step may have recorded ahead of actual execution (spec §4.6
// "rollback any optimistic commitments for A").
func rollbackOptimisticCommitments(commitments []dialogueact.Proposition, a plan.Action) []dialogueact.Proposition {
	post := make(map[string]bool, len(a.Postconditions))
	for _, p := range a.Postconditions {
		post[p.Predicate] = true
	}
	out := make([]dialogueact.Proposition, 0, len(commitments))
	for _, c := range commitments {
		if post[c.Predicate] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func markPerformStepDone(steps []plan.Step, actionID uuid.UUID, status plan.StepStatus) []plan.Step {
	out := make([]plan.Step, len(steps))
	for i, s := range steps {
		if a, ok := s.Action(); ok && a.ID == actionID {
			s.Status = status
		} else if len(s.Subplans) > 0 {
			s.Subplans = markPerformStepDone(s.Subplans, actionID, status)
		}
		out[i] = s
	}
	return out
}

// selectFromPlan handles spec §4.4 "Rule SelectFromPlan" (priority 15).
func selectFromPlan() rules.Rule {
	return rules.Rule{
		Name:     "SelectFromPlan",
		Phase:    rules.PhaseSelect,
		Priority: 15,
		Precondition: func(ctx rules.Context) bool {
			if len(ctx.State.Private.Agenda) > 0 {
				return false
			}
			head, ok := plan.Head(ctx.State.Private.Plan)
			if !ok || head.Kind != plan.StepPerform {
				return false
			}
			a, ok := head.Action()
			if !ok || !preconditionsMet(ctx.State, a) {
				return false
			}
			return !actionQueued(ctx.State.Private.Actions, a.ID)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			head, _ := plan.Head(next.State.Private.Plan)
			a, _ := head.Action()
			next.State.Private.Actions = append(next.State.Private.Actions, a)
			return next, nil
		},
	}
}

func preconditionsMet(s istate.InformationState, a plan.Action) bool {
	for _, p := range a.Preconditions {
		if !s.HasCommitment(p) {
			return false
		}
	}
	return true
}

func actionQueued(actions []plan.Action, id uuid.UUID) bool {
	for _, a := range actions {
		if a.ID == id {
			return true
		}
	}
	return false
}

// fallback handles spec §4.4 "Fallback" (priority 1): only fires when the
// agenda is empty and no higher-priority rule applied. The DialogueState
// check keeps the plan-complete branch from re-firing every cycle once it
// has already ended the dialogue: that branch enqueues nothing, so without
// it the agenda stays empty and the precondition stays true forever.
func fallback() rules.Rule {
	return rules.Rule{
		Name:     "Fallback",
		Phase:    rules.PhaseSelect,
		Priority: 1,
		Precondition: func(ctx rules.Context) bool {
			return len(ctx.State.Private.Agenda) == 0 && ctx.State.Control.DialogueState != istate.StateEnded
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			if planComplete(next.State) {
				next.State.Control.DialogueState = istate.StateEnded
				return next, nil
			}
			helpProp := dialogueact.NewProposition("offer_help")
			next = enqueue(next, dialogueact.NewMove(dialogueact.MoveAssert, helpProp, next.State.AgentID, 1.0, next.Now))
			return next, nil
		},
	}
}

func planComplete(s istate.InformationState) bool {
	_, ok := plan.Head(s.Private.Plan)
	return !ok && len(s.Private.Issues) == 0 && len(s.Shared.QUD) == 0
}
