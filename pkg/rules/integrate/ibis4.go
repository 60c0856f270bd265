package integrate

import (
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/plan"
	"github.com/ibdm-project/ibdm/pkg/rules"
)

// requestAction extracts the plan.Action an inbound `request` move carries,
// as distinct from FormTaskPlan's task-name requests.
func requestAction(m *dialogueact.Move) (plan.Action, bool) {
	if m == nil || m.Kind != dialogueact.MoveRequest {
		return plan.Action{}, false
	}
	a, ok := m.Content.(plan.Action)
	return a, ok
}

func unmetPreconditions(s rules.Context, a plan.Action) []dialogueact.Proposition {
	var unmet []dialogueact.Proposition
	for _, p := range a.Preconditions {
		if !s.State.HasCommitment(p) {
			unmet = append(unmet, p)
		}
	}
	return unmet
}

// rejectRequest handles spec §4.6 RejectRequest: a request whose unmet
// precondition the Domain Model cannot turn into a Findout question is
// rejected outright with a not_feasible assertion, rather than silently
// stalled. Runs before integrateRequest so the two never both apply to the
// same inbound move.
func rejectRequest(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "RejectRequest",
		Phase:    rules.PhaseIntegrate,
		Priority: 19,
		Precondition: func(ctx rules.Context) bool {
			a, ok := requestAction(lastInbound(ctx))
			if !ok {
				return false
			}
			for _, p := range unmetPreconditions(ctx, a) {
				if _, ok := model.GetQuestionFromCommitment(p); !ok {
					return true
				}
			}
			return false
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			a, _ := requestAction(lastInbound(next))
			var reason dialogueact.Proposition
			for _, p := range unmetPreconditions(ctx, a) {
				if _, ok := model.GetQuestionFromCommitment(p); !ok {
					reason = p
					break
				}
			}
			notFeasible := dialogueact.NewProposition("not_feasible",
				dialogueact.Term{Sort: "action", Value: a.Name},
				dialogueact.Term{Sort: "reason", Value: reason.Predicate})
			move := dialogueact.NewMove(dialogueact.MoveAssert, notFeasible, next.State.AgentID, 1.0, next.Now)
			next.State.Private.Agenda = append(next.State.Private.Agenda, move)
			next.Inbound = nil
			return next, nil
		},
	}
}

// integrateRequest handles spec §4.6 IntegrateRequest: queues A for
// execution once all its preconditions hold, or accommodates whichever
// unmet preconditions the domain can phrase as questions so a later turn
// can supply them.
func integrateRequest(model domain.Model) rules.Rule {
	return rules.Rule{
		Name:     "IntegrateRequest",
		Phase:    rules.PhaseIntegrate,
		Priority: 18,
		Precondition: func(ctx rules.Context) bool {
			a, ok := requestAction(lastInbound(ctx))
			if !ok {
				return false
			}
			for _, p := range unmetPreconditions(ctx, a) {
				if _, ok := model.GetQuestionFromCommitment(p); !ok {
					return false
				}
			}
			return true
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			a, _ := requestAction(lastInbound(next))
			for _, p := range unmetPreconditions(ctx, a) {
				q, _ := model.GetQuestionFromCommitment(p)
				if !next.State.InIssuesOrQUD(q.ID) {
					next.State.Private.Issues = append(next.State.Private.Issues, q)
				}
			}
			next.State.Private.Actions = append(next.State.Private.Actions, a)
			next.Inbound = nil
			return next, nil
		},
	}
}
