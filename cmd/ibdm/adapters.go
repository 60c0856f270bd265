package main

import (
	"context"
	"time"

	"github.com/ibdm-project/ibdm/pkg/adapter"
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/plan"
)

// demoNLU is a deliberately trivial stand-in for a real NLU adapter (spec §6
// names NLU as an out-of-core collaborator; only its interface contract is
// specified). It does not parse natural language: with no open question it
// treats any non-empty utterance as a request for this harness's configured
// task; with a question on top of QUD it treats the raw utterance text as
// the volunteered answer, letting the Domain Model's own Resolves decide
// whether it actually fits. This mirrors the stubNLU used in the package
// tests, generalized from a fixed vocabulary to "whatever's being asked".
type demoNLU struct {
	task string
}

func (n demoNLU) Interpret(ctx context.Context, utterance string, state istate.InformationState) ([]dialogueact.Move, error) {
	if utterance == "" {
		return nil, nil
	}

	now := time.Now()

	if _, ok := state.TopQUD(); !ok && len(state.Private.Issues) == 0 && len(state.Private.Plan) == 0 {
		return []dialogueact.Move{
			dialogueact.NewMove(dialogueact.MoveRequest, n.task, "user", 1.0, now),
		}, nil
	}

	answer := dialogueact.Answer{Content: dialogueact.Term{Value: utterance}}
	return []dialogueact.Move{
		dialogueact.NewMove(dialogueact.MoveAnswer, answer, "user", 0.9, now),
	}, nil
}

// demoNLG renders a move by returning its question/ICM template verbatim,
// the same pass-through behavior the package tests use for stubNLG: real
// surface realization is out of core (spec §6), so this harness exists to
// drive the engine end-to-end, not to produce polished prose.
type demoNLG struct{}

func (demoNLG) Render(ctx context.Context, m dialogueact.Move, s istate.InformationState, template string) (string, error) {
	return template, nil
}

// alwaysSucceedDevice is a demo Device adapter that approves every
// precondition check and reports every action as executed successfully,
// committing the action's declared postconditions verbatim. It exists so
// the travel domain's Perform(book_hotel) step has something to drive
// through the HTTP harness; a real host would replace it with an adapter
// that talks to an actual booking system.
type alwaysSucceedDevice struct{}

func (alwaysSucceedDevice) CheckPreconditions(ctx context.Context, a plan.Action, s istate.InformationState) bool {
	return true
}

func (alwaysSucceedDevice) Execute(ctx context.Context, a plan.Action, s istate.InformationState) (adapter.ExecutionOutcome, error) {
	return adapter.ExecutionOutcome{Success: true, Postconditions: a.Postconditions}, nil
}
