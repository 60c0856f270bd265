// Package adapter defines the three boundary contracts the engine calls
// through but never implements itself (spec §6): NLU, NLG, and Device. Each
// is a plain Go interface rather than a generated RPC stub — the engine
// treats every adapter call as synchronous and in-process regardless of
// what the host does behind it, so there is nothing here for a wire codec
// to serialize.
package adapter

import (
	"context"
	"errors"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/plan"
)

// ErrAdapterFailure marks an error surfaced by an adapter boundary call
// (Device.Execute, in practice) as a spec §7 kind 4 soft failure: callers
// should wrap an adapter-layer error with this sentinel via errors.Join or
// fmt.Errorf("...: %w", ErrAdapterFailure) so pkg/engine can tell it apart
// from a Domain Model contract violation and convert it to an ICM move
// instead of rolling the turn back.
var ErrAdapterFailure = errors.New("adapter: boundary call failed")

// NLU turns a raw utterance into dialogue moves (spec §6 "NLU adapter").
// A failure to interpret must not return an error: it returns a single
// uninterpretable move, which the engine maps to icm:per*neg during
// integration (spec §6, §7 kind 6).
type NLU interface {
	Interpret(ctx context.Context, utterance string, state istate.InformationState) ([]dialogueact.Move, error)
}

// NLG renders a single outbound move as an utterance (spec §6 "NLG
// adapter"). Implementations must be pure given (move, state, template):
// the same inputs always render the same text.
type NLG interface {
	Render(ctx context.Context, move dialogueact.Move, state istate.InformationState, template string) (string, error)
}

// ExecutionOutcome is the result of a Device.Execute call: either a set of
// new postconditions to commit, or a failure reason (spec §6 "Device
// adapter").
type ExecutionOutcome struct {
	Success        bool
	Postconditions []dialogueact.Proposition
	Reason         string
}

// Device performs the real-world side effect behind a Perform(A) plan step
// or an IBiS4 private.actions entry (spec §4.6 ExecuteAction).
type Device interface {
	CheckPreconditions(ctx context.Context, a plan.Action, state istate.InformationState) bool
	Execute(ctx context.Context, a plan.Action, state istate.InformationState) (ExecutionOutcome, error)
}
