// Package rules implements the four-phase rule engine of spec §4.1:
// Interpret, Integrate, Select, Generate. Each phase holds an ordered set
// of update rules; within a phase, rule dispatch is single-first-applicable
// per cycle, iterated to a fixpoint.
package rules

import (
	"context"
	"time"

	"github.com/ibdm-project/ibdm/pkg/adapter"
	"github.com/ibdm-project/ibdm/pkg/config"
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/istate"
)

// Phase identifies one of the four update phases a rule belongs to.
type Phase string

const (
	PhaseInterpret Phase = "interpret"
	PhaseIntegrate Phase = "integrate"
	PhaseSelect    Phase = "select"
	PhaseGenerate  Phase = "generate"
)

// Staging carries transient, turn-scoped signals between rules within and
// across phases that are not part of the persisted Information State (spec
// §3 only names the substates that survive a turn). QuestionReaccommodation's
// staged retraction (spec §4.3 Rule "RetractIncompatibleCommitment") and the
// non-resolving-answer flag that triggers IssueClarification (spec §4.4)
// are both examples of bookkeeping the rules need to hand off to each other
// without polluting private.beliefs or shared.commitments.
type Staging struct {
	// StagedRetraction is set by QuestionReaccommodation and consumed
	// (and cleared) by RetractIncompatibleCommitment in the same Integrate
	// fixpoint.
	StagedRetraction *dialogueact.Proposition

	// NonResolvingAnswer is set when IntegrateAnswer accepts an answer
	// that does not resolve the top QUD question, so the Select phase
	// knows to raise a clarification rather than treating the turn as
	// settled.
	NonResolvingAnswer bool

	// PendingActionID is carried through Clone; no rule in this module sets
	// or reads it.
	PendingActionID *dialogueact.Term

	// JustRetracted is set by RetractIncompatibleCommitment and
	// DependentQuestionReaccommodation after each retraction, so the
	// cascade (spec §4.3 Rule 4.8) can walk the `depends` DAG one edge per
	// fixpoint cycle. It is not cleared: once no dependent commitment is
	// found, the cascade rule's precondition stops holding.
	JustRetracted *dialogueact.Proposition

	// GroundingAssigned guards pkg/grounding's AssignInitialStatus pass
	// from reapplying to the same inbound move within one Integrate
	// fixpoint (spec §4.5).
	GroundingAssigned bool

	// Reraised guards pkg/grounding's Reraise rule from firing more than
	// once per Integrate fixpoint: a stale Pending move should be nudged
	// once per turn (spec §9), not repeatedly until the reraise budget is
	// spent.
	Reraised bool
}

// Clone returns an independent copy of s.
func (s Staging) Clone() Staging {
	out := s
	if s.StagedRetraction != nil {
		p := *s.StagedRetraction
		out.StagedRetraction = &p
	}
	if s.PendingActionID != nil {
		t := *s.PendingActionID
		out.PendingActionID = &t
	}
	if s.JustRetracted != nil {
		p := *s.JustRetracted
		out.JustRetracted = &p
	}
	return out
}

// Context is the value every rule's Precondition and Effect closes over.
// It threads the Information State alongside the process-local Domain
// Model, the resolved engine Config, the current wall-clock time, the
// inbound move being integrated this turn (nil outside Interpret/Integrate),
// and the cross-rule Staging scratch pad.
type Context struct {
	Ctx     context.Context
	State   istate.InformationState
	Domain  domain.Model
	Config  config.EngineConfig
	Device  adapter.Device
	Now     time.Time
	Inbound *dialogueact.Move
	Staging Staging
}

// Clone returns an independent copy of c, deep-copying the Information
// State and Staging so a rule's Effect can freely mutate its return value.
func (c Context) Clone() Context {
	out := c
	out.State = c.State.Clone()
	out.Staging = c.Staging.Clone()
	return out
}

// Rule is one named, prioritized update rule (spec §4.1). Precondition
// decides whether the rule is applicable to ctx; Effect produces the next
// Context. Within a phase, at most one rule's Effect runs per cycle — the
// highest-priority rule whose Precondition holds.
type Rule struct {
	Name         string
	Phase        Phase
	Priority     int32
	Precondition func(Context) bool
	Effect       func(Context) (Context, error)
}
