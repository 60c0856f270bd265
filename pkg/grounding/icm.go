package grounding

import (
	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/rules"
)

// spellingConfirmation handles spec §4.5's critical-entity confirmation: a
// move whose content names a predicate configured in
// config.CriticalEntityPredicates is held back for explicit confirmation
// whenever its confidence falls under that predicate's own floor, even if
// the move cleared the general grounding threshold (priority 28, just below
// assignment). Well-founded measure: only fires while the move's status is
// still Grounded, and demotes it to Pending, so it cannot refire for the
// same move.
func spellingConfirmation() rules.Rule {
	return rules.Rule{
		Name:     "SpellingConfirmation",
		Phase:    rules.PhaseIntegrate,
		Priority: 28,
		Precondition: func(ctx rules.Context) bool {
			m := ctx.Inbound
			if m == nil || m.GroundingStatus != dialogueact.StatusGrounded {
				return false
			}
			pred, ok := criticalPredicate(*m)
			if !ok {
				return false
			}
			floor, tracked := ctx.Config.CriticalEntityPredicates[pred]
			return tracked && m.Confidence < float64(floor)
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			m := *next.Inbound
			m.GroundingStatus = dialogueact.StatusPending
			next.State.Shared.Moves = upsertMove(next.State.Shared.Moves, m)
			icmMove := dialogueact.NewMove(dialogueact.MoveICMUndInt, m.ID, next.State.AgentID, 1.0, next.Now)
			next.State.Private.Agenda = append(next.State.Private.Agenda, icmMove)
			next.Inbound = nil
			return next, nil
		},
	}
}

func criticalPredicate(m dialogueact.Move) (string, bool) {
	if p, ok := m.AsProposition(); ok {
		return p.Predicate, true
	}
	if a, ok := m.AsAnswer(); ok {
		if p, ok := a.AsProposition(); ok {
			return p.Predicate, true
		}
	}
	return "", false
}

// icmAcceptance handles spec §4.5's icm:acc reaction (priority 27): the
// referenced move is marked Grounded and replayed as the current turn's
// inbound move, so the content-integration rules that were skipped when it
// was first deferred now run against it.
func icmAcceptance() rules.Rule {
	return rules.Rule{
		Name:     "ICMAcceptance",
		Phase:    rules.PhaseIntegrate,
		Priority: 27,
		Precondition: func(ctx rules.Context) bool {
			return ctx.Inbound != nil && ctx.Inbound.Kind == dialogueact.MoveICMAcc
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			ref, ok := next.Inbound.Content.(uuid.UUID)
			if !ok {
				next.Inbound = nil
				return next, nil
			}
			referenced, ok := findMove(next.State.Shared.Moves, ref)
			if !ok {
				next.Inbound = nil
				return next, nil
			}
			referenced.GroundingStatus = dialogueact.StatusGrounded
			next.State.Shared.Moves = upsertMove(next.State.Shared.Moves, referenced)
			next.Inbound = &referenced
			return next, nil
		},
	}
}

// icmReject handles spec §4.5's icm:und*neg reaction (priority 26): the
// referenced move is discarded outright rather than reraised — the user
// explicitly disconfirmed it, so retrying the same content would not help.
func icmReject() rules.Rule {
	return rules.Rule{
		Name:     "ICMReject",
		Phase:    rules.PhaseIntegrate,
		Priority: 26,
		Precondition: func(ctx rules.Context) bool {
			return ctx.Inbound != nil && ctx.Inbound.Kind == dialogueact.MoveICMUndNeg
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			if ref, ok := next.Inbound.Content.(uuid.UUID); ok {
				next.State.Shared.Moves = withMoveStatus(next.State.Shared.Moves, ref, dialogueact.StatusUngrounded)
			}
			next.Inbound = nil
			return next, nil
		},
	}
}

// reraise handles spec §4.5/§9's reraise bookkeeping (priority 24): whenever
// a new move arrives while an earlier one is still stuck Pending, the stale
// move's confirmation request is re-sent and its ReraiseAttempts counter
// incremented, up to config.MaxReraiseAttempts. Past that budget the stale
// move is abandoned rather than asked about forever. Runs below IntegrateQuit
// (25) so a quit move always takes precedence over nudging a stale pending
// confirmation.
//
// The Staging.Reraised guard keeps this rule to at most one firing per
// Integrate fixpoint: without it the stale move stays Pending and ctx.Inbound
// stays set after the effect runs, so the precondition would hold again on
// the very next cycle and burn the whole reraise budget against a single new
// inbound move instead of nudging it once per turn (spec §9 "reraise count
// is per-move").
func reraise() rules.Rule {
	return rules.Rule{
		Name:     "Reraise",
		Phase:    rules.PhaseIntegrate,
		Priority: 24,
		Precondition: func(ctx rules.Context) bool {
			if ctx.Inbound == nil || ctx.Staging.Reraised {
				return false
			}
			_, ok := stalePending(ctx)
			return ok
		},
		Effect: func(ctx rules.Context) (rules.Context, error) {
			next := ctx.Clone()
			next.Staging.Reraised = true
			stale, _ := stalePending(ctx)
			stale.ReraiseAttempts++

			if stale.ReraiseAttempts >= int(next.Config.MaxReraiseAttempts) {
				stale.GroundingStatus = dialogueact.StatusUngrounded
				next.State.Shared.Moves = upsertMove(next.State.Shared.Moves, stale)
				giveUp := dialogueact.NewProposition("offer_help")
				next.State.Private.Agenda = append(next.State.Private.Agenda,
					dialogueact.NewMove(dialogueact.MoveAssert, giveUp, next.State.AgentID, 1.0, next.Now))
				return next, nil
			}

			next.State.Shared.Moves = upsertMove(next.State.Shared.Moves, stale)
			reraiseMove := dialogueact.NewMove(dialogueact.MoveICMUndInt, stale.ID, next.State.AgentID, 1.0, next.Now)
			next.State.Private.Agenda = append(next.State.Private.Agenda, reraiseMove)
			return next, nil
		},
	}
}

func stalePending(ctx rules.Context) (dialogueact.Move, bool) {
	for _, m := range ctx.State.Shared.Moves {
		if m.GroundingStatus == dialogueact.StatusPending && m.ID != ctx.Inbound.ID {
			return m, true
		}
	}
	return dialogueact.Move{}, false
}
