package grounding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibdm-project/ibdm/pkg/config"
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/rules"
)

func newCtx(cfg config.EngineConfig, m dialogueact.Move) rules.Context {
	s := istate.Initialize("a")
	return rules.Context{Ctx: context.Background(), State: s, Config: cfg, Now: time.Now(), Inbound: &m}
}

func cautiousConfig() config.EngineConfig {
	cfg := config.Default()
	cfg.GroundingStrategy = config.StrategyCautious
	cfg.ConfidenceThresholds = config.ConfidenceThresholds{Grounded: 0.8, Pending: 0.4}
	return cfg
}

func TestAssignInitialStatusGroundsHighConfidenceMove(t *testing.T) {
	rule := assignInitialStatus()
	m := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.95, time.Now())
	ctx := newCtx(cautiousConfig(), m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	require.NotNil(t, next.Inbound)
	assert.Equal(t, dialogueact.StatusGrounded, next.Inbound.GroundingStatus)
	assert.Empty(t, next.State.Private.Agenda)
}

func TestAssignInitialStatusDefersLowConfidenceMove(t *testing.T) {
	rule := assignInitialStatus()
	m := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.5, time.Now())
	ctx := newCtx(cautiousConfig(), m)

	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	assert.Nil(t, next.Inbound)
	require.Len(t, next.State.Private.Agenda, 1)
	assert.Equal(t, dialogueact.MoveICMUndInt, next.State.Private.Agenda[0].Kind)
	require.Len(t, next.State.Shared.Moves, 1)
	assert.Equal(t, dialogueact.StatusPending, next.State.Shared.Moves[0].GroundingStatus)
}

func TestAssignInitialStatusUngroundsVeryLowConfidenceMove(t *testing.T) {
	rule := assignInitialStatus()
	m := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.1, time.Now())
	ctx := newCtx(cautiousConfig(), m)

	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	require.Len(t, next.State.Shared.Moves, 1)
	assert.Equal(t, dialogueact.StatusUngrounded, next.State.Shared.Moves[0].GroundingStatus)
	require.Len(t, next.State.Private.Agenda, 1)
	assert.Equal(t, dialogueact.MoveICMPerNeg, next.State.Private.Agenda[0].Kind)
}

func TestSpellingConfirmationHoldsBackCriticalEntityBelowFloor(t *testing.T) {
	rule := spellingConfirmation()
	cfg := cautiousConfig()
	cfg.CriticalEntityPredicates = map[string]float32{"parties": 0.9}

	m := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("parties"), "user", 0.85, time.Now())
	m.GroundingStatus = dialogueact.StatusGrounded
	ctx := newCtx(cfg, m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	assert.Nil(t, next.Inbound)
	require.Len(t, next.State.Private.Agenda, 1)
	assert.Equal(t, dialogueact.MoveICMUndInt, next.State.Private.Agenda[0].Kind)
	require.Len(t, next.State.Shared.Moves, 1)
	assert.Equal(t, dialogueact.StatusPending, next.State.Shared.Moves[0].GroundingStatus)
}

func TestICMAcceptanceReplaysReferencedMoveAsInbound(t *testing.T) {
	pending := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.5, time.Now())
	pending.GroundingStatus = dialogueact.StatusPending

	ack := dialogueact.NewMove(dialogueact.MoveICMAcc, pending.ID, "user", 1.0, time.Now())
	ctx := newCtx(cautiousConfig(), ack)
	ctx.State.Shared.Moves = append(ctx.State.Shared.Moves, pending)

	rule := icmAcceptance()
	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	require.NotNil(t, next.Inbound)
	assert.Equal(t, pending.ID, next.Inbound.ID)
	assert.Equal(t, dialogueact.StatusGrounded, next.Inbound.GroundingStatus)
}

func TestICMRejectDropsReferencedMove(t *testing.T) {
	pending := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.5, time.Now())
	pending.GroundingStatus = dialogueact.StatusPending

	neg := dialogueact.NewMove(dialogueact.MoveICMUndNeg, pending.ID, "user", 1.0, time.Now())
	ctx := newCtx(cautiousConfig(), neg)
	ctx.State.Shared.Moves = append(ctx.State.Shared.Moves, pending)

	rule := icmReject()
	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	assert.Nil(t, next.Inbound)
	assert.Equal(t, dialogueact.StatusUngrounded, next.State.Shared.Moves[0].GroundingStatus)
}

func TestReraiseIncrementsAttemptsUntilBudgetExhausted(t *testing.T) {
	stale := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.5, time.Now())
	stale.GroundingStatus = dialogueact.StatusPending

	cfg := cautiousConfig()
	cfg.MaxReraiseAttempts = 2
	stale.ReraiseAttempts = 1

	fresh := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("depart_day"), "user", 0.9, time.Now())
	ctx := newCtx(cfg, fresh)
	ctx.State.Shared.Moves = append(ctx.State.Shared.Moves, stale)

	rule := reraise()
	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	var updated dialogueact.Move
	for _, m := range next.State.Shared.Moves {
		if m.ID == stale.ID {
			updated = m
		}
	}
	assert.Equal(t, 2, updated.ReraiseAttempts)
	assert.Equal(t, dialogueact.StatusUngrounded, updated.GroundingStatus)
	require.Len(t, next.State.Private.Agenda, 1)
	assert.Equal(t, dialogueact.MoveAssert, next.State.Private.Agenda[0].Kind)
}

func TestCriticalPredicateFromProposition(t *testing.T) {
	m := dialogueact.NewMove(dialogueact.MoveAssert, dialogueact.NewProposition("dest_city"), "user", 0.5, time.Now())
	pred, ok := criticalPredicate(m)
	require.True(t, ok)
	assert.Equal(t, "dest_city", pred)
}
