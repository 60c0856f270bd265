package istate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
)

func TestQUDIsLIFO(t *testing.T) {
	s := Initialize("agent-1")
	q1 := dialogueact.NewWh("x", "parties")
	q2 := dialogueact.NewWh("x", "effective_date")

	s = s.PushQUD(q1)
	s = s.PushQUD(q2)

	top, ok := s.TopQUD()
	require.True(t, ok)
	assert.True(t, top.Equal(q2))

	s, popped, ok := s.PopQUD()
	require.True(t, ok)
	assert.True(t, popped.Equal(q2))

	top, ok = s.TopQUD()
	require.True(t, ok)
	assert.True(t, top.Equal(q1))
}

func TestCloneIsIndependent(t *testing.T) {
	s := Initialize("agent-1")
	s.Private.Issues = append(s.Private.Issues, dialogueact.NewWh("x", "parties"))
	s.Private.Beliefs["greeted"] = dialogueact.Term{Value: true}

	clone := s.Clone()
	clone.Private.Issues[0] = dialogueact.NewWh("x", "mutated")
	clone.Private.Beliefs["greeted"] = dialogueact.Term{Value: false}

	assert.Equal(t, "parties", s.Private.Issues[0].Predicate, "mutating the clone must not affect the original")
	assert.Equal(t, true, s.Private.Beliefs["greeted"].Value)
}

func TestSerializeRoundTrip(t *testing.T) {
	s := Initialize("agent-1")
	q := dialogueact.NewWh("x", "parties")
	s.Private.Issues = append(s.Private.Issues, q)
	s.Shared.QUD = append(s.Shared.QUD, dialogueact.NewWh("y", "effective_date"))
	s.Shared.Commitments = append(s.Shared.Commitments, dialogueact.NewProposition("greeted", dialogueact.Term{Value: true}))
	move := dialogueact.NewMove(dialogueact.MoveAsk, q, "system", 1.0, time.Now())
	s.Shared.Moves = append(s.Shared.Moves, move)

	data, err := Serialize(s)
	require.NoError(t, err)

	back, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, s.AgentID, back.AgentID)
	assert.Equal(t, s.Private.Issues[0].Predicate, back.Private.Issues[0].Predicate)
	assert.Equal(t, s.Shared.QUD[0].Predicate, back.Shared.QUD[0].Predicate)
	assert.True(t, s.Shared.Commitments[0].Equal(back.Shared.Commitments[0]))
	require.Len(t, back.Shared.Moves, 1)
	gotQ, ok := back.Shared.Moves[0].AsQuestion()
	require.True(t, ok)
	assert.Equal(t, "parties", gotQ.Predicate)
}

func TestValidateDetectsIncompatibleCommitments(t *testing.T) {
	model := domain.NewRegistry(domain.CyclePolicyError)
	s := Initialize("agent-1")
	s.Shared.Commitments = append(s.Shared.Commitments,
		dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 5"}),
		dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 4"}),
	)

	err := Validate(s, model)
	assert.Error(t, err)
}

func TestValidateDetectsSharedIdentityAcrossIssuesAndQUD(t *testing.T) {
	model := domain.NewRegistry(domain.CyclePolicyError)
	s := Initialize("agent-1")
	q := dialogueact.NewWh("x", "parties")
	s.Private.Issues = append(s.Private.Issues, q)
	s.Shared.QUD = append(s.Shared.QUD, q)

	err := Validate(s, model)
	assert.Error(t, err)
}
