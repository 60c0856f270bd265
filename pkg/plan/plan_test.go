package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
)

func TestHeadFindsFirstPendingStepDepthFirst(t *testing.T) {
	inner := Findout(dialogueact.NewWh("x", "dest_city"))
	outer := Findout(dialogueact.NewWh("x", "depart_day"))
	outer.Status = StepCompleted
	outer.Subplans = []Step{inner}

	steps := []Step{outer}
	head, ok := Head(steps)
	require.True(t, ok)
	assert.Equal(t, inner.ID, head.ID)
}

func TestHeadSkipsCompletedAndAbandonedSteps(t *testing.T) {
	done := Findout(dialogueact.NewWh("x", "dest_city"))
	done.Status = StepCompleted
	abandoned := Findout(dialogueact.NewWh("x", "budget"))
	abandoned.Status = StepAbandoned
	pending := Findout(dialogueact.NewWh("x", "depart_day"))

	steps := []Step{done, abandoned, pending}
	head, ok := Head(steps)
	require.True(t, ok)
	assert.Equal(t, pending.ID, head.ID)
}

func TestHeadReturnsFalseWhenPlanFullyResolved(t *testing.T) {
	done := Findout(dialogueact.NewWh("x", "dest_city"))
	done.Status = StepCompleted
	_, ok := Head([]Step{done})
	assert.False(t, ok)
}

func TestRemainingCountsNestedSubplans(t *testing.T) {
	leaf := Findout(dialogueact.NewWh("x", "dest_city"))
	mid := Findout(dialogueact.NewWh("x", "depart_day"))
	mid.Subplans = []Step{leaf}
	done := Findout(dialogueact.NewWh("x", "budget"))
	done.Status = StepCompleted

	assert.Equal(t, 2, Remaining([]Step{mid, done}))
}

func TestWithStepStatusUpdatesNestedStepWithoutMutatingOriginal(t *testing.T) {
	leaf := Findout(dialogueact.NewWh("x", "dest_city"))
	outer := Findout(dialogueact.NewWh("x", "depart_day"))
	outer.Subplans = []Step{leaf}
	steps := []Step{outer}

	updated := WithStepStatus(steps, leaf.ID, StepCompleted)

	assert.Equal(t, StepActive, steps[0].Subplans[0].Status, "original must be untouched")
	assert.Equal(t, StepCompleted, updated[0].Subplans[0].Status)
}

func TestSequenceAdvancesThroughStepsInOrder(t *testing.T) {
	first := Findout(dialogueact.NewWh("x", "dest_city"))
	second := Findout(dialogueact.NewWh("x", "depart_day"))
	third := Perform(NewAction("book", nil, nil, nil))
	seq := Sequence(first, second, third)

	head, ok := Head([]Step{seq})
	require.True(t, ok)
	assert.Equal(t, first.ID, head.ID)

	steps := WithStepStatus([]Step{seq}, first.ID, StepCompleted)
	head, ok = Head(steps)
	require.True(t, ok)
	assert.Equal(t, second.ID, head.ID)

	steps = WithStepStatus(steps, second.ID, StepCompleted)
	head, ok = Head(steps)
	require.True(t, ok)
	assert.Equal(t, third.ID, head.ID)

	steps = WithStepStatus(steps, third.ID, StepCompleted)
	_, ok = Head(steps)
	assert.False(t, ok, "plan fully resolved once every child completes")
}

func TestSequenceContainerStatusIgnoredWhileChildPending(t *testing.T) {
	leaf := Findout(dialogueact.NewWh("x", "dest_city"))
	seq := Sequence(leaf)
	seq.Status = StepCompleted // container status is irrelevant while Subplans is non-empty

	head, ok := Head([]Step{seq})
	require.True(t, ok)
	assert.Equal(t, leaf.ID, head.ID)
}
