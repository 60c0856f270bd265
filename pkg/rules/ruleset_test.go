package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/istate"
)

func countingRule(name string, phase Phase, priority int32, limit int) Rule {
	return Rule{
		Name:     name,
		Phase:    phase,
		Priority: priority,
		Precondition: func(ctx Context) bool {
			n, _ := ctx.State.Private.Beliefs["count"]
			return n.Value == nil || n.Value.(int) < limit
		},
		Effect: func(ctx Context) (Context, error) {
			next := ctx.Clone()
			cur := 0
			if v, ok := next.State.Private.Beliefs["count"]; ok && v.Value != nil {
				cur = v.Value.(int)
			}
			next.State.Private.Beliefs["count"] = dialogueact.Term{Value: cur + 1}
			return next, nil
		},
	}
}

func TestRunOncePicksHighestPriorityApplicableRule(t *testing.T) {
	low := Rule{
		Name: "low", Phase: PhaseIntegrate, Priority: 1,
		Precondition: func(Context) bool { return true },
		Effect: func(ctx Context) (Context, error) {
			next := ctx.Clone()
			next.Staging.NonResolvingAnswer = false
			return next, nil
		},
	}
	high := Rule{
		Name: "high", Phase: PhaseIntegrate, Priority: 10,
		Precondition: func(Context) bool { return true },
		Effect: func(ctx Context) (Context, error) {
			next := ctx.Clone()
			next.Staging.NonResolvingAnswer = true
			return next, nil
		},
	}
	set := NewSet([]Rule{low, high})

	_, fired, ok, err := set.RunOnce(PhaseIntegrate, Context{State: istate.Initialize("a")})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "high", fired.Name)
}

func TestRunFixpointConvergesWhenNoRuleApplies(t *testing.T) {
	set := NewSet([]Rule{countingRule("incr", PhaseIntegrate, 1, 3)})
	ctx := Context{State: istate.Initialize("a")}

	final, result, err := set.RunFixpoint(PhaseIntegrate, ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, final.State.Private.Beliefs["count"].Value)
}

func TestRunFixpointReportsBudgetExceeded(t *testing.T) {
	set := NewSet([]Rule{countingRule("incr", PhaseIntegrate, 1, 1000)})
	ctx := Context{State: istate.Initialize("a")}

	_, _, err := set.RunFixpoint(PhaseIntegrate, ctx, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPhaseBudgetExceeded))
}
