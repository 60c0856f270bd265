package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
)

func TestRegisterDependencyDetectsCycles(t *testing.T) {
	r := NewRegistry(CyclePolicyError)

	require.NoError(t, r.RegisterDependency("price_quote", "depart_day"))
	require.NoError(t, r.RegisterDependency("depart_day", "dest_city"))

	err := r.RegisterDependency("dest_city", "price_quote")
	assert.True(t, errors.Is(err, ErrDependencyCycle))
}

func TestRegisterDependencyDropPolicySkipsCycleSilently(t *testing.T) {
	r := NewRegistry(CyclePolicyDrop)
	require.NoError(t, r.RegisterDependency("a", "b"))
	require.NoError(t, r.RegisterDependency("b", "a"))

	aq := dialogueact.NewWh("x", "a")
	bq := dialogueact.NewWh("x", "b")
	assert.True(t, r.Depends(aq, bq))
	assert.False(t, r.Depends(bq, aq), "cyclic edge should have been dropped, not registered")
}

func TestIncompatibleDefaultsToSamePredicateDifferentValue(t *testing.T) {
	r := NewRegistry(CyclePolicyError)

	p1 := dialogueact.NewProposition("depart_day", dialogueact.Term{Sort: "date", Value: "April 5"})
	p2 := dialogueact.NewProposition("depart_day", dialogueact.Term{Sort: "date", Value: "April 4"})
	p3 := dialogueact.NewProposition("depart_day", dialogueact.Term{Sort: "date", Value: "April 5"})

	assert.True(t, r.Incompatible(p1, p2))
	assert.False(t, r.Incompatible(p1, p3))
}

func TestIncompatibleCrossPredicate(t *testing.T) {
	r := NewRegistry(CyclePolicyError)
	r.RegisterIncompatible("vegetarian", "steak_dinner")

	p1 := dialogueact.NewProposition("vegetarian", dialogueact.Term{Sort: "bool", Value: true})
	p2 := dialogueact.NewProposition("steak_dinner", dialogueact.Term{Sort: "bool", Value: true})
	assert.True(t, r.Incompatible(p1, p2))
}

func TestResolvesRejectsOutOfSortValue(t *testing.T) {
	r := NewRegistry(CyclePolicyError)
	r.RegisterSort("class", dialogueact.Term{Sort: "class", Value: "economy"}, dialogueact.Term{Sort: "class", Value: "business"})

	q := dialogueact.NewWh("c", "class", dialogueact.Term{Value: "class"})
	okAnswer := dialogueact.Answer{Content: dialogueact.NewProposition("class", dialogueact.Term{Sort: "class", Value: "economy"})}
	badAnswer := dialogueact.Answer{Content: dialogueact.NewProposition("class", dialogueact.Term{Sort: "class", Value: "blue"})}

	assert.True(t, r.Resolves(okAnswer, q))
	assert.False(t, r.Resolves(badAnswer, q))
	assert.True(t, r.Relevant(badAnswer, q), "wrong-sort answer is still topically relevant")
}
