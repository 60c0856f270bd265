package integrate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibdm-project/ibdm/examples/domain/travel"
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/domain"
	"github.com/ibdm-project/ibdm/pkg/istate"
	"github.com/ibdm-project/ibdm/pkg/plan"
	"github.com/ibdm-project/ibdm/pkg/rules"
)

// tripModel is a tiny fixed Domain Model covering just enough of the travel
// scenario (spec §8 seed S2/S3) to exercise the integration rules: two
// dependent predicates (depart_day depends on dest_city) and one
// incompatibility (two different depart_day values).
type tripModel struct {
	domain.Model
}

func (tripModel) Resolves(a dialogueact.Answer, q dialogueact.Question) bool {
	p, ok := a.AsProposition()
	if !ok {
		return false
	}
	return p.Predicate == q.Predicate
}

func (tripModel) Combines(q dialogueact.Question, a dialogueact.Answer) dialogueact.Proposition {
	p, _ := a.AsProposition()
	return p
}

func (tripModel) Relevant(a dialogueact.Answer, q dialogueact.Question) bool {
	return true
}

func (tripModel) Depends(a, b dialogueact.Question) bool {
	return a.Predicate == "depart_day" && b.Predicate == "dest_city"
}

func (tripModel) Incompatible(p, p2 dialogueact.Proposition) bool {
	return p.Predicate == p2.Predicate && !p.Equal(p2)
}

func (tripModel) GetQuestionFromCommitment(p dialogueact.Proposition) (dialogueact.Question, bool) {
	return dialogueact.NewWh("x", p.Predicate), true
}

func (tripModel) HasPlan(task string) bool { return task == "book_trip" }

func (tripModel) BuildPlan(task string, ctx map[string]dialogueact.Term) (plan.Step, error) {
	return plan.Findout(dialogueact.NewWh("x", "dest_city")), nil
}

func newCtx(s istate.InformationState, inbound *dialogueact.Move) rules.Context {
	return rules.Context{State: s, Inbound: inbound, Now: time.Now()}
}

func TestIntegrateAskPushesOntoQUD(t *testing.T) {
	rule := integrateAsk()
	q := dialogueact.NewWh("x", "dest_city")
	m := dialogueact.NewMove(dialogueact.MoveAsk, q, "user", 1.0, time.Now())
	ctx := newCtx(istate.Initialize("a"), &m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	top, ok := next.State.TopQUD()
	require.True(t, ok)
	assert.True(t, top.Equal(q))
	assert.Nil(t, next.Inbound)
}

func TestIntegrateAnswerQUDPopsAndCommits(t *testing.T) {
	model := tripModel{}
	rule := integrateAnswerQUD(model)
	q := dialogueact.NewWh("x", "dest_city")
	s := istate.Initialize("a").PushQUD(q)
	ans := dialogueact.Answer{Content: dialogueact.NewProposition("dest_city", dialogueact.Term{Value: "Paris"})}
	m := dialogueact.NewMove(dialogueact.MoveAnswer, ans, "user", 1.0, time.Now())
	ctx := newCtx(s, &m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	_, ok := next.State.TopQUD()
	assert.False(t, ok, "QUD should be empty after popping")
	require.Len(t, next.State.Shared.Commitments, 1)
	assert.Equal(t, "dest_city", next.State.Shared.Commitments[0].Predicate)
}

func TestQuestionReaccommodationStagesRetractionOnConflict(t *testing.T) {
	model := tripModel{}
	rule := questionReaccommodation(model)

	s := istate.Initialize("a")
	s.Shared.Commitments = append(s.Shared.Commitments,
		dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 4"}))
	q := dialogueact.NewWh("x", "depart_day")
	s = s.PushQUD(q)

	ans := dialogueact.Answer{Content: dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 5"})}
	m := dialogueact.NewMove(dialogueact.MoveAnswer, ans, "user", 1.0, time.Now())
	ctx := newCtx(s, &m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	require.NotNil(t, next.Staging.StagedRetraction)
	assert.Equal(t, "April 4", next.Staging.StagedRetraction.Args[0].Value)
	require.Len(t, next.State.Private.Issues, 1)
	assert.Equal(t, "depart_day", next.State.Private.Issues[0].Predicate)
}

func TestRetractIncompatibleCommitmentRemovesStaleCommitment(t *testing.T) {
	rule := retractIncompatibleCommitment()
	stale := dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 4"})

	s := istate.Initialize("a")
	s.Shared.Commitments = append(s.Shared.Commitments, stale)

	ctx := rules.Context{State: s}
	ctx.Staging.StagedRetraction = &stale

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	assert.Empty(t, next.State.Shared.Commitments)
	assert.Nil(t, next.Staging.StagedRetraction)
	require.NotNil(t, next.Staging.JustRetracted)
	assert.True(t, next.Staging.JustRetracted.Equal(stale))
}

func TestDependentQuestionReaccommodationCascades(t *testing.T) {
	model := tripModel{}
	rule := dependentQuestionReaccommodation(model)

	destCity := dialogueact.NewProposition("dest_city", dialogueact.Term{Value: "Paris"})
	departDay := dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 5"})

	s := istate.Initialize("a")
	s.Shared.Commitments = append(s.Shared.Commitments, departDay)

	ctx := rules.Context{State: s}
	ctx.Staging.JustRetracted = &destCity

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	assert.Empty(t, next.State.Shared.Commitments, "depart_day must be retracted too: it depends on dest_city")
	require.Len(t, next.State.Private.Issues, 1)
	assert.Equal(t, "depart_day", next.State.Private.Issues[0].Predicate)
}

func TestIssueAccommodationMovesFindoutHeadToIssues(t *testing.T) {
	rule := issueAccommodation()
	q := dialogueact.NewWh("x", "dest_city")
	step := plan.Findout(q)

	s := istate.Initialize("a")
	s.Private.Plan = []plan.Step{step}

	ctx := rules.Context{State: s}
	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	require.Len(t, next.State.Private.Issues, 1)
	assert.Equal(t, plan.StepAccommodated, next.State.Private.Plan[0].Status)
}

func TestIntegrateAnswerClarificationResolvesParentAndCommitsOnce(t *testing.T) {
	rule := integrateAnswerClarification(tripModel{})
	parent := dialogueact.NewWh("x", "dest_city")
	clarification := dialogueact.NewWh("x", "dest_city").Clarification(parent.ID)

	s := istate.Initialize("a")
	s = s.PushQUD(parent)
	s = s.PushQUD(clarification)

	a := dialogueact.Answer{Content: dialogueact.NewProposition("dest_city", dialogueact.Term{Value: "Paris"})}
	m := dialogueact.NewMove(dialogueact.MoveAnswer, a, "user", 1.0, time.Now())
	ctx := newCtx(s, &m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	assert.Empty(t, next.State.Shared.QUD, "both clarification and parent pop")
	require.Len(t, next.State.Shared.Commitments, 1)
	assert.Equal(t, "dest_city", next.State.Shared.Commitments[0].Predicate)
}

func TestIssueAccommodationAccommodatesWholeFindoutRun(t *testing.T) {
	rule := issueAccommodation()
	seq := plan.Sequence(
		plan.Findout(dialogueact.NewWh("x", "parties")),
		plan.Findout(dialogueact.NewWh("x", "effective_date")),
		plan.Findout(dialogueact.NewWh("x", "governing_law")),
	)

	s := istate.Initialize("a")
	s.Private.Plan = []plan.Step{seq}
	ctx := rules.Context{State: s}

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)

	require.Len(t, next.State.Private.Issues, 3)
	assert.Equal(t, "parties", next.State.Private.Issues[0].Predicate)
	assert.Equal(t, "effective_date", next.State.Private.Issues[1].Predicate)
	assert.Equal(t, "governing_law", next.State.Private.Issues[2].Predicate)
	for _, leaf := range next.State.Private.Plan[0].Subplans {
		assert.Equal(t, plan.StepAccommodated, leaf.Status)
	}

	// A second pass is a no-op: every leaf is already accommodated.
	require.False(t, rule.Precondition(next))
}

func TestIssueAccommodationStopsAtAPerformStep(t *testing.T) {
	rule := issueAccommodation()
	action := plan.NewAction("book", nil, nil, nil)
	seq := plan.Sequence(plan.Findout(dialogueact.NewWh("x", "dest_city")), plan.Perform(action))

	s := istate.Initialize("a")
	s.Private.Plan = []plan.Step{seq}
	ctx := rules.Context{State: s}

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)
	require.Len(t, next.State.Private.Issues, 1, "Perform step must not be pulled into issues")
	assert.Equal(t, "dest_city", next.State.Private.Issues[0].Predicate)
}

func TestAdvanceCompletedFindoutStepsMarksResolvedStepDone(t *testing.T) {
	rule := advanceCompletedFindoutSteps()
	findout := plan.Findout(dialogueact.NewWh("x", "dest_city"))
	findout.Status = plan.StepAccommodated

	s := istate.Initialize("a")
	s.Private.Plan = []plan.Step{findout}
	s.Shared.Commitments = []dialogueact.Proposition{
		dialogueact.NewProposition("dest_city", dialogueact.Term{Sort: "city", Value: "Paris"}),
	}
	ctx := rules.Context{State: s}

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)
	assert.Equal(t, plan.StepCompleted, next.State.Private.Plan[0].Status)
}

func TestAdvanceCompletedFindoutStepsLeavesUnresolvedStepAlone(t *testing.T) {
	rule := advanceCompletedFindoutSteps()
	findout := plan.Findout(dialogueact.NewWh("x", "dest_city"))
	findout.Status = plan.StepAccommodated

	s := istate.Initialize("a")
	s.Private.Plan = []plan.Step{findout}
	ctx := rules.Context{State: s}

	assert.False(t, rule.Precondition(ctx))
}

// TestTravelDomainReaccommodationCascade exercises the same three rules as
// TestQuestionReaccommodationStagesRetractionOnConflict /
// TestRetractIncompatibleCommitmentRemovesStaleCommitment /
// TestDependentQuestionReaccommodationCascades, but against the concrete
// travel Domain Model's own Depends/Incompatible/GetQuestionFromCommitment
// wiring instead of the generic tripModel stub (spec §8 S3: depart_day
// changing value retracts the stale price_quote and reaccommodates it).
func TestTravelDomainReaccommodationCascade(t *testing.T) {
	model := travel.New()

	oldDepart := dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 5"})
	oldQuote := dialogueact.NewProposition("price_quote", dialogueact.Term{Value: "Q1"})

	s := istate.Initialize("s3")
	s.Shared.Commitments = append(s.Shared.Commitments, oldDepart, oldQuote)
	s = s.PushQUD(dialogueact.NewWh("x", "depart_day"))

	ans := dialogueact.Answer{Content: dialogueact.NewProposition("depart_day", dialogueact.Term{Value: "April 4"})}
	m := dialogueact.NewMove(dialogueact.MoveAnswer, ans, "user", 1.0, time.Now())
	ctx := newCtx(s, &m)

	reaccom := questionReaccommodation(model)
	require.True(t, reaccom.Precondition(ctx))
	next, err := reaccom.Effect(ctx)
	require.NoError(t, err)
	require.NotNil(t, next.Staging.StagedRetraction)
	assert.True(t, next.Staging.StagedRetraction.Equal(oldDepart))
	require.Len(t, next.State.Private.Issues, 1)
	assert.Equal(t, "depart_day", next.State.Private.Issues[0].Predicate)

	retract := retractIncompatibleCommitment()
	require.True(t, retract.Precondition(next))
	next, err = retract.Effect(next)
	require.NoError(t, err)
	for _, c := range next.State.Shared.Commitments {
		assert.False(t, c.Equal(oldDepart))
	}
	require.NotNil(t, next.Staging.JustRetracted)

	cascade := dependentQuestionReaccommodation(model)
	require.True(t, cascade.Precondition(next))
	next, err = cascade.Effect(next)
	require.NoError(t, err)
	for _, c := range next.State.Shared.Commitments {
		assert.False(t, c.Equal(oldQuote))
	}
	require.Len(t, next.State.Private.Issues, 2, "depart_day issue plus cascaded price_quote issue")
	assert.Equal(t, "price_quote", next.State.Private.Issues[1].Predicate)
}

func TestFormTaskPlanBuildsPlanFromRequest(t *testing.T) {
	model := tripModel{}
	rule := formTaskPlan(model)
	m := dialogueact.NewMove(dialogueact.MoveRequest, "book_trip", "user", 1.0, time.Now())
	ctx := newCtx(istate.Initialize("a"), &m)

	require.True(t, rule.Precondition(ctx))
	next, err := rule.Effect(ctx)
	require.NoError(t, err)
	require.Len(t, next.State.Private.Plan, 1)
	assert.Equal(t, plan.StepFindout, next.State.Private.Plan[0].Kind)
}
