// Package plan implements the goal-tree algebra of spec §3: PlanStep and
// Action. A plan is a stack — the head is the next pending step — built by
// a Domain Model's plan builder and advanced only as steps complete.
package plan

import (
	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
)

// StepKind discriminates the five plan-step shapes.
type StepKind string

const (
	StepFindout StepKind = "findout"
	StepRaise   StepKind = "raise"
	StepRespond StepKind = "respond"
	StepPerform StepKind = "perform"
	StepConsult StepKind = "consult"
)

// IsValid reports whether k is a recognized step kind.
func (k StepKind) IsValid() bool {
	switch k {
	case StepFindout, StepRaise, StepRespond, StepPerform, StepConsult:
		return true
	default:
		return false
	}
}

// StepStatus tracks a step's progress through the plan.
type StepStatus string

const (
	StepActive       StepStatus = "active"
	StepAccommodated StepStatus = "accommodated" // Findout's question moved to issues, step not yet Completed
	StepCompleted    StepStatus = "completed"
	StepAbandoned    StepStatus = "abandoned"
)

// Step is one node of the goal tree. Content holds a Question (Findout,
// Raise, Respond), an Action (Perform), or a consult target (Consult),
// depending on Kind.
type Step struct {
	ID       uuid.UUID
	Kind     StepKind
	Content  any
	Status   StepStatus
	Subplans []Step
}

// Findout constructs a Findout(Q) step.
func Findout(q dialogueact.Question) Step {
	return Step{ID: uuid.New(), Kind: StepFindout, Content: q, Status: StepActive}
}

// Raise constructs a Raise(Q) step.
func Raise(q dialogueact.Question) Step {
	return Step{ID: uuid.New(), Kind: StepRaise, Content: q, Status: StepActive}
}

// Respond constructs a Respond(Q) step.
func Respond(q dialogueact.Question) Step {
	return Step{ID: uuid.New(), Kind: StepRespond, Content: q, Status: StepActive}
}

// Perform constructs a Perform(A) step.
func Perform(a Action) Step {
	return Step{ID: uuid.New(), Kind: StepPerform, Content: a, Status: StepActive}
}

// Consult constructs a Consult(DB) step; target names the domain's consult
// collaborator (e.g. a knowledge base or external query).
func Consult(target string) Step {
	return Step{ID: uuid.New(), Kind: StepConsult, Content: target, Status: StepActive}
}

// Sequence wraps an ordered list of steps in a container step whose
// Subplans holds them in order, for use as a single plan.Step returned by a
// Domain Model's plan builder (spec §4.7 BuildPlan returns one PlanStep).
// The container's own Kind/Content carry no meaning: Head always recurses
// into Subplans before inspecting a step's own fields.
func Sequence(steps ...Step) Step {
	return Step{ID: uuid.New(), Kind: StepConsult, Content: "sequence", Status: StepActive, Subplans: steps}
}

// Question returns the step's Question content, if Kind carries one.
func (s Step) Question() (dialogueact.Question, bool) {
	q, ok := s.Content.(dialogueact.Question)
	return q, ok
}

// Action returns the step's Action content, if Kind is StepPerform.
func (s Step) Action() (Action, bool) {
	a, ok := s.Content.(Action)
	return a, ok
}

// ActionStatus tracks an Action's lifecycle during IBiS4 execution.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionExecuting ActionStatus = "executing"
	ActionSucceeded ActionStatus = "succeeded"
	ActionFailed    ActionStatus = "failed"
)

// Action is a domain operation with pre/postconditions (spec §3, §4.6).
type Action struct {
	ID             uuid.UUID
	Name           string
	Params         map[string]dialogueact.Term
	Preconditions  []dialogueact.Proposition
	Postconditions []dialogueact.Proposition
	Status         ActionStatus
}

// NewAction constructs a pending Action with a fresh identity.
func NewAction(name string, params map[string]dialogueact.Term, pre, post []dialogueact.Proposition) Action {
	return Action{
		ID:             uuid.New(),
		Name:           name,
		Params:         params,
		Preconditions:  pre,
		Postconditions: post,
		Status:         ActionPending,
	}
}

// Head returns the first pending (non-Completed, non-Abandoned) step in the
// plan, walking into Subplans depth-first, and true if one exists.
func Head(steps []Step) (Step, bool) {
	for _, s := range steps {
		// A step with Subplans is a container: its own Status tracks
		// whether its children are exhausted, not whether it is itself a
		// pending leaf, so Subplans are checked before Status.
		if len(s.Subplans) > 0 {
			if h, ok := Head(s.Subplans); ok {
				return h, true
			}
			continue
		}
		if s.Status == StepCompleted || s.Status == StepAbandoned {
			continue
		}
		return s, true
	}
	return Step{}, false
}

// Remaining counts steps not yet Completed or Abandoned, including nested
// subplans. No rule in this module calls it.
func Remaining(steps []Step) int {
	n := 0
	for _, s := range steps {
		if s.Status != StepCompleted && s.Status != StepAbandoned {
			n++
		}
		n += Remaining(s.Subplans)
	}
	return n
}

// WithStepStatus returns a copy of steps with the step matching id updated
// to status, preserving copy-on-write semantics (spec invariant 3, §5).
func WithStepStatus(steps []Step, id uuid.UUID, status StepStatus) []Step {
	out := make([]Step, len(steps))
	for i, s := range steps {
		if s.ID == id {
			s.Status = status
		} else if len(s.Subplans) > 0 {
			s.Subplans = WithStepStatus(s.Subplans, id, status)
		}
		out[i] = s
	}
	return out
}
