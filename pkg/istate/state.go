// Package istate implements the Information State data model of spec §3:
// a typed record of private, shared, and control substates that is
// deep-cloneable and serializable, mutated only by copy-on-write rule
// effects (spec §4.1, §5).
package istate

import (
	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/plan"
)

// Initiative tracks who currently drives the dialogue.
type Initiative string

const (
	InitiativeUser   Initiative = "user"
	InitiativeSystem Initiative = "system"
	InitiativeMixed  Initiative = "mixed"
)

// IsValid reports whether i is a recognized initiative value.
func (i Initiative) IsValid() bool {
	switch i {
	case InitiativeUser, InitiativeSystem, InitiativeMixed:
		return true
	default:
		return false
	}
}

// DialogueState tracks whether the session is still accepting turns.
type DialogueState string

const (
	StateActive DialogueState = "active"
	StateEnded  DialogueState = "ended"
)

// PrivateIS is the agent-local substate of spec §3.
type PrivateIS struct {
	Plan          []plan.Step
	Agenda        []dialogueact.Move
	Beliefs       map[string]dialogueact.Term
	Issues        []dialogueact.Question
	Actions       []plan.Action
	IUN           []dialogueact.Proposition
	LastUtterance *dialogueact.Move
}

// SharedIS is the mutually-believed substate of spec §3.
type SharedIS struct {
	QUD         []dialogueact.Question // stack; QUD[len-1] is top
	Commitments []dialogueact.Proposition
	Moves       []dialogueact.Move // append-only history, total order by Timestamp
	NextMoves   []dialogueact.Move
	LastMoves   []dialogueact.Move // bounded window of the partner's recent moves
}

// ControlIS is the turn-taking substate of spec §3.
type ControlIS struct {
	Speaker       string
	NextSpeaker   string
	Initiative    Initiative
	DialogueState DialogueState
}

// LastMovesWindow is the window size for SharedIS.LastMoves. No code in
// this module appends to LastMoves or trims it to this size.
const LastMovesWindow = 10

// InformationState is the complete record of dialogue context for one
// agent (spec §3 "Lifecycle": created by Initialize, mutated only by
// applying a single rule-effect per cycle).
type InformationState struct {
	AgentID string
	Private PrivateIS
	Shared  SharedIS
	Control ControlIS
}

// Initialize creates a fresh Information State with empty substates, per
// spec §3 "Lifecycle": "An IS is created by an initialize operation with a
// fresh agent_id and empty substates."
func Initialize(agentID string) InformationState {
	if agentID == "" {
		agentID = uuid.NewString()
	}
	return InformationState{
		AgentID: agentID,
		Private: PrivateIS{
			Beliefs: make(map[string]dialogueact.Term),
		},
		Shared: SharedIS{},
		Control: ControlIS{
			Initiative:    InitiativeUser,
			DialogueState: StateActive,
		},
	}
}

// TopQUD returns the top of the QUD stack (invariant 1: pushed/popped only
// at the top) and true if non-empty.
func (s InformationState) TopQUD() (dialogueact.Question, bool) {
	n := len(s.Shared.QUD)
	if n == 0 {
		return dialogueact.Question{}, false
	}
	return s.Shared.QUD[n-1], true
}

// PushQUD returns a copy of s with q pushed onto the top of the QUD stack.
func (s InformationState) PushQUD(q dialogueact.Question) InformationState {
	next := s.Clone()
	next.Shared.QUD = append(append([]dialogueact.Question{}, s.Shared.QUD...), q)
	return next
}

// PopQUD returns a copy of s with the top of the QUD stack removed, the
// popped question, and true if the stack was non-empty.
func (s InformationState) PopQUD() (InformationState, dialogueact.Question, bool) {
	n := len(s.Shared.QUD)
	if n == 0 {
		return s, dialogueact.Question{}, false
	}
	top := s.Shared.QUD[n-1]
	next := s.Clone()
	next.Shared.QUD = append([]dialogueact.Question{}, s.Shared.QUD[:n-1]...)
	return next, top, true
}

// HasCommitment reports whether a proposition equal to p is already in
// shared.commitments.
func (s InformationState) HasCommitment(p dialogueact.Proposition) bool {
	for _, c := range s.Shared.Commitments {
		if c.Equal(p) {
			return true
		}
	}
	return false
}

// InIssuesOrQUD reports whether a question with the given identity is
// present in private.issues or shared.qud (used to enforce invariant 2/8.4:
// a question resides in at most one of issues/qud/commitments-as-resolved).
func (s InformationState) InIssuesOrQUD(id uuid.UUID) bool {
	for _, q := range s.Private.Issues {
		if q.ID == id {
			return true
		}
	}
	for _, q := range s.Shared.QUD {
		if q.ID == id {
			return true
		}
	}
	return false
}
