package istate

import (
	"github.com/ibdm-project/ibdm/pkg/dialogueact"
	"github.com/ibdm-project/ibdm/pkg/plan"
)

// Clone returns a deep, independent copy of s. Every rule effect in
// pkg/rules conceptually produces a new IS (spec §4.1, §5 "Shared-resource
// policy"); Clone is the mechanism implementations use to honor that
// copy-semantics contract without aliasing slices or maps between the
// original and the copy.
func (s InformationState) Clone() InformationState {
	return InformationState{
		AgentID: s.AgentID,
		Private: s.Private.clone(),
		Shared:  s.Shared.clone(),
		Control: s.Control,
	}
}

func (p PrivateIS) clone() PrivateIS {
	beliefs := make(map[string]dialogueact.Term, len(p.Beliefs))
	for k, v := range p.Beliefs {
		beliefs[k] = v
	}
	var lastUtterance *dialogueact.Move
	if p.LastUtterance != nil {
		m := *p.LastUtterance
		lastUtterance = &m
	}
	return PrivateIS{
		Plan:          cloneSteps(p.Plan),
		Agenda:        append([]dialogueact.Move{}, p.Agenda...),
		Beliefs:       beliefs,
		Issues:        append([]dialogueact.Question{}, p.Issues...),
		Actions:       append([]plan.Action{}, p.Actions...),
		IUN:           append([]dialogueact.Proposition{}, p.IUN...),
		LastUtterance: lastUtterance,
	}
}

func (sh SharedIS) clone() SharedIS {
	return SharedIS{
		QUD:         append([]dialogueact.Question{}, sh.QUD...),
		Commitments: append([]dialogueact.Proposition{}, sh.Commitments...),
		Moves:       append([]dialogueact.Move{}, sh.Moves...),
		NextMoves:   append([]dialogueact.Move{}, sh.NextMoves...),
		LastMoves:   append([]dialogueact.Move{}, sh.LastMoves...),
	}
}

func cloneSteps(steps []plan.Step) []plan.Step {
	if steps == nil {
		return nil
	}
	out := make([]plan.Step, len(steps))
	for i, s := range steps {
		s.Subplans = cloneSteps(s.Subplans)
		out[i] = s
	}
	return out
}
