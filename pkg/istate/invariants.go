package istate

import (
	"fmt"

	"github.com/ibdm-project/ibdm/pkg/domain"
)

// Validate checks two structural invariants of spec §3 against a single
// snapshot: the identity-disjointness half of invariant 2/8.4 (no question
// in both private.issues and shared.qud) and invariant 5 (no incompatible
// commitments). The other invariants, including those about transition
// history (1: QUD pushed/popped only at the top; 3: plan head advances only
// after Completed; 6: monotone grounding transitions), are not checked
// here.
//
// Validate is the mechanism pkg/engine uses to detect an InvariantError
// (spec §7 kind 1) and roll a turn back.
func Validate(s InformationState, model domain.Model) error {
	if err := validateQuestionDisjointness(s); err != nil {
		return err
	}
	if err := validateNoIncompatibleCommitments(s, model); err != nil {
		return err
	}
	return nil
}

// validateQuestionDisjointness enforces invariant 2/8.4: a question
// identity never simultaneously resides in both private.issues and
// shared.qud.
func validateQuestionDisjointness(s InformationState) error {
	inIssues := make(map[string]bool, len(s.Private.Issues))
	for _, q := range s.Private.Issues {
		inIssues[q.ID.String()] = true
	}
	for _, q := range s.Shared.QUD {
		if inIssues[q.ID.String()] {
			return fmt.Errorf("istate: question %s present in both private.issues and shared.qud", q.ID)
		}
	}
	return nil
}

// validateNoIncompatibleCommitments enforces invariant 5: no two
// commitments may be pairwise incompatible per the Domain Model.
func validateNoIncompatibleCommitments(s InformationState, model domain.Model) error {
	cs := s.Shared.Commitments
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			if model.Incompatible(cs[i], cs[j]) {
				return fmt.Errorf("istate: commitments %s and %s are incompatible", cs[i], cs[j])
			}
		}
	}
	return nil
}
