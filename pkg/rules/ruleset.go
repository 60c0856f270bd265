package rules

import (
	"errors"
	"fmt"
	"sort"
)

// ErrPhaseBudgetExceeded is returned by RunFixpoint when a phase's rule
// application loop does not reach a fixpoint within the configured
// MaxPhaseIterations budget. Wrapped by pkg/engine into the spec §7 kind 2
// RuleNonterminationSuspected error.
var ErrPhaseBudgetExceeded = errors.New("rules: phase fixpoint exceeded iteration budget")

// Set is an ordered collection of rules, partitioned by phase and sorted
// within each phase by descending priority. Ties on priority resolve by
// declaration order (spec §4.1), which a stable sort preserves.
type Set struct {
	byPhase map[Phase][]Rule
}

// NewSet builds a Set from an unordered slice of rules, grouping and
// sorting them by phase.
func NewSet(all []Rule) *Set {
	s := &Set{byPhase: make(map[Phase][]Rule)}
	for _, r := range all {
		s.byPhase[r.Phase] = append(s.byPhase[r.Phase], r)
	}
	for phase, rs := range s.byPhase {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Priority > rs[j].Priority })
		s.byPhase[phase] = rs
	}
	return s
}

// Rules returns the rules registered for phase, in dispatch order.
func (s *Set) Rules(phase Phase) []Rule {
	return s.byPhase[phase]
}

// RunOnce scans phase's rules in priority order and runs the Effect of the
// first one whose Precondition holds. It reports which rule fired, or ok
// being false if none were applicable (the phase is at a fixpoint).
func (s *Set) RunOnce(phase Phase, ctx Context) (next Context, fired Rule, ok bool, err error) {
	for _, r := range s.byPhase[phase] {
		if !r.Precondition(ctx) {
			continue
		}
		next, err = r.Effect(ctx)
		if err != nil {
			return ctx, r, true, fmt.Errorf("rules: %s/%s: %w", phase, r.Name, err)
		}
		return next, r, true, nil
	}
	return ctx, Rule{}, false, nil
}

// FixpointResult records how a phase's iteration converged, for logging
// (enginelog.PhaseFixpoint) and for tests that assert a specific rule fired.
type FixpointResult struct {
	Iterations int
	Fired      []string
}

// RunFixpoint repeatedly applies RunOnce for phase until no rule fires or
// the budget is exhausted, returning the converged Context and the rules
// that fired along the way.
func (s *Set) RunFixpoint(phase Phase, ctx Context, budget int) (Context, FixpointResult, error) {
	result := FixpointResult{}
	for result.Iterations < budget {
		next, fired, ok, err := s.RunOnce(phase, ctx)
		if err != nil {
			return ctx, result, err
		}
		if !ok {
			return ctx, result, nil
		}
		ctx = next
		result.Iterations++
		result.Fired = append(result.Fired, fired.Name)
	}
	return ctx, result, fmt.Errorf("%w: phase=%s after %d iterations", ErrPhaseBudgetExceeded, phase, budget)
}
