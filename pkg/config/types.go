// Package config loads and validates the engine's recognized configuration
// options (spec §6): grounding strategy and thresholds, reraise/plan-depth
// limits, critical-entity predicates, and the dependency-cycle policy.
package config

import (
	"time"

	"github.com/ibdm-project/ibdm/pkg/domain"
)

// GroundingStrategy selects how inbound move confidence maps to initial
// grounding status and ICM scheduling (spec §4.5).
type GroundingStrategy string

const (
	StrategyOptimistic  GroundingStrategy = "optimistic"
	StrategyCautious    GroundingStrategy = "cautious"
	StrategyPessimistic GroundingStrategy = "pessimistic"
)

// IsValid reports whether s is a recognized grounding strategy.
func (s GroundingStrategy) IsValid() bool {
	switch s {
	case StrategyOptimistic, StrategyCautious, StrategyPessimistic:
		return true
	default:
		return false
	}
}

// ConfidenceThresholds holds the grounded/pending confidence cutoffs used
// by the Cautious and Pessimistic strategies (spec §4.5 table). Optimistic
// ignores these.
type ConfidenceThresholds struct {
	Grounded float32 `yaml:"grounded" validate:"gte=0,lte=1"`
	Pending  float32 `yaml:"pending" validate:"gte=0,lte=1"`
}

// EngineConfig is the complete set of recognized engine options (spec §6).
type EngineConfig struct {
	GroundingStrategy        GroundingStrategy     `yaml:"grounding_strategy" validate:"required"`
	ConfidenceThresholds     ConfidenceThresholds  `yaml:"confidence_thresholds"`
	MaxReraiseAttempts       uint8                 `yaml:"max_reraise_attempts" validate:"gte=1"`
	MaxPlanDepth             uint16                `yaml:"max_plan_depth" validate:"gte=1"`
	CriticalEntityPredicates map[string]float32    `yaml:"critical_entity_predicates"`
	DependencyCyclePolicy    domain.CyclePolicy    `yaml:"dependency_cycle_policy" validate:"required"`

	// MaxPhaseIterations bounds a single phase's fixpoint loop (spec §7
	// kind 2, RuleNonterminationSuspected: "phase fixpoint exceeds a
	// configured step budget"). Not a named spec §6 option, but the
	// concrete mechanism that option category requires; defaults to 64.
	MaxPhaseIterations int `yaml:"max_phase_iterations" validate:"gte=1"`

	// AdapterTimeout is loaded and defaulted (2s) with the rest of the
	// config. The engine does not apply it: NLU/NLG/Device calls run under
	// the caller's context only, with no per-call deadline.
	AdapterTimeout time.Duration `yaml:"adapter_timeout"`
}
