package config

import (
	"time"

	"github.com/ibdm-project/ibdm/pkg/domain"
)

// Default returns the engine's out-of-the-box configuration (spec §6): a
// cautious grounding strategy, the confidence thresholds from the spec's
// ICM strategy table, three reraise attempts, a plan depth generous enough
// for any seed scenario, and an error (rather than silently-drop) cycle
// policy so a malformed Domain Model fails loudly at startup.
func Default() EngineConfig {
	return EngineConfig{
		GroundingStrategy: StrategyCautious,
		ConfidenceThresholds: ConfidenceThresholds{
			Grounded: 0.9,
			Pending:  0.6,
		},
		MaxReraiseAttempts:       3,
		MaxPlanDepth:             16,
		CriticalEntityPredicates: map[string]float32{},
		DependencyCyclePolicy:    domain.CyclePolicyError,
		MaxPhaseIterations:       64,
		AdapterTimeout:           2 * time.Second,
	}
}
