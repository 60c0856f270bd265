package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate checks the struct tags declared on EngineConfig and the
// cross-field and enum constraints the tags can't express: the grounding
// strategy and dependency cycle policy must be one of their recognized
// values, and the pending threshold must not exceed the grounded one.
func Validate(cfg EngineConfig) error {
	if err := structValidator.Struct(cfg); err != nil {
		return &ValidationError{Field: "EngineConfig", Reason: err.Error()}
	}
	if !cfg.GroundingStrategy.IsValid() {
		return &ValidationError{
			Field:  "grounding_strategy",
			Reason: fmt.Sprintf("unrecognized value %q", cfg.GroundingStrategy),
		}
	}
	if !cfg.DependencyCyclePolicy.IsValid() {
		return &ValidationError{
			Field:  "dependency_cycle_policy",
			Reason: fmt.Sprintf("unrecognized value %q", cfg.DependencyCyclePolicy),
		}
	}
	if cfg.ConfidenceThresholds.Pending > cfg.ConfidenceThresholds.Grounded {
		return &ValidationError{
			Field:  "confidence_thresholds",
			Reason: "pending threshold must not exceed grounded threshold",
		}
	}
	for pred, min := range cfg.CriticalEntityPredicates {
		if min < 0 || min > 1 {
			return &ValidationError{
				Field:  "critical_entity_predicates." + pred,
				Reason: "confidence floor must be in [0,1]",
			}
		}
	}
	return nil
}
