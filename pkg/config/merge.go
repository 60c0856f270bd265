package config

import "dario.cat/mergo"

// merge overlays override onto base, leaving base's values in place for
// any zero-valued field in override. Used to layer a partial operator
// config file on top of Default() without operators having to restate
// every option.
func merge(base, override EngineConfig) (EngineConfig, error) {
	out := base
	if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
		return EngineConfig{}, err
	}
	return out, nil
}
