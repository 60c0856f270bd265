package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML config file at path, expands environment references,
// merges it over Default(), validates the result, and returns it. A missing
// file is not an error: Default() alone is returned, the same
// falls-back-to-defaults behavior the teacher's loader uses for optional
// config files.
func Load(path string) (EngineConfig, error) {
	defaults := Default()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaults, nil
		}
		return EngineConfig{}, &LoadError{Path: path, Err: err}
	}

	raw = expandEnv(raw)

	var override EngineConfig
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return EngineConfig{}, &LoadError{Path: path, Err: err}
	}

	merged, err := merge(defaults, override)
	if err != nil {
		return EngineConfig{}, &LoadError{Path: path, Err: err}
	}

	if err := Validate(merged); err != nil {
		return EngineConfig{}, err
	}

	return merged, nil
}
