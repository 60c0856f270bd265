package config

import "os"

// expandEnv interpolates ${VAR} and $VAR references in raw YAML bytes
// before parsing, the same pass-over-the-raw-bytes approach the teacher
// uses so operators can keep per-environment overrides (a store DSN, a
// domain config directory) out of the checked-in config file. Unset
// variables expand to the empty string rather than erroring, mirroring
// os.Expand's own behavior.
func expandEnv(raw []byte) []byte {
	return []byte(os.Expand(string(raw), os.Getenv))
}
