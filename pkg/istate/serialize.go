package istate

import (
	"encoding/json"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
)

// schemaVersion is bumped whenever a field is removed or repurposed (never
// for additions — spec §6: "unknown fields are ignored on read").
const schemaVersion = 1

type wireEnvelope struct {
	Version int       `json:"version"`
	AgentID string    `json:"agent_id"`
	Private PrivateIS `json:"private"`
	Shared  SharedIS  `json:"shared"`
	Control ControlIS `json:"control"`
}

// Serialize renders s as a self-describing structured JSON record (spec §6
// Persistence). Go's encoding/json already ignores unknown fields on
// Unmarshal, satisfying the forward-compatibility requirement as long as
// new fields are only ever added, never repurposed.
func Serialize(s InformationState) ([]byte, error) {
	env := wireEnvelope{
		Version: schemaVersion,
		AgentID: s.AgentID,
		Private: s.Private,
		Shared:  s.Shared,
		Control: s.Control,
	}
	return json.Marshal(env)
}

// Deserialize reconstructs an InformationState from bytes produced by
// Serialize. Round-trip is lossless for any state reachable via the rule
// engine (spec §8: "deserialize(serialize(S)) = S"), provided Term values
// are JSON-primitive-compatible (string/float64/bool/nil) — Domain Models
// that stash richer Go values in Term.Value are responsible for their own
// codec if they need bit-for-bit round-tripping of those values.
func Deserialize(data []byte) (InformationState, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return InformationState{}, err
	}
	if env.Private.Beliefs == nil {
		env.Private.Beliefs = make(map[string]dialogueact.Term)
	}
	s := InformationState{
		AgentID: env.AgentID,
		Private: env.Private,
		Shared:  env.Shared,
		Control: env.Control,
	}
	return s, nil
}
