package plan

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/dialogueact"
)

// stepContentKind tags Step.Content for lossless JSON round-trips, mirroring
// dialogueact.Move's wire format.
type stepContentKind string

const (
	stepContentNone     stepContentKind = "none"
	stepContentQuestion stepContentKind = "question"
	stepContentAction   stepContentKind = "action"
	stepContentConsult  stepContentKind = "consult"
)

type stepWire struct {
	ID          uuid.UUID              `json:"id"`
	Kind        StepKind               `json:"kind"`
	ContentKind stepContentKind        `json:"content_kind"`
	Question    *dialogueact.Question  `json:"question,omitempty"`
	Action      *Action                `json:"action,omitempty"`
	Consult     string                 `json:"consult,omitempty"`
	Status      StepStatus             `json:"status"`
	Subplans    []Step                 `json:"subplans,omitempty"`
}

// MarshalJSON renders Step with a tagged Content field.
func (s Step) MarshalJSON() ([]byte, error) {
	w := stepWire{ID: s.ID, Kind: s.Kind, Status: s.Status, Subplans: s.Subplans}
	switch c := s.Content.(type) {
	case dialogueact.Question:
		w.ContentKind = stepContentQuestion
		w.Question = &c
	case Action:
		w.ContentKind = stepContentAction
		w.Action = &c
	case string:
		w.ContentKind = stepContentConsult
		w.Consult = c
	case nil:
		w.ContentKind = stepContentNone
	default:
		return nil, fmt.Errorf("plan: step content of unsupported type %T", c)
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores Step.Content to its tagged concrete type.
func (s *Step) UnmarshalJSON(data []byte) error {
	var w stepWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ID = w.ID
	s.Kind = w.Kind
	s.Status = w.Status
	s.Subplans = w.Subplans
	switch w.ContentKind {
	case stepContentQuestion:
		if w.Question != nil {
			s.Content = *w.Question
		}
	case stepContentAction:
		if w.Action != nil {
			s.Content = *w.Action
		}
	case stepContentConsult:
		s.Content = w.Consult
	case stepContentNone, "":
		s.Content = nil
	default:
		return fmt.Errorf("plan: unknown step content_kind %q", w.ContentKind)
	}
	return nil
}
