package dialogueact

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Wire formats below make Move/Answer self-describing on the wire (spec §6:
// "IS is serializable to a self-describing structured record... unknown
// fields are ignored on read"). Content is `any` in memory but tagged with
// an explicit kind discriminator in JSON so Unmarshal can reconstruct the
// correct concrete type instead of collapsing it to map[string]any.

type contentKind string

const (
	contentNone        contentKind = "none"
	contentQuestion    contentKind = "question"
	contentProposition contentKind = "proposition"
	contentAnswer      contentKind = "answer"
)

type answerWire struct {
	ContentKind contentKind  `json:"content_kind"`
	Proposition *Proposition `json:"proposition,omitempty"`
	Value       *Term        `json:"value,omitempty"`
	Certainty   float64      `json:"certainty"`
	QuestionRef *Question    `json:"question_ref,omitempty"`
}

// MarshalJSON renders Answer with a tagged Content field.
func (a Answer) MarshalJSON() ([]byte, error) {
	w := answerWire{Certainty: a.Certainty, QuestionRef: a.QuestionRef}
	switch c := a.Content.(type) {
	case Proposition:
		w.ContentKind = contentProposition
		w.Proposition = &c
	case Term:
		w.ContentKind = "value"
		w.Value = &c
	case nil:
		w.ContentKind = contentNone
	default:
		return nil, fmt.Errorf("dialogueact: answer content of unsupported type %T", c)
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores Answer.Content to its tagged concrete type.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var w answerWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.Certainty = w.Certainty
	a.QuestionRef = w.QuestionRef
	switch w.ContentKind {
	case contentProposition:
		if w.Proposition != nil {
			a.Content = *w.Proposition
		}
	case "value":
		if w.Value != nil {
			a.Content = *w.Value
		}
	case contentNone, "":
		a.Content = nil
	default:
		return fmt.Errorf("dialogueact: unknown answer content_kind %q", w.ContentKind)
	}
	return nil
}

type moveWire struct {
	ID              uuid.UUID       `json:"id"`
	Kind            MoveKind        `json:"kind"`
	ContentKind     contentKind     `json:"content_kind"`
	Question        *Question       `json:"question,omitempty"`
	Proposition     *Proposition    `json:"proposition,omitempty"`
	Answer          *Answer         `json:"answer,omitempty"`
	Speaker         string          `json:"speaker"`
	Timestamp       time.Time       `json:"timestamp"`
	Confidence      float64         `json:"confidence"`
	GroundingStatus GroundingStatus `json:"grounding_status"`
	ReraiseAttempts int             `json:"reraise_attempts"`
}

// MarshalJSON renders Move with a tagged Content field.
func (m Move) MarshalJSON() ([]byte, error) {
	w := moveWire{
		ID:              m.ID,
		Kind:            m.Kind,
		Speaker:         m.Speaker,
		Timestamp:       m.Timestamp,
		Confidence:      m.Confidence,
		GroundingStatus: m.GroundingStatus,
		ReraiseAttempts: m.ReraiseAttempts,
	}
	switch c := m.Content.(type) {
	case Question:
		w.ContentKind = contentQuestion
		w.Question = &c
	case Proposition:
		w.ContentKind = contentProposition
		w.Proposition = &c
	case Answer:
		w.ContentKind = contentAnswer
		w.Answer = &c
	case nil:
		w.ContentKind = contentNone
	default:
		return nil, fmt.Errorf("dialogueact: move content of unsupported type %T", c)
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores Move.Content to its tagged concrete type.
func (m *Move) UnmarshalJSON(data []byte) error {
	var w moveWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.ID = w.ID
	m.Kind = w.Kind
	m.Speaker = w.Speaker
	m.Timestamp = w.Timestamp
	m.Confidence = w.Confidence
	m.GroundingStatus = w.GroundingStatus
	m.ReraiseAttempts = w.ReraiseAttempts
	switch w.ContentKind {
	case contentQuestion:
		if w.Question != nil {
			m.Content = *w.Question
		}
	case contentProposition:
		if w.Proposition != nil {
			m.Content = *w.Proposition
		}
	case contentAnswer:
		if w.Answer != nil {
			m.Content = *w.Answer
		}
	case contentNone, "":
		m.Content = nil
	default:
		return fmt.Errorf("dialogueact: unknown move content_kind %q", w.ContentKind)
	}
	return nil
}
