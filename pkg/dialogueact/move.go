package dialogueact

import (
	"time"

	"github.com/google/uuid"
)

// MoveKind enumerates the dialogue moves of spec §3, including the ICM
// taxonomy of spec §4.5.
type MoveKind string

const (
	MoveAsk      MoveKind = "ask"
	MoveAnswer   MoveKind = "answer"
	MoveAssert   MoveKind = "assert"
	MoveRequest  MoveKind = "request"
	MoveGreet    MoveKind = "greet"
	MoveQuit     MoveKind = "quit"
	MoveReraise  MoveKind = "reraise"
	MoveICMPerPos MoveKind = "icm:per*pos"
	MoveICMPerNeg MoveKind = "icm:per*neg"
	MoveICMUndPos MoveKind = "icm:und*pos"
	MoveICMUndNeg MoveKind = "icm:und*neg"
	MoveICMUndInt MoveKind = "icm:und*int"
	MoveICMAcc    MoveKind = "icm:acc"

	// MoveUninterpretable is the distinguished NLU failure move (spec §6);
	// the engine maps it to MoveICMPerNeg during integration.
	MoveUninterpretable MoveKind = "uninterpretable"
)

// IsValid reports whether k is a recognized move kind.
func (k MoveKind) IsValid() bool {
	switch k {
	case MoveAsk, MoveAnswer, MoveAssert, MoveRequest, MoveGreet, MoveQuit,
		MoveReraise, MoveICMPerPos, MoveICMPerNeg, MoveICMUndPos, MoveICMUndNeg,
		MoveICMUndInt, MoveICMAcc, MoveUninterpretable:
		return true
	default:
		return false
	}
}

// IsICM reports whether k is one of the ICM grounding-management moves.
func (k MoveKind) IsICM() bool {
	switch k {
	case MoveICMPerPos, MoveICMPerNeg, MoveICMUndPos, MoveICMUndNeg, MoveICMUndInt, MoveICMAcc:
		return true
	default:
		return false
	}
}

// GroundingStatus tracks how far a move has progressed toward mutual
// acceptance (spec invariant 6 / §4.5). Transitions are monotone toward
// Grounded unless the move is reraised.
type GroundingStatus string

const (
	StatusUngrounded GroundingStatus = "ungrounded"
	StatusPending    GroundingStatus = "pending"
	StatusGrounded   GroundingStatus = "grounded"
)

// rank orders statuses for monotonicity checks.
var rank = map[GroundingStatus]int{
	StatusUngrounded: 0,
	StatusPending:    1,
	StatusGrounded:    2,
}

// Advances reports whether moving from s to next is a monotone forward
// transition (or staying put); it does not itself forbid reraise resets —
// callers that reraise construct a fresh move instead of demoting in place.
func (s GroundingStatus) Advances(next GroundingStatus) bool {
	return rank[next] >= rank[s]
}

// Move is a single dialogue act exchanged between participants (spec §3).
// Content holds a Question, Proposition, Answer, or nil (greet/quit carry
// no content) depending on Kind.
type Move struct {
	ID              uuid.UUID
	Kind            MoveKind
	Content         any
	Speaker         string
	Timestamp       time.Time
	Confidence      float64
	GroundingStatus GroundingStatus

	// ReraiseAttempts counts grounding retries for this specific move
	// (spec §9: reraise bookkeeping is fixed to be per-move, not per-question).
	ReraiseAttempts int
}

// NewMove constructs a Move with a fresh identity and Ungrounded status.
// Grounding strategy assignment (spec §4.5) happens during integration, not
// here — construction only fixes identity and content.
func NewMove(kind MoveKind, content any, speaker string, confidence float64, at time.Time) Move {
	return Move{
		ID:              uuid.New(),
		Kind:            kind,
		Content:         content,
		Speaker:         speaker,
		Timestamp:       at,
		Confidence:      confidence,
		GroundingStatus: StatusUngrounded,
	}
}

// AsQuestion returns Content as a Question if Kind carries one.
func (m Move) AsQuestion() (Question, bool) {
	q, ok := m.Content.(Question)
	return q, ok
}

// AsAnswer returns Content as an Answer if Kind carries one.
func (m Move) AsAnswer() (Answer, bool) {
	a, ok := m.Content.(Answer)
	return a, ok
}

// AsProposition returns Content as a Proposition if Kind carries one.
func (m Move) AsProposition() (Proposition, bool) {
	p, ok := m.Content.(Proposition)
	return p, ok
}
