// Package session manages long-lived dialogue sessions on top of a single
// pkg/engine.Engine: a Manager tracks one Session per agent, and a Pool
// bounds how many Turn calls run concurrently across all of them (spec §5
// "each session owns its IS; sessions share only the immutable DomainModel
// and RuleSet. No cross-session locking is required.") Grounded on the
// teacher's pkg/session (in-memory session map) and pkg/queue (bounded
// worker pool), adapted from the teacher's fire-and-forget analysis jobs to
// IBDM's synchronous request/response turns.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/ibdm-project/ibdm/pkg/istate"
)

// Status is the lifecycle state of a Session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusCancelled  Status = "cancelled"
)

// Session holds one dialogue's Information State plus the bookkeeping
// needed to cancel an in-flight turn and report status to a host.
type Session struct {
	ID string

	mu         sync.RWMutex
	state      istate.InformationState
	status     Status
	createdAt  time.Time
	updatedAt  time.Time
	lastError  error
	cancelFunc context.CancelFunc
}

func newSession(id string, initial istate.InformationState) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		state:     initial,
		status:    StatusIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// State returns a deep copy of the session's current Information State, safe
// to read or mutate without affecting the session.
func (s *Session) State() istate.InformationState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Status reports the session's current lifecycle status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LastError returns the error from the session's most recently failed turn,
// if any.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Session) setState(next istate.InformationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	s.updatedAt = time.Now()
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.updatedAt = time.Now()
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = err
	s.updatedAt = time.Now()
}

func (s *Session) setCancelFunc(cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelFunc = cancel
}

// Cancel cancels the session's in-flight turn, if one is running. It
// reports whether a running turn was actually found and cancelled.
func (s *Session) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFunc == nil {
		return false
	}
	s.cancelFunc()
	s.status = StatusCancelled
	s.updatedAt = time.Now()
	return true
}

// Snapshot is a read-only view of a Session for listing/health endpoints.
type Snapshot struct {
	ID        string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
	Error     string
}

// Snapshot captures the session's metadata without its Information State.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	errText := ""
	if s.lastError != nil {
		errText = s.lastError.Error()
	}
	return Snapshot{
		ID:        s.ID,
		Status:    s.status,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Error:     errText,
	}
}
