package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ibdm-project/ibdm/pkg/istate"
)

// Manager owns the set of live sessions for one Engine. It is safe for
// concurrent use.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create starts a new session with a freshly initialized Information State
// and returns it. The agent ID is a new UUID unless id is non-empty, in
// which case it is used verbatim (a host may want a stable, externally
// assigned session ID).
func (m *Manager) Create(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}
	s := newSession(id, istate.Initialize(id))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return s
}

// Get retrieves a session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: not found: %s", id)
	}
	return s, nil
}

// GetOrCreate retrieves the session with the given ID, creating it if it
// does not yet exist.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := newSession(id, istate.Initialize(id))
	m.sessions[id] = s
	return s
}

// List returns a snapshot of every live session's metadata.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Snapshot())
	}
	return out
}

// Delete removes a session. It does not cancel an in-flight turn; callers
// should call Session.Cancel first if one may be running.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session: not found: %s", id)
	}
	delete(m.sessions, id)
	return nil
}
