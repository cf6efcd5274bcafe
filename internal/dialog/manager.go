package dialog

import "sync"

// Manager keys ephemeral dialog sessions by chat id. Only one session per
// user exists at a time; starting a new flow replaces (and so discards)
// any staged state of the previous one.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewManager creates an empty session store.
func NewManager() *Manager {
	return &Manager{sessions: make(map[int64]*Session)}
}

// Get returns the user's session, or nil if no flow is active.
func (m *Manager) Get(chatID int64) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[chatID]
}

// Start replaces the user's session with a fresh one at the given step.
func (m *Manager) Start(chatID int64, step Step) *Session {
	s := &Session{Step: step}
	m.mu.Lock()
	m.sessions[chatID] = s
	m.mu.Unlock()
	return s
}

// Clear discards the user's session without persisting anything.
func (m *Manager) Clear(chatID int64) {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
}
