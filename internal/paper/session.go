package paper

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"strategy-lab/internal/domain"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Session is one paper trading account with its own trader state.
// All access goes through the session mutex; the underlying Trader is a
// sequential state machine.
type Session struct {
	ID string

	mu     sync.Mutex
	trader *Trader
}

// Do runs fn while holding the session lock.
func (s *Session) Do(fn func(t *Trader)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.trader)
}

// SessionManager owns the set of open paper trading sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	onCountChange func(n int)
}

// NewSessionManager creates an empty session manager. onCountChange, if
// non-nil, is called with the open session count after every open/close.
func NewSessionManager(onCountChange func(n int)) *SessionManager {
	return &SessionManager{
		sessions:      make(map[string]*Session),
		onCountChange: onCountChange,
	}
}

// Open creates a new session and returns it.
func (m *SessionManager) Open(opts Options) *Session {
	session := &Session{
		ID:     uuid.NewString(),
		trader: New(opts),
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	n := len(m.sessions)
	m.mu.Unlock()

	if m.onCountChange != nil {
		m.onCountChange(n)
	}
	return session
}

// Get returns a session by ID.
func (m *SessionManager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close removes a session and returns its final summary.
func (m *SessionManager) Close(sessionID string) (Summary, error) {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return Summary{}, ErrSessionNotFound
	}
	if m.onCountChange != nil {
		m.onCountChange(n)
	}

	var summary Summary
	session.Do(func(t *Trader) {
		summary = t.Summary()
	})
	return summary, nil
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Broadcast delivers a tick to every open session.
func (m *SessionManager) Broadcast(tick domain.Tick) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	prices := map[string]float64{tick.Symbol: tick.Price}
	for _, s := range sessions {
		s.Do(func(t *Trader) {
			t.OnTick(prices)
		})
	}
}
