// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/roomboard/network"
)

// Session is one connected dashboard viewer.
type Session struct {
	ID         string
	Conn       network.Connection
	CreatedAt  time.Time
	center     string // 只关注的场馆，空表示全部
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// SetCenter restricts pushes to one center; "" restores every center.
func (s *Session) SetCenter(centerID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.center = centerID
}

func (s *Session) Center() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.center
}

// Touch records activity from the viewer.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.lastActive = time.Now()
	s.mutex.Unlock()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msgID uint16, data []byte) error {
	return s.Conn.Send(msgID, data)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

// Remove deletes the session and reports whether it was present.
func (m *Manager) Remove(sessionID string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, exists := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return exists
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}

// All returns a copy of the current sessions.
func (m *Manager) All() []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Watching returns the sessions that receive updates for centerID: those filtered
// on it and those without a filter.
func (m *Manager) Watching(centerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if c := session.Center(); c == "" || c == centerID {
			result = append(result, session)
		}
	}
	return result
}

// IdleSince returns sessions with no activity after t.
func (m *Manager) IdleSince(t time.Time) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.LastActive().Before(t) {
			result = append(result, session)
		}
	}
	return result
}
