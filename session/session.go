// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/pongserver/network"
)

type Session struct {
	ID         string
	Conn       network.Connection
	UserID     int64
	RoomID     string
	CreatedAt  time.Time
	LastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		Conn:       conn,
		CreatedAt:  now,
		LastActive: now,
	}
}

func (s *Session) Send(msgID uint16, data []byte) error {
	s.Touch()
	return s.Conn.Send(msgID, data)
}

// Touch refreshes the activity timestamp.
func (s *Session) Touch() {
	s.mutex.Lock()
	s.LastActive = time.Now()
	s.mutex.Unlock()
}

// BindUser associates the session with an application user id so invitations
// can be routed to it.
func (s *Session) BindUser(userID int64) {
	s.mutex.Lock()
	s.UserID = userID
	s.mutex.Unlock()
}

// User returns the bound user id, zero if the session never registered.
func (s *Session) User() int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.UserID
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Manager is the session directory: the one registry shared by every
// connection handler. Lookups are concurrent, insert and delete serialize on
// the write lock.
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Register(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
}

func (m *Manager) Unregister(sessionID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.sessions, sessionID)
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

// ListActive returns every live session bound to the given user id. A user
// with several tabs open holds several sessions.
func (m *Manager) ListActive(userID int64) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var result []*Session
	for _, session := range m.sessions {
		if session.User() == userID {
			result = append(result, session)
		}
	}
	return result
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
