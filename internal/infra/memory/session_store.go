package memory

import (
	"sync"

	"codemaster-service/internal/app"
)

// SessionStore keeps lesson sessions in process. Participants join and leave
// under the registry lock, so a session is never dropped while a viewer is
// joining it.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*app.Session
	hooks    SessionHooks
}

// SessionHooks are called with the registry lock held when a session is
// added to or removed from the store.
type SessionHooks struct {
	Opened func(key string)
	Closed func(key string)
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithHooks(SessionHooks{})
}

func NewSessionStoreWithHooks(hooks SessionHooks) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		hooks:    hooks,
	}
}

func (s *SessionStore) Join(key string, create func() (*app.Session, error)) (*app.Session, app.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok {
		var err error
		if session, err = create(); err != nil {
			return nil, app.Snapshot{}, err
		}
		s.sessions[key] = session
		if s.hooks.Opened != nil {
			s.hooks.Opened(key)
		}
	}
	return session, session.Join(), nil
}

func (s *SessionStore) Get(key string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *SessionStore) Leave(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[key]
	if !ok || !session.Leave() {
		return false
	}
	delete(s.sessions, key)
	if s.hooks.Closed != nil {
		s.hooks.Closed(key)
	}
	return true
}

// Len reports how many sessions are open.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
