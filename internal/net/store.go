package net

// SessionStore tracks live sessions by ID.
// Accessed only from the simulation loop goroutine; no locks needed.
type SessionStore struct {
	sessions map[uint64]*Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[uint64]*Session)}
}

func (s *SessionStore) Add(sess *Session) { s.sessions[sess.ID] = sess }

// Remove drops a session and returns it, or nil if unknown.
func (s *SessionStore) Remove(id uint64) *Session {
	sess := s.sessions[id]
	delete(s.sessions, id)
	return sess
}

func (s *SessionStore) Get(id uint64) *Session { return s.sessions[id] }

func (s *SessionStore) Count() int { return len(s.sessions) }

// Raw exposes the underlying map for iteration. Callers may delete the
// entry they are visiting.
func (s *SessionStore) Raw() map[uint64]*Session { return s.sessions }

// ForEach visits every open session.
func (s *SessionStore) ForEach(fn func(*Session)) {
	for _, sess := range s.sessions {
		if !sess.IsClosed() {
			fn(sess)
		}
	}
}
