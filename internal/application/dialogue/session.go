package dialogue

import (
	"sync"

	"github.com/paydeskhq/paydesk/internal/domain"
)

// session is the transient per-user flow state. It lives only in process
// memory: a restart drops every in-flight dialogue and users start over.
type session struct {
	flow          domain.FlowKind
	step          domain.Step
	amountCents   int64
	walletAddress string
	method        string
}

// sessionStore guards the per-user session map. Units of work for one user
// are serialized by the transport, so the lock only protects cross-user
// access to the map itself.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[int64]*session)}
}

func (s *sessionStore) get(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// replace installs a fresh session, discarding any stale one without
// carrying fields over.
func (s *sessionStore) replace(userID int64, sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

func (s *sessionStore) drop(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}
