package memory

import (
	"context"
	"sync"
	"time"

	"quiz-raffle-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. It stores
// clones and hands out clones, so callers never alias the stored state; the
// Version check under the mutex gives the same compare-and-swap contract as
// the durable store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.QuizSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*domain.QuizSession)}
}

func (s *SessionStore) Get(_ context.Context, token string) (*domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) Create(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = session.Clone()
	return nil
}

func (s *SessionStore) Update(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.sessions[session.Token]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if stored.Version != session.Version {
		return domain.ErrVersionConflict
	}
	session.Version++
	s.sessions[session.Token] = session.Clone()
	return nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *SessionStore) ExpireStale(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for _, session := range s.sessions {
		if session.Status == domain.SessionActive && session.ExpiredAt(now) {
			session.Status = domain.SessionExpired
			session.Version++
			expired++
		}
	}
	return expired, nil
}
