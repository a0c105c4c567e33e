package auth

import (
	"context"
	"sync"
	"time"

	"git.carhub.se/carhub/carhub/src/models"
)

// MemoryStore keeps sessions in process memory. Sessions do not survive a
// restart, so it is only meant for tests and local development.
type MemoryStore struct {
	maxAge time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*models.Session
}

var _ SessionStore = &MemoryStore{}

func NewMemoryStore(maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxAge:   maxAge,
		now:      time.Now,
		sessions: make(map[string]*models.Session),
	}
}

// Replaces the clock, for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || sess.IsExpired(s.now()) {
		return nil, ErrNoSession
	}
	return sess.Clone(), nil
}

func (s *MemoryStore) Create(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &models.Session{
		ID:        makeSessionId(),
		ExpiresAt: s.now().Add(s.maxAge),
	}
	s.sessions[sess.ID] = sess
	return sess.Clone(), nil
}

func (s *MemoryStore) SetUser(ctx context.Context, id string, user *models.SessionUser) (*models.Session, error) {
	return s.update(id, func(sess *models.Session) {
		if user == nil {
			sess.User = nil
		} else {
			u := *user
			sess.User = &u
		}
	})
}

func (s *MemoryStore) Touch(ctx context.Context, id string) (*models.Session, error) {
	return s.update(id, func(sess *models.Session) {})
}

func (s *MemoryStore) update(id string, f func(sess *models.Session)) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	now := s.now()
	if !ok || sess.IsExpired(now) {
		return nil, ErrNoSession
	}

	f(sess)
	sess.ExpiresAt = now.Add(s.maxAge)
	return sess.Clone(), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for id, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Count(ctx context.Context) (anonymous int64, authenticated int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	for _, sess := range s.sessions {
		if sess.IsExpired(now) {
			continue
		}
		if sess.User == nil {
			anonymous++
		} else {
			authenticated++
		}
	}
	return anonymous, authenticated, nil
}
