package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// NewMemoryStore creates a MemoryStore. A ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// expiredLocked must be called with s.mu held.
func (s *MemoryStore) expiredLocked(sess *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.UpdatedAt) > s.ttl
}

// sweepLocked drops expired sessions at most once per ttl. Must be called with s.mu held
// for writing.
func (s *MemoryStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if s.expiredLocked(sess, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[id]
	expired := ok && s.expiredLocked(sess, now)
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if !expired {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent Save may have refreshed it since the read lock was released.
	sess, ok = s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expiredLocked(sess, now) {
		delete(s.sessions, id)
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Create(_ context.Context) (*Session, error) {
	now := s.now()
	sess := newSession()
	sess.UpdatedAt = now.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Save records the session. The stored pointer is the one handed out by Get, so this
// mostly refreshes the expiry clock.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.UpdatedAt = now.UTC()
	s.sessions[sess.ID] = sess
	s.sweepLocked(now)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
