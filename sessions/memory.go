package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session documents in process memory with the same TTL
// semantics as the Mongo store. Used by tests and single-binary development.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      TTL,
	}
}

func (m *MemoryStore) Load(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if time.Since(s.UpdatedAt) > m.ttl {
		// Idle session expired; evict lazily on access.
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	return copySession(s), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	m.mu.Lock()
	m.sessions[s.ID] = copySession(s)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// copySession returns a deep enough copy that callers cannot mutate stored
// state without going back through Save.
func copySession(s *Session) *Session {
	dup := *s
	dup.Cart = append(s.Cart[:0:0], s.Cart...)
	return &dup
}
