package session

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCapacity bounds the in-process store so an unauthenticated client
// hammering the login endpoint cannot grow memory without limit.
const DefaultCapacity = 16384

// MemoryStore keeps sessions in an expiring LRU. Entries vanish after the
// TTL or under capacity pressure, whichever comes first.
type MemoryStore struct {
	cache *lru.LRU[string, Session]
}

// NewMemoryStore creates an in-process store expiring entries after ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: lru.NewLRU[string, Session](DefaultCapacity, nil, ttl),
	}
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.cache.Add(s.ID, *s)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.cache.Remove(id)
	return nil
}
