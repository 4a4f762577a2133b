// README: In-memory profile store used when no database is configured.
package profile

import (
	"context"
	"sync"

	"rumbo/internal/types"
)

type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[types.ID]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[types.ID]Profile)}
}

func (s *MemoryStore) Put(p Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *MemoryStore) Get(ctx context.Context, id types.ID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

// IncrementCancelled bumps the cancelled-trips counter. The trip memory store
// calls this while holding its own lock so the counter and the trip state
// change stay atomic with respect to readers of either.
func (s *MemoryStore) IncrementCancelled(ctx context.Context, id types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return ErrNotFound
	}
	p.CancelledTrips++
	s.profiles[id] = p
	return nil
}
