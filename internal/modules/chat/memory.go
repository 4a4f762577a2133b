// README: In-memory message store; keeps logs sorted by CreatedAt on insert.
package chat

import (
	"context"
	"sync"
	"time"

	"rumbo/internal/types"
)

type MemoryStore struct {
	mu     sync.RWMutex
	byTrip map[types.ID][]*Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byTrip: make(map[types.ID][]*Message)}
}

// Append inserts at the CreatedAt-sorted position, so a message that arrives
// late over the network still lands in timestamp order.
func (s *MemoryStore) Append(ctx context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	log := s.byTrip[m.TripID]
	i := len(log)
	for i > 0 && log[i-1].CreatedAt.After(cp.CreatedAt) {
		i--
	}
	log = append(log, nil)
	copy(log[i+1:], log[i:])
	log[i] = &cp
	s.byTrip[m.TripID] = log
	return nil
}

func (s *MemoryStore) ListAfter(ctx context.Context, tripID types.ID, after time.Time) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Message
	for _, m := range s.byTrip[tripID] {
		if m.CreatedAt.After(after) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}
