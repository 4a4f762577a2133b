// README: In-memory pickup index used when Redis is not configured.
package matching

import (
	"context"
	"sort"
	"sync"

	"rumbo/internal/geo"
	"rumbo/internal/types"
)

type MemoryIndex struct {
	mu      sync.RWMutex
	pickups map[types.ID]types.Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{pickups: make(map[types.ID]types.Point)}
}

func (m *MemoryIndex) Add(ctx context.Context, tripID types.ID, pickup types.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pickups[tripID] = pickup
	return nil
}

func (m *MemoryIndex) Remove(ctx context.Context, tripID types.ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pickups, tripID)
	return nil
}

// Nearby scans all pickups; fine for the in-memory deployment sizes.
func (m *MemoryIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	type pair struct {
		id   types.ID
		dist float64
	}
	var arr []pair
	for id, pickup := range m.pickups {
		if d := geo.HaversineKm(p, pickup); d <= radiusKm {
			arr = append(arr, pair{id, d})
		}
	}
	sort.Slice(arr, func(i, j int) bool { return arr[i].dist < arr[j].dist })
	out := make([]types.ID, len(arr))
	for i, a := range arr {
		out[i] = a.id
	}
	return out, nil
}
