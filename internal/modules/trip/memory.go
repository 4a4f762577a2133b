// README: In-memory store with the same atomic semantics as the Postgres one.
package trip

import (
	"context"
	"sync"
	"time"

	"rumbo/internal/types"
)

// CancelCounter is the profile-store hook for the cancelled-trips counter.
// The increment happens under the store lock so it commits together with the
// trip's state change or not at all.
type CancelCounter interface {
	IncrementCancelled(ctx context.Context, driverID types.ID) error
}

type MemoryStore struct {
	mu       sync.RWMutex
	trips    map[types.ID]*Trip
	offers   map[types.ID]*Offer
	byTrip   map[types.ID][]types.ID // offer IDs in submission order
	counters CancelCounter
}

func NewMemoryStore(counters CancelCounter) *MemoryStore {
	return &MemoryStore{
		trips:    make(map[types.ID]*Trip),
		offers:   make(map[types.ID]*Offer),
		byTrip:   make(map[types.ID][]types.ID),
		counters: counters,
	}
}

func (s *MemoryStore) CreateTrip(ctx context.Context, t *Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.trips[t.ID] = &cp
	return nil
}

func (s *MemoryStore) GetTrip(ctx context.Context, id types.ID) (*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) ListSearching(ctx context.Context) ([]*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Trip
	for _, t := range s.trips {
		if t.Status == StatusSearching {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) ActiveTripFor(ctx context.Context, userID types.ID, actor Actor) (*Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var best *Trip
	for _, t := range s.trips {
		switch actor {
		case ActorPassenger:
			if t.PassengerID != userID || !t.ActiveForPassenger {
				continue
			}
		case ActorDriver:
			if t.DriverID == nil || *t.DriverID != userID || !t.ActiveForDriver {
				continue
			}
		default:
			continue
		}
		if best == nil || t.CreatedAt.After(best.CreatedAt) {
			best = t
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (s *MemoryStore) AcceptOffer(ctx context.Context, tripID, offerID types.ID) (*Trip, *Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	if t.Status != StatusSearching {
		return nil, nil, ErrInvalidState
	}
	o, ok := s.offers[offerID]
	if !ok || o.TripID != tripID {
		return nil, nil, ErrNotFound
	}
	if o.Status != OfferPending {
		return nil, nil, ErrConflict
	}
	o.Status = OfferAccepted
	for _, sibID := range s.byTrip[tripID] {
		if sibID == offerID {
			continue
		}
		s.offers[sibID].Status = OfferRejected
	}
	driverID := o.DriverID
	price := o.Price
	t.Status = StatusDriverEnRoute
	t.DriverID = &driverID
	t.OfferPrice = &price

	tc, oc := *t, *o
	return &tc, &oc, nil
}

func (s *MemoryStore) CancelActive(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return nil, ErrNotFound
	}
	if t.Status != StatusDriverEnRoute && t.Status != StatusDriverAtPickup {
		return nil, ErrInvalidState
	}
	if t.DriverID == nil || *t.DriverID != driverID {
		return nil, ErrForbidden
	}
	// Counter first: it can fail, the in-memory trip mutation cannot. Either
	// both take effect or neither does.
	if s.counters != nil {
		if err := s.counters.IncrementCancelled(ctx, driverID); err != nil {
			return nil, err
		}
	}
	by := ActorDriver
	t.Status = StatusCancelled
	t.CancelledBy = &by
	t.ActiveForDriver = false
	t.ActiveForPassenger = false
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) DeleteSearching(ctx context.Context, tripID types.ID, expiredBefore *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusSearching {
		return ErrInvalidState
	}
	if expiredBefore != nil && t.ExpiresAt.After(*expiredBefore) {
		return ErrConflict
	}
	for _, offerID := range s.byTrip[tripID] {
		delete(s.offers, offerID)
	}
	delete(s.byTrip, tripID)
	delete(s.trips, tripID)
	return nil
}

func (s *MemoryStore) Archive(ctx context.Context, tripID types.ID, actor Actor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return ErrNotFound
	}
	switch actor {
	case ActorPassenger:
		t.ActiveForPassenger = false
	case ActorDriver:
		t.ActiveForDriver = false
	}
	return nil
}

func (s *MemoryStore) UpdateDriverLocation(ctx context.Context, tripID types.ID, p types.Point, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[tripID]
	if !ok {
		return false, ErrNotFound
	}
	if !t.Status.Active() {
		return false, ErrInvalidState
	}
	if t.DriverLocationAt != nil && !at.After(*t.DriverLocationAt) {
		return false, nil
	}
	cp := p
	ts := at
	t.DriverLocation = &cp
	t.DriverLocationAt = &ts
	return true, nil
}

func (s *MemoryStore) CreateOffer(ctx context.Context, o *Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[o.TripID]
	if !ok {
		return ErrNotFound
	}
	if t.Status != StatusSearching {
		return ErrInvalidState
	}
	for _, sibID := range s.byTrip[o.TripID] {
		if s.offers[sibID].DriverID == o.DriverID {
			return ErrDuplicateOffer
		}
	}
	cp := *o
	s.offers[o.ID] = &cp
	s.byTrip[o.TripID] = append(s.byTrip[o.TripID], o.ID)
	return nil
}

func (s *MemoryStore) ListOffers(ctx context.Context, tripID types.ID) ([]*Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.trips[tripID]; !ok {
		return nil, ErrNotFound
	}
	ids := s.byTrip[tripID]
	out := make([]*Offer, 0, len(ids))
	for _, id := range ids {
		cp := *s.offers[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) ListOffersByDriver(ctx context.Context, driverID types.ID) ([]*Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Offer
	for _, tripOffers := range s.byTrip {
		for _, id := range tripOffers {
			o := s.offers[id]
			if o.DriverID != driverID {
				continue
			}
			if o.Status != OfferPending && o.Status != OfferRejected {
				continue
			}
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) OfferedTripIDs(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.ID]struct{})
	for _, o := range s.offers {
		if o.DriverID == driverID {
			out[o.TripID] = struct{}{}
		}
	}
	return out, nil
}
