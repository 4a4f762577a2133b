// README: Per-trip fan-out of lifecycle events and live positions.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rumbo/internal/events"
	"rumbo/internal/types"
)

// Hub fans committed events out to the parties subscribed to a trip. It
// implements events.Emitter so it can sit in the emitter fan-in next to the
// Kafka producer. Subscriptions end when cancelled or when the trip reaches a
// terminal event.
type Hub struct {
	mu   sync.RWMutex
	subs map[types.ID]map[*Subscription]struct{}
	log  *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{subs: make(map[types.ID]map[*Subscription]struct{}), log: log}
}

// Subscription delivers a trip's events in publish order. Position events are
// additionally guarded for monotonic recency: a sample older than the last
// delivered one is dropped, never rendered.
type Subscription struct {
	C chan events.Event

	hub       *Hub
	tripID    types.ID
	mu        sync.Mutex
	closed    bool
	lastPosAt time.Time
}

const subscriptionBuffer = 64

func (h *Hub) Subscribe(tripID types.ID) *Subscription {
	sub := &Subscription{
		C:      make(chan events.Event, subscriptionBuffer),
		hub:    h,
		tripID: tripID,
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[tripID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[tripID] = set
	}
	set[sub] = struct{}{}
	return sub
}

// Cancel detaches the subscription and closes its channel. Safe to call any
// number of times, including for a subscription the hub already tore down.
func (s *Subscription) Cancel() {
	s.hub.mu.Lock()
	if set, ok := s.hub.subs[s.tripID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(s.hub.subs, s.tripID)
		}
	}
	s.hub.mu.Unlock()
	s.close()
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.C)
}

func (s *Subscription) deliver(ev events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ev.Type == events.DriverLocation {
		if ev.At.Before(s.lastPosAt) {
			return
		}
		s.lastPosAt = ev.At
	}
	select {
	case s.C <- ev:
	default:
		// Slow consumer; drop rather than block the publisher.
	}
}

// Emit publishes the event to the trip's subscribers. A terminal lifecycle
// event also tears down every subscription for the trip, which stops any
// further position publishing immediately.
func (h *Hub) Emit(ctx context.Context, ev events.Event) {
	h.mu.RLock()
	set := h.subs[ev.TripID]
	targets := make([]*Subscription, 0, len(set))
	for sub := range set {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	for _, sub := range targets {
		sub.deliver(ev)
	}
	if ev.Type.Terminal() {
		h.CloseTrip(ev.TripID)
	}
}

// CloseTrip ends every subscription for a trip.
func (h *Hub) CloseTrip(tripID types.ID) {
	h.mu.Lock()
	set := h.subs[tripID]
	delete(h.subs, tripID)
	h.mu.Unlock()
	for sub := range set {
		sub.close()
	}
}
