// README: Trip service implements the lifecycle state machine around the store.
package trip

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"rumbo/internal/events"
	"rumbo/internal/modules/profile"
	"rumbo/internal/observability"
	"rumbo/internal/types"
)

// Geocoder resolves a free-text address into coordinates. Resolution is
// best-effort; a trip without pickup coordinates simply never appears in the
// nearby feed.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*types.Point, error)
}

// PickupIndex keeps the geo index of searching-trip pickups in sync with the
// lifecycle: pickups are added at creation and removed the moment the trip
// stops collecting offers.
type PickupIndex interface {
	Add(ctx context.Context, tripID types.ID, pickup types.Point) error
	Remove(ctx context.Context, tripID types.ID) error
}

type Service struct {
	store    Store
	profiles profile.Store
	geocoder Geocoder
	index    PickupIndex
	emitter  events.Emitter
	log      *logrus.Logger

	searchWindow time.Duration
	clock        func() time.Time

	mu     sync.Mutex
	timers map[types.ID]*time.Timer
}

type Option func(*Service)

func WithGeocoder(g Geocoder) Option       { return func(s *Service) { s.geocoder = g } }
func WithPickupIndex(i PickupIndex) Option { return func(s *Service) { s.index = i } }
func WithEmitter(e events.Emitter) Option  { return func(s *Service) { s.emitter = e } }
func WithLogger(l *logrus.Logger) Option   { return func(s *Service) { s.log = l } }
func WithSearchWindow(d time.Duration) Option {
	return func(s *Service) { s.searchWindow = d }
}

func NewService(store Store, profiles profile.Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		profiles:     profiles,
		log:          logrus.StandardLogger(),
		searchWindow: SearchWindow,
		clock:        time.Now,
		timers:       make(map[types.ID]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateCommand struct {
	PassengerID        types.ID
	TripType           TripType
	PassengerCount     int
	CargoDescription   string
	PickupAddress      string
	DestinationAddress string
	PickupCoords       *types.Point
	DestinationCoords  *types.Point
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Trip, error) {
	now := s.clock()
	t := &Trip{
		ID:                 newID(),
		PassengerID:        cmd.PassengerID,
		Status:             StatusSearching,
		TripType:           cmd.TripType,
		PassengerCount:     cmd.PassengerCount,
		CargoDescription:   cmd.CargoDescription,
		PickupAddress:      cmd.PickupAddress,
		DestinationAddress: cmd.DestinationAddress,
		PickupCoords:       cmd.PickupCoords,
		DestinationCoords:  cmd.DestinationCoords,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.searchWindow),
		ActiveForDriver:    true,
		ActiveForPassenger: true,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if t.PickupCoords == nil && s.geocoder != nil {
		if p, err := s.geocoder.Geocode(ctx, t.PickupAddress); err == nil {
			t.PickupCoords = p
		} else {
			s.log.WithError(err).WithField("address", t.PickupAddress).Warn("trip: pickup geocoding failed")
		}
	}
	if t.DestinationCoords == nil && s.geocoder != nil {
		if p, err := s.geocoder.Geocode(ctx, t.DestinationAddress); err == nil {
			t.DestinationCoords = p
		}
	}
	if err := s.store.CreateTrip(ctx, t); err != nil {
		return nil, err
	}
	if s.index != nil && t.PickupCoords != nil {
		if err := s.index.Add(ctx, t.ID, *t.PickupCoords); err != nil {
			s.log.WithError(err).WithField("trip_id", t.ID).Warn("trip: geo index add failed")
		}
	}
	s.scheduleExpiry(t.ID, t.ExpiresAt)
	observability.TripsCreated.Inc()
	return t, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Trip, error) {
	return s.store.GetTrip(ctx, id)
}

func (s *Service) ActiveTripFor(ctx context.Context, userID types.ID, actor Actor) (*Trip, error) {
	return s.store.ActiveTripFor(ctx, userID, actor)
}

// ListSearching and OfferedTripIDs feed the matching engine.
func (s *Service) ListSearching(ctx context.Context) ([]*Trip, error) {
	return s.store.ListSearching(ctx)
}

func (s *Service) OfferedTripIDs(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error) {
	return s.store.OfferedTripIDs(ctx, driverID)
}

type AcceptOfferCommand struct {
	TripID      types.ID
	OfferID     types.ID
	PassengerID types.ID
}

// AcceptOffer converts an accepted offer into the searching → driver_en_route
// transition: one offer accepted, every other rejected, driver and price bound
// to the trip, all in one transaction. Concurrent accepts race on the store's
// status check; exactly one wins.
func (s *Service) AcceptOffer(ctx context.Context, cmd AcceptOfferCommand) (*Trip, error) {
	if cmd.PassengerID != "" {
		t, err := s.store.GetTrip(ctx, cmd.TripID)
		if err != nil {
			return nil, err
		}
		if t.PassengerID != cmd.PassengerID {
			return nil, ErrForbidden
		}
	}
	t, o, err := s.store.AcceptOffer(ctx, cmd.TripID, cmd.OfferID)
	if err != nil {
		return nil, err
	}
	s.stopExpiry(t.ID)
	s.removeFromIndex(ctx, t.ID)
	observability.TripsAccepted.Inc()
	s.emit(ctx, events.Event{
		Type:     events.TripAccepted,
		TripID:   t.ID,
		At:       s.clock(),
		DriverID: o.DriverID,
		Price:    &o.Price,
	})
	return t, nil
}

type ArriveCommand struct {
	TripID   types.ID
	DriverID types.ID
}

func (s *Service) MarkArrival(ctx context.Context, cmd ArriveCommand) error {
	t, err := s.authorizedDriverTrip(ctx, cmd.TripID, cmd.DriverID)
	if err != nil {
		return err
	}
	if !CanTransition(t.Status, StatusDriverAtPickup) {
		return ErrInvalidState
	}
	if err := s.transition(ctx, t.ID, StatusDriverEnRoute, StatusDriverAtPickup); err != nil {
		return err
	}
	s.emit(ctx, events.Event{Type: events.DriverArrived, TripID: t.ID, At: s.clock(), DriverID: cmd.DriverID})
	return nil
}

type StartCommand struct {
	TripID      types.ID
	PassengerID types.ID
}

// ConfirmStart is a passenger-only action: only the trip's passenger may
// confirm that the ride began.
func (s *Service) ConfirmStart(ctx context.Context, cmd StartCommand) error {
	t, err := s.store.GetTrip(ctx, cmd.TripID)
	if err != nil {
		return err
	}
	if t.PassengerID != cmd.PassengerID {
		return ErrForbidden
	}
	if !CanTransition(t.Status, StatusInProgress) {
		return ErrInvalidState
	}
	if err := s.transition(ctx, t.ID, StatusDriverAtPickup, StatusInProgress); err != nil {
		return err
	}
	s.emit(ctx, events.Event{Type: events.TripStarted, TripID: t.ID, At: s.clock(), Actor: string(ActorPassenger)})
	return nil
}

type CompleteCommand struct {
	TripID   types.ID
	DriverID types.ID
}

func (s *Service) Complete(ctx context.Context, cmd CompleteCommand) error {
	t, err := s.authorizedDriverTrip(ctx, cmd.TripID, cmd.DriverID)
	if err != nil {
		return err
	}
	if !CanTransition(t.Status, StatusCompleted) {
		return ErrInvalidState
	}
	if err := s.transition(ctx, t.ID, StatusInProgress, StatusCompleted); err != nil {
		return err
	}
	observability.TripsCompleted.Inc()
	s.emit(ctx, events.Event{Type: events.TripCompleted, TripID: t.ID, At: s.clock(), DriverID: cmd.DriverID})
	return nil
}

type CancelCommand struct {
	TripID  types.ID
	Actor   Actor
	ActorID types.ID
}

// Cancel has two shapes. A passenger aborts a still-searching trip, which
// deletes it together with its offers. A driver cancels an active trip before
// the ride starts, which marks it cancelled and increments the driver's
// cancelled-trips counter in the same transaction.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	t, err := s.store.GetTrip(ctx, cmd.TripID)
	if err != nil {
		return err
	}
	switch cmd.Actor {
	case ActorPassenger:
		if t.PassengerID != cmd.ActorID {
			return ErrForbidden
		}
		if t.Status != StatusSearching {
			return ErrInvalidState
		}
		if err := s.store.DeleteSearching(ctx, t.ID, nil); err != nil {
			return err
		}
	case ActorDriver:
		if _, err := s.store.CancelActive(ctx, t.ID, cmd.ActorID); err != nil {
			return err
		}
	default:
		return ErrValidation
	}
	s.stopExpiry(t.ID)
	s.removeFromIndex(ctx, t.ID)
	observability.TripsCancelled.Inc()
	s.emit(ctx, events.Event{Type: events.TripCancelled, TripID: t.ID, At: s.clock(), Actor: string(cmd.Actor)})
	return nil
}

type ArchiveCommand struct {
	TripID  types.ID
	Actor   Actor
	ActorID types.ID
}

func (s *Service) Archive(ctx context.Context, cmd ArchiveCommand) error {
	t, err := s.store.GetTrip(ctx, cmd.TripID)
	if err != nil {
		return err
	}
	switch cmd.Actor {
	case ActorPassenger:
		if t.PassengerID != cmd.ActorID {
			return ErrForbidden
		}
	case ActorDriver:
		if t.DriverID == nil || *t.DriverID != cmd.ActorID {
			return ErrForbidden
		}
	default:
		return ErrValidation
	}
	if !t.Status.Terminal() {
		return ErrInvalidState
	}
	return s.store.Archive(ctx, t.ID, cmd.Actor)
}

// Expire deletes a trip that is still searching past its deadline. The store
// re-validates both conditions inside the transaction, so a trip that was
// accepted a moment ago is never deleted.
func (s *Service) Expire(ctx context.Context, tripID types.ID) error {
	now := s.clock()
	err := s.store.DeleteSearching(ctx, tripID, &now)
	switch err {
	case nil:
	case ErrNotFound, ErrInvalidState, ErrConflict:
		// Already gone, already matched, or not due yet. Nothing to clean up.
		return nil
	default:
		return err
	}
	s.stopExpiry(tripID)
	s.removeFromIndex(ctx, tripID)
	observability.TripsExpired.Inc()
	s.emit(ctx, events.Event{Type: events.TripExpired, TripID: tripID, At: now})
	return nil
}

type LocationCommand struct {
	TripID     types.ID
	DriverID   types.ID
	Position   types.Point
	ObservedAt time.Time
}

// UpdateDriverLocation applies a position sample with last-writer-wins
// semantics. A stale sample is dropped without error; a trip outside the
// active states rejects the update.
func (s *Service) UpdateDriverLocation(ctx context.Context, cmd LocationCommand) (bool, error) {
	t, err := s.store.GetTrip(ctx, cmd.TripID)
	if err != nil {
		return false, err
	}
	if t.DriverID == nil || *t.DriverID != cmd.DriverID {
		return false, ErrForbidden
	}
	at := cmd.ObservedAt
	if at.IsZero() {
		at = s.clock()
	}
	applied, err := s.store.UpdateDriverLocation(ctx, cmd.TripID, cmd.Position, at)
	if err != nil {
		return false, err
	}
	if !applied {
		s.log.WithField("trip_id", cmd.TripID).Debug("trip: stale location sample dropped")
		return false, nil
	}
	p := cmd.Position
	s.emit(ctx, events.Event{
		Type:     events.DriverLocation,
		TripID:   cmd.TripID,
		At:       at,
		DriverID: cmd.DriverID,
		Position: &p,
	})
	return true, nil
}

// RunExpirySweeper periodically re-arms timers for searching trips and expires
// overdue ones. It is the recovery path after a restart; the per-trip timers
// handle the common case.
func (s *Service) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpired(ctx)
		}
	}
}

func (s *Service) sweepExpired(ctx context.Context) {
	trips, err := s.store.ListSearching(ctx)
	if err != nil {
		s.log.WithError(err).Warn("trip: expiry sweep failed")
		return
	}
	now := s.clock()
	for _, t := range trips {
		if t.ExpiresAt.After(now) {
			s.scheduleExpiry(t.ID, t.ExpiresAt)
			continue
		}
		if err := s.Expire(ctx, t.ID); err != nil {
			s.log.WithError(err).WithField("trip_id", t.ID).Warn("trip: expiry failed")
		}
	}
}

func (s *Service) scheduleExpiry(id types.ID, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[id]; ok {
		return
	}
	delay := at.Sub(s.clock())
	if delay < 0 {
		delay = 0
	}
	s.timers[id] = time.AfterFunc(delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Expire(ctx, id); err != nil {
			s.log.WithError(err).WithField("trip_id", id).Warn("trip: expiry failed")
		}
	})
}

func (s *Service) stopExpiry(id types.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

func (s *Service) transition(ctx context.Context, id types.ID, from, to Status) error {
	ok, err := s.store.UpdateStatus(ctx, id, from, to)
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}

func (s *Service) authorizedDriverTrip(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.DriverID == nil || *t.DriverID != driverID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *Service) removeFromIndex(ctx context.Context, id types.ID) {
	if s.index == nil {
		return
	}
	if err := s.index.Remove(ctx, id); err != nil {
		s.log.WithError(err).WithField("trip_id", id).Warn("trip: geo index remove failed")
	}
}

func (s *Service) emit(ctx context.Context, ev events.Event) {
	if s.emitter != nil {
		s.emitter.Emit(ctx, ev)
	}
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
