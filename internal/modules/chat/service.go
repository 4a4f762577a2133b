// README: Chat service: append-only per-trip channel with unread tracking.
package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rumbo/internal/events"
	"rumbo/internal/modules/profile"
	"rumbo/internal/modules/stream"
	"rumbo/internal/modules/trip"
	"rumbo/internal/observability"
	"rumbo/internal/types"
)

// TripSource resolves the trip a channel belongs to, for participant checks.
type TripSource interface {
	Get(ctx context.Context, id types.ID) (*trip.Trip, error)
}

type Service struct {
	store    Store
	lastRead LastReadStore
	trips    TripSource
	profiles profile.Store
	hub      *stream.Hub
	emitter  events.Emitter
	log      *logrus.Logger
	clock    func() time.Time
}

func NewService(store Store, lastRead LastReadStore, trips TripSource, profiles profile.Store, hub *stream.Hub, emitter events.Emitter, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		store:    store,
		lastRead: lastRead,
		trips:    trips,
		profiles: profiles,
		hub:      hub,
		emitter:  emitter,
		log:      log,
		clock:    time.Now,
	}
}

type SendCommand struct {
	TripID   types.ID
	SenderID types.ID
	Text     string
}

// Send appends a message to the trip's log. A send failure never touches any
// other state; it is reported to the caller and that is all.
func (s *Service) Send(ctx context.Context, cmd SendCommand) (*Message, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return nil, ErrEmpty
	}
	t, err := s.trips.Get(ctx, cmd.TripID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !isParticipant(t, cmd.SenderID) {
		return nil, ErrForbidden
	}

	senderName := ""
	if prof, err := s.profiles.Get(ctx, cmd.SenderID); err == nil {
		senderName = prof.FullName
	}

	m := &Message{
		ID:         newID(),
		TripID:     cmd.TripID,
		SenderID:   cmd.SenderID,
		SenderName: senderName,
		Text:       cmd.Text,
		CreatedAt:  s.clock(),
	}
	if err := s.store.Append(ctx, m); err != nil {
		return nil, err
	}
	observability.MessagesSent.Inc()
	if s.emitter != nil {
		s.emitter.Emit(ctx, events.Event{Type: events.ChatMessage, TripID: cmd.TripID, At: m.CreatedAt})
	}
	return m, nil
}

// List returns the trip's messages after the given cursor in CreatedAt order.
func (s *Service) List(ctx context.Context, tripID, userID types.ID, after time.Time) ([]*Message, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !isParticipant(t, userID) {
		return nil, ErrForbidden
	}
	return s.store.ListAfter(ctx, tripID, after)
}

// MarkOpened records that the user is looking at the channel now; unread
// counting starts over from this instant.
func (s *Service) MarkOpened(ctx context.Context, tripID, userID types.ID) error {
	return s.lastRead.MarkOpened(ctx, tripID, userID, s.clock())
}

// Unread counts messages from the other participant since the user last
// opened the channel.
func (s *Service) Unread(ctx context.Context, tripID, userID types.ID) (int, error) {
	since, err := s.lastRead.LastOpened(ctx, tripID, userID)
	if err != nil {
		return 0, err
	}
	msgs, err := s.store.ListAfter(ctx, tripID, since)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range msgs {
		if m.SenderID != userID {
			n++
		}
	}
	return n, nil
}

// Feed delivers batches of new messages in CreatedAt order.
type Feed struct {
	C      chan []*Message
	cancel func()
}

// Cancel is idempotent.
func (f *Feed) Cancel() { f.cancel() }

// Subscribe streams the channel from the given cursor onward. Delivery is
// cursor-based: each hub notification triggers a re-read past the cursor, so
// the subscriber observes non-decreasing CreatedAt no matter how appends were
// interleaved on the network.
func (s *Service) Subscribe(ctx context.Context, tripID, userID types.ID, after time.Time) (*Feed, error) {
	t, err := s.trips.Get(ctx, tripID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !isParticipant(t, userID) {
		return nil, ErrForbidden
	}

	sub := s.hub.Subscribe(tripID)
	feed := &Feed{C: make(chan []*Message, 8), cancel: sub.Cancel}

	go func() {
		defer close(feed.C)
		cursor := after
		cursor = s.flush(ctx, tripID, cursor, feed)
		for {
			select {
			case <-ctx.Done():
				sub.Cancel()
				return
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if ev.Type != events.ChatMessage {
					continue
				}
				cursor = s.flush(ctx, tripID, cursor, feed)
			}
		}
	}()
	return feed, nil
}

func (s *Service) flush(ctx context.Context, tripID types.ID, cursor time.Time, feed *Feed) time.Time {
	msgs, err := s.store.ListAfter(ctx, tripID, cursor)
	if err != nil {
		s.log.WithError(err).WithField("trip_id", tripID).Warn("chat: feed read failed")
		return cursor
	}
	if len(msgs) == 0 {
		return cursor
	}
	select {
	case feed.C <- msgs:
		return msgs[len(msgs)-1].CreatedAt
	case <-ctx.Done():
		return cursor
	}
}

func isParticipant(t *trip.Trip, userID types.ID) bool {
	if t.PassengerID == userID {
		return true
	}
	return t.DriverID != nil && *t.DriverID == userID
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
