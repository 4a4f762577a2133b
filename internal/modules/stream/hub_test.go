// README: Hub fan-out tests (ordering, stale drops, terminal teardown).
package stream

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"rumbo/internal/events"
	"rumbo/internal/types"
)

func newTestHub() *Hub {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewHub(log)
}

func drain(sub *Subscription) []events.Event {
	var out []events.Event
	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHubDeliversInPublishOrder(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()
	sub := hub.Subscribe("t1")
	defer sub.Cancel()

	now := time.Now()
	hub.Emit(ctx, events.Event{Type: events.TripAccepted, TripID: "t1", At: now})
	hub.Emit(ctx, events.Event{Type: events.DriverArrived, TripID: "t1", At: now.Add(time.Second)})
	hub.Emit(ctx, events.Event{Type: events.TripStarted, TripID: "t2", At: now}) // other trip

	got := drain(sub)
	if len(got) != 2 || got[0].Type != events.TripAccepted || got[1].Type != events.DriverArrived {
		t.Fatalf("delivery wrong: %+v", got)
	}
}

func TestHubDropsStalePositions(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()
	sub := hub.Subscribe("t1")
	defer sub.Cancel()

	base := time.Now()
	fresh := types.Point{Lat: -34.90, Lng: -56.16}
	stale := types.Point{Lat: -34.95, Lng: -56.20}
	hub.Emit(ctx, events.Event{Type: events.DriverLocation, TripID: "t1", At: base.Add(5 * time.Second), Position: &fresh})
	hub.Emit(ctx, events.Event{Type: events.DriverLocation, TripID: "t1", At: base, Position: &stale})

	got := drain(sub)
	if len(got) != 1 || got[0].Position.Lat != fresh.Lat {
		t.Fatalf("stale position not dropped: %+v", got)
	}

	// A fresh subscriber has no recency floor yet and sees the next sample.
	late := hub.Subscribe("t1")
	defer late.Cancel()
	hub.Emit(ctx, events.Event{Type: events.DriverLocation, TripID: "t1", At: base.Add(time.Second), Position: &stale})
	if got := drain(late); len(got) != 1 {
		t.Fatalf("fresh subscriber missed sample: %+v", got)
	}
}

func TestHubTerminalEventClosesSubscriptions(t *testing.T) {
	hub := newTestHub()
	ctx := context.Background()
	sub := hub.Subscribe("t1")
	other := hub.Subscribe("t2")
	defer other.Cancel()

	hub.Emit(ctx, events.Event{Type: events.TripCompleted, TripID: "t1", At: time.Now()})

	// The terminal event is the last one delivered; then the channel closes.
	ev, ok := <-sub.C
	if !ok || ev.Type != events.TripCompleted {
		t.Fatalf("terminal event not delivered: %+v ok=%v", ev, ok)
	}
	if _, ok := <-sub.C; ok {
		t.Fatal("channel still open after terminal event")
	}

	// Position publishing after the end reaches nobody.
	p := types.Point{Lat: -34.9, Lng: -56.1}
	hub.Emit(ctx, events.Event{Type: events.DriverLocation, TripID: "t1", At: time.Now(), Position: &p})
	if got := drain(other); len(got) != 0 {
		t.Fatalf("other trip got leakage: %+v", got)
	}
}

func TestSubscriptionCancelIdempotent(t *testing.T) {
	hub := newTestHub()
	sub := hub.Subscribe("t1")
	sub.Cancel()
	sub.Cancel() // must not panic or double-close

	hub.Emit(context.Background(), events.Event{Type: events.TripAccepted, TripID: "t1", At: time.Now()})
	if _, ok := <-sub.C; ok {
		t.Fatal("cancelled subscription received an event")
	}
}

func TestHubExpiredTerminates(t *testing.T) {
	hub := newTestHub()
	sub := hub.Subscribe("t1")

	hub.Emit(context.Background(), events.Event{Type: events.TripExpired, TripID: "t1", At: time.Now()})
	ev, ok := <-sub.C
	if !ok || ev.Type != events.TripExpired {
		t.Fatalf("expiry not delivered: %+v ok=%v", ev, ok)
	}
	if _, ok := <-sub.C; ok {
		t.Fatal("channel open after expiry")
	}
}
