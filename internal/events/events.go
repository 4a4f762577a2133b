// README: Trip lifecycle events and the emitter fan-in used by modules.
package events

import (
	"context"
	"time"

	"rumbo/internal/types"
)

type Type string

const (
	TripAccepted   Type = "trip_accepted"
	DriverArrived  Type = "driver_arrived"
	TripStarted    Type = "trip_started"
	TripCompleted  Type = "trip_completed"
	TripCancelled  Type = "trip_cancelled"
	TripExpired    Type = "trip_expired"
	DriverLocation Type = "driver_location"
	ChatMessage    Type = "chat_message"
)

// Terminal reports whether an event ends the trip's live subscriptions.
func (t Type) Terminal() bool {
	return t == TripCompleted || t == TripCancelled || t == TripExpired
}

// Event is a single observable fact about a trip. Lifecycle events are emitted
// exactly once per transition, after the transition has committed.
type Event struct {
	Type     Type         `json:"type"`
	TripID   types.ID     `json:"trip_id"`
	At       time.Time    `json:"at"`
	Actor    string       `json:"actor,omitempty"`
	DriverID types.ID     `json:"driver_id,omitempty"`
	Price    *float64     `json:"price,omitempty"`
	Position *types.Point `json:"position,omitempty"`
}

// Emitter receives committed events. Implementations must tolerate being
// called from multiple goroutines.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

// Fanout forwards every event to each wrapped emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(ctx context.Context, ev Event) {
	for _, e := range f {
		e.Emit(ctx, ev)
	}
}
