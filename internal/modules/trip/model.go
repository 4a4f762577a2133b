// README: Trip aggregate, status definitions and validation rules.
package trip

import (
	"time"

	"rumbo/internal/types"
)

type Status string

const (
	StatusSearching      Status = "searching"
	StatusDriverEnRoute  Status = "driver_en_route"
	StatusDriverAtPickup Status = "driver_at_pickup"
	StatusInProgress     Status = "in_progress"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
)

type TripType string

const (
	TypePassenger TripType = "passenger"
	TypeCargo     TripType = "cargo"
)

type Actor string

const (
	ActorPassenger Actor = "passenger"
	ActorDriver    Actor = "driver"
)

// SearchWindow is how long a trip collects offers before it expires.
const SearchWindow = 5 * time.Minute

const (
	MinPassengers = 1
	MaxPassengers = 8
)

type Trip struct {
	ID          types.ID  `json:"id"`
	PassengerID types.ID  `json:"passenger_id"`
	DriverID    *types.ID `json:"driver_id,omitempty"`
	Status      Status    `json:"status"`

	TripType         TripType `json:"trip_type"`
	PassengerCount   int      `json:"passenger_count,omitempty"`
	CargoDescription string   `json:"cargo_description,omitempty"`

	PickupAddress      string       `json:"pickup_address"`
	DestinationAddress string       `json:"destination_address"`
	PickupCoords       *types.Point `json:"pickup_coords,omitempty"`
	DestinationCoords  *types.Point `json:"destination_coords,omitempty"`

	// DriverLocation carries the latest accepted position sample while the
	// trip is active; DriverLocationAt is its observation timestamp and the
	// last-writer-wins ordering key.
	DriverLocation   *types.Point `json:"driver_location,omitempty"`
	DriverLocationAt *time.Time   `json:"driver_location_at,omitempty"`

	OfferPrice *float64 `json:"offer_price,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt is meaningful only while the trip is still searching.
	ExpiresAt time.Time `json:"expires_at"`

	CancelledBy *Actor `json:"cancelled_by,omitempty"`

	// Each party can archive a finished trip independently; archiving clears
	// that party's flag without touching the status.
	ActiveForDriver    bool `json:"active_for_driver"`
	ActiveForPassenger bool `json:"active_for_passenger"`
}

// AllowedTransitions represents the trip state flow as code. Searching trips
// leave the system by deletion (passenger abort or expiry), not by transition,
// and no cancellation is permitted once the trip is in progress.
var AllowedTransitions = map[Status][]Status{
	StatusSearching:      {StatusDriverEnRoute},
	StatusDriverEnRoute:  {StatusDriverAtPickup, StatusCancelled},
	StatusDriverAtPickup: {StatusInProgress, StatusCancelled},
	StatusInProgress:     {StatusCompleted},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Active reports whether a driver is currently bound and moving: the states in
// which position updates are accepted and streamed.
func (s Status) Active() bool {
	return s == StatusDriverEnRoute || s == StatusDriverAtPickup || s == StatusInProgress
}

// Validate enforces the creation rules: a passenger trip carries a passenger
// count in range and no cargo description, a cargo trip the reverse.
func (t *Trip) Validate() error {
	if t.PassengerID == "" {
		return ErrValidation
	}
	if t.PickupAddress == "" || t.DestinationAddress == "" {
		return ErrValidation
	}
	switch t.TripType {
	case TypePassenger:
		if t.CargoDescription != "" {
			return ErrValidation
		}
		if t.PassengerCount < MinPassengers || t.PassengerCount > MaxPassengers {
			return ErrValidation
		}
	case TypeCargo:
		if t.CargoDescription == "" || t.PassengerCount != 0 {
			return ErrValidation
		}
	default:
		return ErrValidation
	}
	return nil
}
