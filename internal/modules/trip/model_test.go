// README: State machine and validation tests.
package trip

import (
	"errors"
	"testing"
)

// TestCanTransition verifies the transition table without a store.
func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		// forward path
		{StatusSearching, StatusDriverEnRoute, true},
		{StatusDriverEnRoute, StatusDriverAtPickup, true},
		{StatusDriverAtPickup, StatusInProgress, true},
		{StatusInProgress, StatusCompleted, true},
		// driver cancellation window: en route and at pickup only
		{StatusDriverEnRoute, StatusCancelled, true},
		{StatusDriverAtPickup, StatusCancelled, true},
		{StatusInProgress, StatusCancelled, false},
		{StatusSearching, StatusCancelled, false}, // searching trips are deleted, not cancelled
		// terminal states have no outgoing transitions
		{StatusCompleted, StatusSearching, false},
		{StatusCancelled, StatusDriverEnRoute, false},
		{StatusCompleted, StatusCompleted, false},
		// skipping states
		{StatusSearching, StatusInProgress, false},
		{StatusSearching, StatusCompleted, false},
		{StatusDriverEnRoute, StatusInProgress, false},
		{StatusDriverAtPickup, StatusCompleted, false},
		// no going back
		{StatusDriverAtPickup, StatusDriverEnRoute, false},
		{StatusInProgress, StatusDriverAtPickup, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for status, terminal := range map[Status]bool{
		StatusSearching:      false,
		StatusDriverEnRoute:  false,
		StatusDriverAtPickup: false,
		StatusInProgress:     false,
		StatusCompleted:      true,
		StatusCancelled:      true,
	} {
		if got := status.Terminal(); got != terminal {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, terminal)
		}
	}
}

func TestTripValidate(t *testing.T) {
	base := func() *Trip {
		return &Trip{
			PassengerID:        "p1",
			TripType:           TypePassenger,
			PassengerCount:     2,
			PickupAddress:      "Av. 18 de Julio 1234",
			DestinationAddress: "Bvar. Artigas 456",
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid passenger trip rejected: %v", err)
	}

	cargo := base()
	cargo.TripType = TypeCargo
	cargo.PassengerCount = 0
	cargo.CargoDescription = "two boxes, roughly 40 kg"
	if err := cargo.Validate(); err != nil {
		t.Fatalf("valid cargo trip rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Trip)
	}{
		{"missing passenger", func(tr *Trip) { tr.PassengerID = "" }},
		{"missing pickup address", func(tr *Trip) { tr.PickupAddress = "" }},
		{"missing destination address", func(tr *Trip) { tr.DestinationAddress = "" }},
		{"zero passengers", func(tr *Trip) { tr.PassengerCount = 0 }},
		{"too many passengers", func(tr *Trip) { tr.PassengerCount = MaxPassengers + 1 }},
		{"passenger trip with cargo description", func(tr *Trip) { tr.CargoDescription = "boxes" }},
		{"cargo trip without description", func(tr *Trip) {
			tr.TripType = TypeCargo
			tr.PassengerCount = 0
		}},
		{"cargo trip with passenger count", func(tr *Trip) {
			tr.TripType = TypeCargo
			tr.CargoDescription = "boxes"
		}},
		{"unknown trip type", func(tr *Trip) { tr.TripType = "freight" }},
	}
	for _, tc := range cases {
		tr := base()
		tc.mutate(tr)
		if err := tr.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: Validate() = %v, want ErrValidation", tc.name, err)
		}
	}
}
