// README: Matching feed tests (radius, compatibility, exclusions, ordering).
package matching

import (
	"context"
	"testing"
	"time"

	"rumbo/internal/modules/profile"
	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

// fakeTrips is a canned TripSource.
type fakeTrips struct {
	searching []*trip.Trip
	offered   map[types.ID]struct{}
}

func (f *fakeTrips) ListSearching(context.Context) ([]*trip.Trip, error) {
	return f.searching, nil
}

func (f *fakeTrips) OfferedTripIDs(context.Context, types.ID) (map[types.ID]struct{}, error) {
	if f.offered == nil {
		return map[types.ID]struct{}{}, nil
	}
	return f.offered, nil
}

// Positions around Montevideo's centre; plazaIndependencia to pocitos is
// about 4 km, to the airport about 17 km.
var (
	plazaIndependencia = types.Point{Lat: -34.9066, Lng: -56.2006}
	pocitos            = types.Point{Lat: -34.9121, Lng: -56.1572}
	carrascoAirport    = types.Point{Lat: -34.8384, Lng: -56.0278}
)

func searchingTrip(id types.ID, pickup *types.Point, tripType trip.TripType, createdAt time.Time) *trip.Trip {
	count := 0
	if tripType == trip.TypePassenger {
		count = 2
	}
	return &trip.Trip{
		ID:             id,
		PassengerID:    "p-" + id,
		Status:         trip.StatusSearching,
		TripType:       tripType,
		PassengerCount: count,
		PickupCoords:   pickup,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(trip.SearchWindow),
	}
}

func driverProfile(usage profile.VehicleUsage, capacity int) *profile.Profile {
	return &profile.Profile{ID: "d1", VehicleUsage: usage, PassengerCapacity: capacity}
}

func TestListNearbyRadiusAndOrdering(t *testing.T) {
	now := time.Now()
	source := &fakeTrips{searching: []*trip.Trip{
		searchingTrip("near-late", &pocitos, trip.TypePassenger, now.Add(-time.Minute)),
		searchingTrip("near-early", &pocitos, trip.TypePassenger, now.Add(-2*time.Minute)),
		searchingTrip("far", &carrascoAirport, trip.TypePassenger, now.Add(-3*time.Minute)),
		searchingTrip("here", &plazaIndependencia, trip.TypePassenger, now),
	}}
	svc := NewService(source, nil)

	got, err := svc.ListNearby(context.Background(), "d1", plazaIndependencia, driverProfile(profile.UsageBoth, 4))
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("trips = %d, want 3 (airport trip beyond %v km)", len(got), MaxPickupDistanceKm)
	}
	// Closest first; equal distance breaks ties by creation time.
	if got[0].Trip.ID != "here" || got[1].Trip.ID != "near-early" || got[2].Trip.ID != "near-late" {
		t.Fatalf("ordering wrong: %s, %s, %s", got[0].Trip.ID, got[1].Trip.ID, got[2].Trip.ID)
	}
	if got[0].Distance != "< 50 m" {
		t.Fatalf("distance label = %q", got[0].Distance)
	}
	for _, n := range got {
		if n.DistanceKm > MaxPickupDistanceKm {
			t.Fatalf("trip %s at %.2f km beyond radius", n.Trip.ID, n.DistanceKm)
		}
	}
}

func TestListNearbyExclusions(t *testing.T) {
	now := time.Now()
	expired := searchingTrip("expired", &pocitos, trip.TypePassenger, now.Add(-2*trip.SearchWindow))
	source := &fakeTrips{
		searching: []*trip.Trip{
			searchingTrip("ok", &pocitos, trip.TypePassenger, now),
			searchingTrip("already-offered", &pocitos, trip.TypePassenger, now),
			searchingTrip("no-coords", nil, trip.TypePassenger, now),
			expired,
		},
		offered: map[types.ID]struct{}{"already-offered": {}},
	}
	svc := NewService(source, nil)

	got, err := svc.ListNearby(context.Background(), "d1", plazaIndependencia, driverProfile(profile.UsageBoth, 4))
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].Trip.ID != "ok" {
		t.Fatalf("exclusions wrong: %+v", got)
	}
}

func TestListNearbyVehicleCompatibility(t *testing.T) {
	now := time.Now()
	source := &fakeTrips{searching: []*trip.Trip{
		searchingTrip("people", &pocitos, trip.TypePassenger, now),
		searchingTrip("boxes", &pocitos, trip.TypeCargo, now),
	}}
	svc := NewService(source, nil)
	ctx := context.Background()
	at := plazaIndependencia

	cases := []struct {
		usage profile.VehicleUsage
		want  []types.ID
	}{
		{profile.UsagePassenger, []types.ID{"people"}},
		{profile.UsageCargo, []types.ID{"boxes"}},
		{profile.UsageBoth, []types.ID{"people", "boxes"}},
	}
	for _, tc := range cases {
		got, err := svc.ListNearby(ctx, "d1", at, driverProfile(tc.usage, 4))
		if err != nil {
			t.Fatalf("%s: %v", tc.usage, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: trips = %d, want %d", tc.usage, len(got), len(tc.want))
		}
		seen := map[types.ID]bool{}
		for _, n := range got {
			seen[n.Trip.ID] = true
		}
		for _, id := range tc.want {
			if !seen[id] {
				t.Fatalf("%s: missing trip %s", tc.usage, id)
			}
		}
	}
}

func TestListNearbyCapacityWarning(t *testing.T) {
	now := time.Now()
	big := searchingTrip("big-group", &pocitos, trip.TypePassenger, now)
	big.PassengerCount = 6
	source := &fakeTrips{searching: []*trip.Trip{
		big,
		searchingTrip("small-group", &pocitos, trip.TypePassenger, now),
	}}
	svc := NewService(source, nil)

	got, err := svc.ListNearby(context.Background(), "d1", plazaIndependencia, driverProfile(profile.UsagePassenger, 4))
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	warnings := map[types.ID]bool{}
	for _, n := range got {
		warnings[n.Trip.ID] = n.CapacityWarning
	}
	if !warnings["big-group"] || warnings["small-group"] {
		t.Fatalf("capacity warnings wrong: %+v", warnings)
	}
}

func TestListNearbyWithIndexPrefilter(t *testing.T) {
	now := time.Now()
	source := &fakeTrips{searching: []*trip.Trip{
		searchingTrip("indexed", &pocitos, trip.TypePassenger, now),
		searchingTrip("not-indexed", &plazaIndependencia, trip.TypePassenger, now),
	}}
	index := NewMemoryIndex()
	if err := index.Add(context.Background(), "indexed", pocitos); err != nil {
		t.Fatalf("index add: %v", err)
	}
	svc := NewService(source, index)

	// Only trips present in the index pass the prefilter.
	got, err := svc.ListNearby(context.Background(), "d1", plazaIndependencia, driverProfile(profile.UsageBoth, 4))
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].Trip.ID != "indexed" {
		t.Fatalf("index prefilter wrong: %+v", got)
	}
}
