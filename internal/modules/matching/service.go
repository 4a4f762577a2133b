// README: Matching service: ranked nearby-trip feed for drivers.
package matching

import (
	"context"
	"sort"
	"time"

	"rumbo/internal/geo"
	"rumbo/internal/modules/profile"
	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

// TripSource is the slice of the trip service the matcher needs.
type TripSource interface {
	ListSearching(ctx context.Context) ([]*trip.Trip, error)
	OfferedTripIDs(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error)
}

// GeoIndex narrows the candidate set by radius. Optional; without one the
// matcher distance-filters the full searching set itself.
type GeoIndex interface {
	Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error)
}

type Service struct {
	trips TripSource
	index GeoIndex
	clock func() time.Time
}

func NewService(trips TripSource, index GeoIndex) *Service {
	return &Service{trips: trips, index: index, clock: time.Now}
}

// ListNearby produces the driver's feed of candidate trips:
// searching and unexpired, not already offered on by this driver, compatible
// with the vehicle usage profile, within MaxPickupDistanceKm of the driver,
// sorted by distance then by creation time. Trips without pickup coordinates
// never qualify.
func (s *Service) ListNearby(ctx context.Context, driverID types.ID, at types.Point, prof *profile.Profile) ([]*NearbyTrip, error) {
	candidates, err := s.trips.ListSearching(ctx)
	if err != nil {
		return nil, err
	}
	offered, err := s.trips.OfferedTripIDs(ctx, driverID)
	if err != nil {
		return nil, err
	}

	var withinRadius map[types.ID]struct{}
	if s.index != nil {
		ids, err := s.index.Nearby(ctx, at, MaxPickupDistanceKm)
		if err == nil {
			withinRadius = make(map[types.ID]struct{}, len(ids))
			for _, id := range ids {
				withinRadius[id] = struct{}{}
			}
		}
		// On index failure fall through to the exact distance check alone.
	}

	now := s.clock()
	out := make([]*NearbyTrip, 0, len(candidates))
	for _, t := range candidates {
		if !t.ExpiresAt.After(now) {
			continue
		}
		if _, ok := offered[t.ID]; ok {
			continue
		}
		if !prof.VehicleUsage.Serves(string(t.TripType)) {
			continue
		}
		if t.PickupCoords == nil {
			continue
		}
		if withinRadius != nil {
			if _, ok := withinRadius[t.ID]; !ok {
				continue
			}
		}
		d := geo.HaversineKm(at, *t.PickupCoords)
		if d > MaxPickupDistanceKm {
			continue
		}
		out = append(out, &NearbyTrip{
			Trip:            t,
			DistanceKm:      d,
			Distance:        geo.FormatDistance(d),
			CapacityWarning: t.TripType == trip.TypePassenger && t.PassengerCount > prof.PassengerCapacity,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Trip.CreatedAt.Before(out[j].Trip.CreatedAt)
	})
	return out, nil
}
