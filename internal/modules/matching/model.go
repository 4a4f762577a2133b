// README: Nearby-trip feed entries for the driver's browse view.
package matching

import (
	"rumbo/internal/modules/trip"
)

// MaxPickupDistanceKm bounds the nearby feed: trips farther than this from
// the driver never surface.
const MaxPickupDistanceKm = 5.0

// NearbyTrip is one entry of the ranked feed: the searching trip plus its
// distance from the driver, raw and formatted for display.
type NearbyTrip struct {
	Trip       *trip.Trip `json:"trip"`
	DistanceKm float64    `json:"distance_km"`
	Distance   string     `json:"distance"`
	// CapacityWarning flags a passenger trip whose headcount exceeds the
	// driver's vehicle capacity. Advisory only; the driver may still offer
	// with an explicit override.
	CapacityWarning bool `json:"capacity_warning,omitempty"`
}
