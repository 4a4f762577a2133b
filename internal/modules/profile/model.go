// README: Driver/passenger profile read-model sourced from the identity store.
package profile

import "rumbo/internal/types"

// VehicleUsage describes what kind of trips a driver serves.
type VehicleUsage string

const (
	UsagePassenger VehicleUsage = "Pasaje"
	UsageCargo     VehicleUsage = "Carga"
	UsageBoth      VehicleUsage = "Pasaje y Carga"
)

// Profile is read-only from this service's point of view, except for the
// cancelled-trips counter which is incremented inside the trip-cancel
// transaction.
type Profile struct {
	ID                types.ID     `json:"id"`
	FullName          string       `json:"full_name"`
	VehicleUsage      VehicleUsage `json:"vehicle_usage"`
	VehicleType       string       `json:"vehicle_type"`
	PassengerCapacity int          `json:"passenger_capacity"`
	CancelledTrips    int          `json:"cancelled_trips"`
	Rating            float64      `json:"rating"`
}

// Serves reports whether a driver with this usage profile can take a trip of
// the given type ("passenger" or "cargo").
func (u VehicleUsage) Serves(tripType string) bool {
	switch u {
	case UsagePassenger:
		return tripType == "passenger"
	case UsageCargo:
		return tripType == "cargo"
	case UsageBoth:
		return tripType == "passenger" || tripType == "cargo"
	default:
		return false
	}
}
