// README: Shared identifier and coordinate types used across modules.
package types

// ID is an opaque entity identifier. The identity provider issues user IDs;
// trip, offer and message IDs come from the local generator.
type ID string

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
