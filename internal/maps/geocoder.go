// README: Address geocoding via the Google Maps API.
package maps

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"rumbo/internal/types"
)

// Geocoder resolves free-text pickup/destination addresses to coordinates so
// trips can enter the proximity feed. Best-effort: a failed lookup leaves the
// trip without coordinates.
type Geocoder struct {
	client *maps.Client
}

func NewGeocoder(apiKey string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

func (g *Geocoder) Geocode(ctx context.Context, address string) (*types.Point, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no geocoding result for %q", address)
	}
	loc := results[0].Geometry.Location
	return &types.Point{Lat: loc.Lat, Lng: loc.Lng}, nil
}
