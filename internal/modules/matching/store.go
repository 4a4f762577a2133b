// README: Pickup geo index backed by Redis GEO.
package matching

import (
	"context"

	"github.com/redis/go-redis/v9"

	"rumbo/internal/types"
)

const pickupGeoKey = "matching:pickups"

// RedisIndex keeps searching-trip pickup points in a Redis GEO set so the
// nearby feed can prefilter by radius before hydrating trips from the store.
type RedisIndex struct {
	redis *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{redis: client}
}

func (s *RedisIndex) Add(ctx context.Context, tripID types.ID, pickup types.Point) error {
	return s.redis.GeoAdd(ctx, pickupGeoKey, &redis.GeoLocation{
		Name:      string(tripID),
		Longitude: pickup.Lng,
		Latitude:  pickup.Lat,
	}).Err()
}

func (s *RedisIndex) Remove(ctx context.Context, tripID types.ID) error {
	return s.redis.ZRem(ctx, pickupGeoKey, string(tripID)).Err()
}

// Nearby returns trip IDs within radiusKm of p, closest first.
func (s *RedisIndex) Nearby(ctx context.Context, p types.Point, radiusKm float64) ([]types.ID, error) {
	results, err := s.redis.GeoSearch(ctx, pickupGeoKey, &redis.GeoSearchQuery{
		Longitude:  p.Lng,
		Latitude:   p.Lat,
		Radius:     radiusKm,
		RadiusUnit: "km",
		Sort:       "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]types.ID, len(results))
	for i, r := range results {
		ids[i] = types.ID(r)
	}
	return ids, nil
}
