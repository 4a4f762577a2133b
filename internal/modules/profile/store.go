// README: Profile store interface and Postgres implementation.
package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rumbo/internal/types"
)

var ErrNotFound = errors.New("profile not found")

type Store interface {
	Get(ctx context.Context, id types.ID) (*Profile, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id types.ID) (*Profile, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, full_name, vehicle_usage, vehicle_type, passenger_capacity, cancelled_trips, rating
        FROM profiles
        WHERE id = $1`, string(id),
	)
	var p Profile
	err := row.Scan(&p.ID, &p.FullName, &p.VehicleUsage, &p.VehicleType, &p.PassengerCapacity, &p.CancelledTrips, &p.Rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
