// README: Postgres store; multi-record operations run in a single transaction.
package trip

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rumbo/internal/types"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const tripColumns = `
    id, passenger_id, driver_id, status, trip_type, passenger_count, cargo_description,
    pickup_address, destination_address, pickup_lat, pickup_lng, dest_lat, dest_lng,
    driver_lat, driver_lng, driver_location_at, offer_price,
    created_at, expires_at, cancelled_by, active_for_driver, active_for_passenger`

func (s *PostgresStore) CreateTrip(ctx context.Context, t *Trip) error {
	var pickupLat, pickupLng, destLat, destLng *float64
	if t.PickupCoords != nil {
		pickupLat, pickupLng = &t.PickupCoords.Lat, &t.PickupCoords.Lng
	}
	if t.DestinationCoords != nil {
		destLat, destLng = &t.DestinationCoords.Lat, &t.DestinationCoords.Lng
	}
	_, err := s.db.Exec(ctx, `
        INSERT INTO trips (
            id, passenger_id, status, trip_type, passenger_count, cargo_description,
            pickup_address, destination_address, pickup_lat, pickup_lng, dest_lat, dest_lng,
            created_at, expires_at, active_for_driver, active_for_passenger
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		string(t.ID), string(t.PassengerID), string(t.Status), string(t.TripType),
		t.PassengerCount, t.CargoDescription,
		t.PickupAddress, t.DestinationAddress, pickupLat, pickupLng, destLat, destLng,
		t.CreatedAt, t.ExpiresAt, t.ActiveForDriver, t.ActiveForPassenger,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*Trip, error) {
	var t Trip
	var driverID, cargoDesc, cancelledBy *string
	var pickupLat, pickupLng, destLat, destLng, driverLat, driverLng, offerPrice *float64
	var driverLocAt *time.Time

	err := row.Scan(
		&t.ID, &t.PassengerID, &driverID, &t.Status, &t.TripType, &t.PassengerCount, &cargoDesc,
		&t.PickupAddress, &t.DestinationAddress, &pickupLat, &pickupLng, &destLat, &destLng,
		&driverLat, &driverLng, &driverLocAt, &offerPrice,
		&t.CreatedAt, &t.ExpiresAt, &cancelledBy, &t.ActiveForDriver, &t.ActiveForPassenger,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if driverID != nil {
		id := types.ID(*driverID)
		t.DriverID = &id
	}
	if cargoDesc != nil {
		t.CargoDescription = *cargoDesc
	}
	if cancelledBy != nil {
		a := Actor(*cancelledBy)
		t.CancelledBy = &a
	}
	if pickupLat != nil && pickupLng != nil {
		t.PickupCoords = &types.Point{Lat: *pickupLat, Lng: *pickupLng}
	}
	if destLat != nil && destLng != nil {
		t.DestinationCoords = &types.Point{Lat: *destLat, Lng: *destLng}
	}
	if driverLat != nil && driverLng != nil {
		t.DriverLocation = &types.Point{Lat: *driverLat, Lng: *driverLng}
	}
	t.DriverLocationAt = driverLocAt
	t.OfferPrice = offerPrice
	return &t, nil
}

func (s *PostgresStore) GetTrip(ctx context.Context, id types.ID) (*Trip, error) {
	row := s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, string(id))
	return scanTrip(row)
}

func (s *PostgresStore) ListSearching(ctx context.Context) ([]*Trip, error) {
	rows, err := s.db.Query(ctx, `SELECT `+tripColumns+` FROM trips WHERE status = $1`, string(StatusSearching))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ActiveTripFor(ctx context.Context, userID types.ID, actor Actor) (*Trip, error) {
	var row pgx.Row
	if actor == ActorDriver {
		row = s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips
            WHERE driver_id = $1 AND active_for_driver
            ORDER BY created_at DESC LIMIT 1`, string(userID))
	} else {
		row = s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips
            WHERE passenger_id = $1 AND active_for_passenger
            ORDER BY created_at DESC LIMIT 1`, string(userID))
	}
	return scanTrip(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE trips SET status = $1 WHERE id = $2 AND status = $3`,
		string(to), string(id), string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) AcceptOffer(ctx context.Context, tripID, offerID types.ID) (*Trip, *Offer, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, string(tripID))
	t, err := scanTrip(row)
	if err != nil {
		return nil, nil, err
	}
	if t.Status != StatusSearching {
		return nil, nil, ErrInvalidState
	}

	var o Offer
	err = tx.QueryRow(ctx, `
        SELECT id, trip_id, driver_id, driver_name, vehicle_type, rating, price, status, created_at
        FROM offers WHERE id = $1 AND trip_id = $2 FOR UPDATE`,
		string(offerID), string(tripID),
	).Scan(&o.ID, &o.TripID, &o.DriverID, &o.DriverName, &o.VehicleType, &o.Rating, &o.Price, &o.Status, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if o.Status != OfferPending {
		return nil, nil, ErrConflict
	}

	if _, err := tx.Exec(ctx, `UPDATE offers SET status = $1 WHERE id = $2`,
		string(OfferAccepted), string(offerID)); err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE offers SET status = $1 WHERE trip_id = $2 AND id <> $3`,
		string(OfferRejected), string(tripID), string(offerID)); err != nil {
		return nil, nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE trips SET status = $1, driver_id = $2, offer_price = $3 WHERE id = $4`,
		string(StatusDriverEnRoute), string(o.DriverID), o.Price, string(tripID)); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	o.Status = OfferAccepted
	t.Status = StatusDriverEnRoute
	t.DriverID = &o.DriverID
	t.OfferPrice = &o.Price
	return t, &o, nil
}

func (s *PostgresStore) CancelActive(ctx context.Context, tripID, driverID types.ID) (*Trip, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1 FOR UPDATE`, string(tripID))
	t, err := scanTrip(row)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusDriverEnRoute && t.Status != StatusDriverAtPickup {
		return nil, ErrInvalidState
	}
	if t.DriverID == nil || *t.DriverID != driverID {
		return nil, ErrForbidden
	}

	if _, err := tx.Exec(ctx, `
        UPDATE trips SET status = $1, cancelled_by = $2,
            active_for_driver = FALSE, active_for_passenger = FALSE
        WHERE id = $3`,
		string(StatusCancelled), string(ActorDriver), string(tripID)); err != nil {
		return nil, err
	}
	tag, err := tx.Exec(ctx, `UPDATE profiles SET cancelled_trips = cancelled_trips + 1 WHERE id = $1`,
		string(driverID))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() != 1 {
		return nil, ErrConflict
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	by := ActorDriver
	t.Status = StatusCancelled
	t.CancelledBy = &by
	t.ActiveForDriver = false
	t.ActiveForPassenger = false
	return t, nil
}

func (s *PostgresStore) DeleteSearching(ctx context.Context, tripID types.ID, expiredBefore *time.Time) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status string
	var expiresAt time.Time
	err = tx.QueryRow(ctx, `SELECT status, expires_at FROM trips WHERE id = $1 FOR UPDATE`,
		string(tripID)).Scan(&status, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if Status(status) != StatusSearching {
		return ErrInvalidState
	}
	if expiredBefore != nil && expiresAt.After(*expiredBefore) {
		return ErrConflict
	}
	// Offers cascade with the trip row.
	if _, err := tx.Exec(ctx, `DELETE FROM trips WHERE id = $1`, string(tripID)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Archive(ctx context.Context, tripID types.ID, actor Actor) error {
	column := "active_for_passenger"
	if actor == ActorDriver {
		column = "active_for_driver"
	}
	tag, err := s.db.Exec(ctx, `UPDATE trips SET `+column+` = FALSE WHERE id = $1`, string(tripID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateDriverLocation(ctx context.Context, tripID types.ID, p types.Point, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE trips SET driver_lat = $1, driver_lng = $2, driver_location_at = $3
        WHERE id = $4
          AND status IN ($5, $6, $7)
          AND (driver_location_at IS NULL OR driver_location_at < $3)`,
		p.Lat, p.Lng, at, string(tripID),
		string(StatusDriverEnRoute), string(StatusDriverAtPickup), string(StatusInProgress),
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}
	// Distinguish a stale sample from a trip that is gone or inactive.
	var status string
	err = s.db.QueryRow(ctx, `SELECT status FROM trips WHERE id = $1`, string(tripID)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}
	if !Status(status).Active() {
		return false, ErrInvalidState
	}
	return false, nil
}

func (s *PostgresStore) CreateOffer(ctx context.Context, o *Offer) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var status string
	err = tx.QueryRow(ctx, `SELECT status FROM trips WHERE id = $1 FOR UPDATE`,
		string(o.TripID)).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if Status(status) != StatusSearching {
		return ErrInvalidState
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM offers WHERE trip_id = $1 AND driver_id = $2)`,
		string(o.TripID), string(o.DriverID)).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrDuplicateOffer
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO offers (id, trip_id, driver_id, driver_name, vehicle_type, rating, price, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		string(o.ID), string(o.TripID), string(o.DriverID), o.DriverName, o.VehicleType,
		o.Rating, o.Price, string(o.Status), o.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListOffers(ctx context.Context, tripID types.ID) ([]*Offer, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, driver_id, driver_name, vehicle_type, rating, price, status, created_at
        FROM offers WHERE trip_id = $1 ORDER BY created_at ASC, id ASC`, string(tripID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (s *PostgresStore) ListOffersByDriver(ctx context.Context, driverID types.ID) ([]*Offer, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, driver_id, driver_name, vehicle_type, rating, price, status, created_at
        FROM offers
        WHERE driver_id = $1 AND status IN ($2, $3)
        ORDER BY created_at DESC`,
		string(driverID), string(OfferPending), string(OfferRejected))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (s *PostgresStore) OfferedTripIDs(ctx context.Context, driverID types.ID) (map[types.ID]struct{}, error) {
	rows, err := s.db.Query(ctx, `SELECT trip_id FROM offers WHERE driver_id = $1`, string(driverID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[types.ID]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[types.ID(id)] = struct{}{}
	}
	return out, rows.Err()
}

func collectOffers(rows pgx.Rows) ([]*Offer, error) {
	var out []*Offer
	for rows.Next() {
		var o Offer
		if err := rows.Scan(&o.ID, &o.TripID, &o.DriverID, &o.DriverName, &o.VehicleType,
			&o.Rating, &o.Price, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}
