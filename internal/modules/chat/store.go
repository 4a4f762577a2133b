// README: Message store interface and Postgres implementation.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rumbo/internal/types"
)

var (
	ErrNotFound  = errors.New("trip not found")
	ErrForbidden = errors.New("not a participant of this trip")
	ErrEmpty     = errors.New("empty message")
)

// Store persists trip messages. ListAfter must return messages in ascending
// CreatedAt order regardless of append order, which is what lets a subscriber
// observe a monotonic stream even when the network reorders sends.
type Store interface {
	Append(ctx context.Context, m *Message) error
	ListAfter(ctx context.Context, tripID types.ID, after time.Time) ([]*Message, error)
}

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, m *Message) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO messages (id, trip_id, sender_id, sender_name, text, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`,
		string(m.ID), string(m.TripID), string(m.SenderID), m.SenderName, m.Text, m.CreatedAt,
	)
	return err
}

func (s *PostgresStore) ListAfter(ctx context.Context, tripID types.ID, after time.Time) ([]*Message, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, trip_id, sender_id, sender_name, text, created_at
        FROM messages
        WHERE trip_id = $1 AND created_at > $2
        ORDER BY created_at ASC, id ASC`,
		string(tripID), after,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.TripID, &m.SenderID, &m.SenderName, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
