// README: Per-trip chat message entity.
package chat

import (
	"time"

	"rumbo/internal/types"
)

// Message is one entry of a trip's append-only log. Messages are never edited
// or deleted; CreatedAt is the ordering key.
type Message struct {
	ID         types.ID  `json:"id"`
	TripID     types.ID  `json:"trip_id"`
	SenderID   types.ID  `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
