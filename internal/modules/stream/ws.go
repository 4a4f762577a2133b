// README: Websocket session writer for hub subscriptions.
package stream

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WSSession serializes writes to one websocket connection.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewWSSession(conn *websocket.Conn) *WSSession {
	return &WSSession{conn: conn}
}

func (s *WSSession) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *WSSession) Close() error {
	return s.conn.Close()
}

// Pump forwards a subscription to the websocket until the subscription ends
// or a write fails. It cancels the subscription on the way out, which is
// idempotent even if the hub already tore it down.
func (s *WSSession) Pump(sub *Subscription) {
	defer sub.Cancel()
	for ev := range sub.C {
		if err := s.Send(ev); err != nil {
			return
		}
	}
}
