// README: Websocket handler for live trip updates (status, driver position).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"rumbo/internal/http/middleware"
	"rumbo/internal/modules/stream"
	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

type StreamHandler struct {
	trips    *trip.Service
	hub      *stream.Hub
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewStreamHandler(trips *trip.Service, hub *stream.Hub, log *logrus.Logger) *StreamHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StreamHandler{
		trips: trips,
		hub:   hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

// Updates streams a trip's lifecycle and position events to one of its
// participants. The hub closes the subscription when the trip ends, which
// ends the pump and the connection.
func (h *StreamHandler) Updates(c *gin.Context) {
	tripID := types.ID(c.Param("id"))
	t, err := h.trips.Get(c.Request.Context(), tripID)
	if err != nil {
		writeTripError(c, err)
		return
	}
	uid := types.ID(middleware.UserID(c))
	if t.PassengerID != uid && (t.DriverID == nil || *t.DriverID != uid) {
		writeError(c, http.StatusForbidden, "not a trip participant")
		return
	}

	sub := h.hub.Subscribe(tripID)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Cancel()
		return
	}

	session := stream.NewWSSession(conn)
	defer session.Close()

	// Drain reads so close frames from the client are noticed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Cancel()
				return
			}
		}
	}()

	session.Pump(sub)
}
