// README: Per-trip chat handlers (send, history, read marker, live feed).
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"rumbo/internal/http/middleware"
	"rumbo/internal/modules/chat"
	"rumbo/internal/types"
)

type ChatHandler struct {
	chat     *chat.Service
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewChatHandler(svc *chat.Service, log *logrus.Logger) *ChatHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChatHandler{
		chat: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		log: log,
	}
}

type sendMessageReq struct {
	Text string `json:"text"`
}

func (h *ChatHandler) Send(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	m, err := h.chat.Send(c.Request.Context(), chat.SendCommand{
		TripID:   types.ID(c.Param("id")),
		SenderID: types.ID(middleware.UserID(c)),
		Text:     req.Text,
	})
	if err != nil {
		writeChatError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, m)
}

func (h *ChatHandler) List(c *gin.Context) {
	after, ok := parseAfter(c)
	if !ok {
		return
	}
	msgs, err := h.chat.List(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.UserID(c)), after)
	if err != nil {
		writeChatError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"messages": msgs})
}

// MarkRead records that the caller opened the channel now; Unread counts
// messages from the other side after that marker.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	err := h.chat.MarkOpened(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.UserID(c)))
	if err != nil {
		writeChatError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"read": true})
}

func (h *ChatHandler) Unread(c *gin.Context) {
	n, err := h.chat.Unread(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.UserID(c)))
	if err != nil {
		writeChatError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"unread": n})
}

// Subscribe upgrades to a websocket and streams message batches from the
// given cursor onward. The feed closes when the trip reaches a terminal
// state or the client goes away.
func (h *ChatHandler) Subscribe(c *gin.Context) {
	after, ok := parseAfter(c)
	if !ok {
		return
	}
	feed, err := h.chat.Subscribe(c.Request.Context(), types.ID(c.Param("id")), types.ID(middleware.UserID(c)), after)
	if err != nil {
		writeChatError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		feed.Cancel()
		return
	}
	defer conn.Close()
	defer feed.Cancel()

	// Reader goroutine only to detect the client closing the socket.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msgs, open := <-feed.C:
			if !open {
				return
			}
			if err := conn.WriteJSON(msgs); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func parseAfter(c *gin.Context) (time.Time, bool) {
	raw := c.Query("after")
	if raw == "" {
		return time.Time{}, true
	}
	after, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, "after must be RFC3339")
		return time.Time{}, false
	}
	return after, true
}
