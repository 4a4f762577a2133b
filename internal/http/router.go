// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"rumbo/internal/http/handlers"
	"rumbo/internal/http/middleware"
	"rumbo/internal/infra"
	"rumbo/internal/modules/chat"
	"rumbo/internal/modules/matching"
	"rumbo/internal/modules/profile"
	"rumbo/internal/modules/stream"
	"rumbo/internal/modules/trip"
)

type RouterDeps struct {
	Trips    *trip.Service
	Matcher  *matching.Service
	Chat     *chat.Service
	Hub      *stream.Hub
	Profiles profile.Store
	Verifier infra.TokenVerifier
	Log      *logrus.Logger
}

func NewRouter(deps RouterDeps) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log), middleware.Metrics())

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier))

	tripHandler := handlers.NewTripHandler(deps.Trips)
	api.POST("/trips", tripHandler.Create)
	api.GET("/trips/active", tripHandler.Active)
	api.GET("/trips/:id", tripHandler.Get)
	api.POST("/trips/:id/accept", tripHandler.Accept)
	api.POST("/trips/:id/arrive", tripHandler.Arrive)
	api.POST("/trips/:id/start", tripHandler.Start)
	api.POST("/trips/:id/complete", tripHandler.Complete)
	api.POST("/trips/:id/cancel", tripHandler.Cancel)
	api.POST("/trips/:id/archive", tripHandler.Archive)
	api.PUT("/trips/:id/location", tripHandler.UpdateLocation)

	offerHandler := handlers.NewOfferHandler(deps.Trips)
	api.POST("/trips/:id/offers", offerHandler.Submit)
	api.GET("/trips/:id/offers", offerHandler.List)
	api.GET("/offers/sent", offerHandler.Sent)

	matchingHandler := handlers.NewMatchingHandler(deps.Matcher, deps.Profiles)
	api.GET("/trips/nearby", matchingHandler.Nearby)

	chatHandler := handlers.NewChatHandler(deps.Chat, deps.Log)
	api.POST("/trips/:id/messages", chatHandler.Send)
	api.GET("/trips/:id/messages", chatHandler.List)
	api.POST("/trips/:id/messages/read", chatHandler.MarkRead)
	api.GET("/trips/:id/messages/unread", chatHandler.Unread)
	api.GET("/trips/:id/messages/subscribe", chatHandler.Subscribe)

	streamHandler := handlers.NewStreamHandler(deps.Trips, deps.Hub, deps.Log)
	api.GET("/trips/:id/updates", streamHandler.Updates)

	return r
}
