// README: Trip lifecycle handlers (create, state transitions, cancel, archive).
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rumbo/internal/http/middleware"
	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

type TripHandler struct {
	trips *trip.Service
}

func NewTripHandler(svc *trip.Service) *TripHandler {
	return &TripHandler{trips: svc}
}

type createTripReq struct {
	TripType           string       `json:"trip_type"`
	PassengerCount     int          `json:"passenger_count"`
	CargoDescription   string       `json:"cargo_description"`
	PickupAddress      string       `json:"pickup_address"`
	DestinationAddress string       `json:"destination_address"`
	PickupCoords       *types.Point `json:"pickup_coords"`
	DestinationCoords  *types.Point `json:"destination_coords"`
}

func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	t, err := h.trips.Create(c.Request.Context(), trip.CreateCommand{
		PassengerID:        types.ID(middleware.UserID(c)),
		TripType:           trip.TripType(req.TripType),
		PassengerCount:     req.PassengerCount,
		CargoDescription:   req.CargoDescription,
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		PickupCoords:       req.PickupCoords,
		DestinationCoords:  req.DestinationCoords,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, t)
}

func (h *TripHandler) Get(c *gin.Context) {
	t, err := h.trips.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

// Active returns the caller's current trip in the given role, 404 if none.
func (h *TripHandler) Active(c *gin.Context) {
	actor := trip.Actor(c.Query("as"))
	if actor != trip.ActorPassenger && actor != trip.ActorDriver {
		writeError(c, http.StatusBadRequest, "as must be passenger or driver")
		return
	}
	t, err := h.trips.ActiveTripFor(c.Request.Context(), types.ID(middleware.UserID(c)), actor)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

type acceptOfferReq struct {
	OfferID string `json:"offer_id"`
}

func (h *TripHandler) Accept(c *gin.Context) {
	var req acceptOfferReq
	if err := c.ShouldBindJSON(&req); err != nil || req.OfferID == "" {
		writeError(c, http.StatusBadRequest, "missing offer_id")
		return
	}
	t, err := h.trips.AcceptOffer(c.Request.Context(), trip.AcceptOfferCommand{
		TripID:      types.ID(c.Param("id")),
		OfferID:     types.ID(req.OfferID),
		PassengerID: types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, t)
}

func (h *TripHandler) Arrive(c *gin.Context) {
	err := h.trips.MarkArrival(c.Request.Context(), trip.ArriveCommand{
		TripID:   types.ID(c.Param("id")),
		DriverID: types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": trip.StatusDriverAtPickup})
}

func (h *TripHandler) Start(c *gin.Context) {
	err := h.trips.ConfirmStart(c.Request.Context(), trip.StartCommand{
		TripID:      types.ID(c.Param("id")),
		PassengerID: types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": trip.StatusInProgress})
}

func (h *TripHandler) Complete(c *gin.Context) {
	err := h.trips.Complete(c.Request.Context(), trip.CompleteCommand{
		TripID:   types.ID(c.Param("id")),
		DriverID: types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": trip.StatusCompleted})
}

type cancelReq struct {
	As string `json:"as"`
}

func (h *TripHandler) Cancel(c *gin.Context) {
	var req cancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.trips.Cancel(c.Request.Context(), trip.CancelCommand{
		TripID:  types.ID(c.Param("id")),
		Actor:   trip.Actor(req.As),
		ActorID: types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"cancelled": true})
}

type archiveReq struct {
	As string `json:"as"`
}

func (h *TripHandler) Archive(c *gin.Context) {
	var req archiveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	err := h.trips.Archive(c.Request.Context(), trip.ArchiveCommand{
		TripID:  types.ID(c.Param("id")),
		Actor:   trip.Actor(req.As),
		ActorID: types.ID(middleware.UserID(c)),
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"archived": true})
}

type locationReq struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	ObservedAt time.Time `json:"observed_at"`
}

// UpdateLocation ingests one driver position sample over HTTP. Samples also
// arrive over MQTT; both paths share the same last-writer-wins command.
func (h *TripHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ObservedAt.IsZero() {
		req.ObservedAt = time.Now()
	}
	applied, err := h.trips.UpdateDriverLocation(c.Request.Context(), trip.LocationCommand{
		TripID:     types.ID(c.Param("id")),
		DriverID:   types.ID(middleware.UserID(c)),
		Position:   types.Point{Lat: req.Lat, Lng: req.Lng},
		ObservedAt: req.ObservedAt,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"applied": applied})
}
