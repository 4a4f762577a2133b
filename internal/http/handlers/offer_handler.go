// README: Offer handlers (submit, list per trip, driver's sent offers).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rumbo/internal/http/middleware"
	"rumbo/internal/modules/trip"
	"rumbo/internal/types"
)

type OfferHandler struct {
	trips *trip.Service
}

func NewOfferHandler(svc *trip.Service) *OfferHandler {
	return &OfferHandler{trips: svc}
}

type submitOfferReq struct {
	Price    float64 `json:"price"`
	Override bool    `json:"override"`
}

func (h *OfferHandler) Submit(c *gin.Context) {
	var req submitOfferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.trips.SubmitOffer(c.Request.Context(), trip.SubmitOfferCommand{
		TripID:   types.ID(c.Param("id")),
		DriverID: types.ID(middleware.UserID(c)),
		Price:    req.Price,
		Override: req.Override,
	})
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OfferHandler) List(c *gin.Context) {
	mode := trip.OfferSort(c.DefaultQuery("sort", string(trip.SortPriceAsc)))
	switch mode {
	case trip.SortPriceAsc, trip.SortPriceDesc, trip.SortRatingDesc:
	default:
		writeError(c, http.StatusBadRequest, "unknown sort mode")
		return
	}
	offers, err := h.trips.ListOffers(c.Request.Context(), types.ID(c.Param("id")), mode)
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offers": offers})
}

// Sent returns the caller's pending and rejected offers joined with their
// trips. Accepted offers are not listed here; those trips show up as the
// driver's active trip instead.
func (h *OfferHandler) Sent(c *gin.Context) {
	sent, err := h.trips.ListSentOffers(c.Request.Context(), types.ID(middleware.UserID(c)))
	if err != nil {
		writeTripError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"offers": sent})
}
