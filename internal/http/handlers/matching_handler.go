// README: Nearby-trip feed handler for drivers.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rumbo/internal/http/middleware"
	"rumbo/internal/modules/matching"
	"rumbo/internal/modules/profile"
	"rumbo/internal/types"
)

type MatchingHandler struct {
	matcher  *matching.Service
	profiles profile.Store
}

func NewMatchingHandler(matcher *matching.Service, profiles profile.Store) *MatchingHandler {
	return &MatchingHandler{matcher: matcher, profiles: profiles}
}

// Nearby returns searching trips within pickup range of the driver's
// position, given as lat/lng query params.
func (h *MatchingHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}

	driverID := types.ID(middleware.UserID(c))
	prof, err := h.profiles.Get(c.Request.Context(), driverID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			writeError(c, http.StatusForbidden, "no driver profile")
			return
		}
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}

	trips, err := h.matcher.ListNearby(c.Request.Context(), driverID, types.Point{Lat: lat, Lng: lng}, prof)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}
