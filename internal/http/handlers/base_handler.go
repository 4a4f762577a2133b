// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rumbo/internal/modules/chat"
	"rumbo/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeTripError maps module sentinel errors to HTTP statuses. Conflict-class
// errors carry a kind so clients can tell a lost race from a capacity warning.
func writeTripError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trip.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, trip.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, trip.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, trip.ErrCapacityMismatch):
		writeJSON(c, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "capacity_mismatch"})
	case errors.Is(err, trip.ErrDuplicateOffer):
		writeJSON(c, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "duplicate_offer"})
	case errors.Is(err, trip.ErrInvalidState), errors.Is(err, trip.ErrConflict):
		writeJSON(c, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "invalid_state"})
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrEmpty):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
