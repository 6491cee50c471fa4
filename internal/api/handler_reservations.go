package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetReservation returns one reservation from the backend.
func (h *Handler) GetReservation(c *gin.Context) {
	res, err := h.backend.GetReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CancelReservation cancels a reservation.
func (h *Handler) CancelReservation(c *gin.Context) {
	res, err := h.backend.CancelReservation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
