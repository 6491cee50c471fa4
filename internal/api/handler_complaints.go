package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/parse"
)

type fileComplaintRequest struct {
	Plate       string `json:"plate" binding:"required"`
	SpotID      string `json:"spotId"`
	Description string `json:"description"`
}

// ListComplaints returns the complaints visible to the agent.
func (h *Handler) ListComplaints(c *gin.Context) {
	complaints, err := h.backend.ListComplaints(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if complaints == nil {
		complaints = []backend.Complaint{}
	}
	c.JSON(http.StatusOK, complaints)
}

// FileComplaint reports an irregularly parked vehicle.
func (h *Handler) FileComplaint(c *gin.Context) {
	var req fileComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	plate, err := parse.ParsePlate(req.Plate)
	if err != nil {
		h.abortWithError(c, &booking.ValidationError{Field: "plate", Reason: err.Error()})
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		h.abortWithError(c, &booking.ValidationError{Field: "description", Reason: "is required"})
		return
	}

	filed, err := h.backend.FileComplaint(c.Request.Context(), backend.Complaint{
		Plate:       plate.Number,
		SpotID:      strings.TrimSpace(req.SpotID),
		Description: description,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, filed)
}
