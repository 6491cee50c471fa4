package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/parse"
)

type createVehicleRequest struct {
	Plate string `json:"plate" binding:"required"`
	Type  string `json:"type" binding:"required"`
	Model string `json:"model"`
	Color string `json:"color"`
}

// ListVehicles returns the caller's vehicles.
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.backend.ListVehicles(c.Request.Context())
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if vehicles == nil {
		vehicles = []backend.Vehicle{}
	}
	c.JSON(http.StatusOK, vehicles)
}

// CreateVehicle registers a vehicle with a normalized plate.
func (h *Handler) CreateVehicle(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	plate, err := parse.ParsePlate(req.Plate)
	if err != nil {
		h.abortWithError(c, &booking.ValidationError{Field: "plate", Reason: err.Error()})
		return
	}

	created, err := h.backend.CreateVehicle(c.Request.Context(), backend.Vehicle{
		Plate: plate.Number,
		Type:  strings.ToLower(strings.TrimSpace(req.Type)),
		Model: strings.TrimSpace(req.Model),
		Color: strings.TrimSpace(req.Color),
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}
