package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/gate"
)

type spotRequest struct {
	SpotID string `json:"spotId" binding:"required"`
}

type dayRequest struct {
	Day string `json:"day" binding:"required"`
}

type timeRequest struct {
	Time string `json:"time" binding:"required"`
}

type vehicleRequest struct {
	Plate       string `json:"plate"`
	VehicleType string `json:"vehicleType"`
}

func owner(c *gin.Context) string {
	p, _ := gate.Principal(c)
	if p == nil {
		return ""
	}
	return p.Subject
}

func (h *Handler) respondView(c *gin.Context, status int, view booking.View, err error) {
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(status, view)
}

// StartBooking opens a new wizard session for the caller.
func (h *Handler) StartBooking(c *gin.Context) {
	view, err := h.bookings.Start(c.Request.Context(), owner(c))
	h.respondView(c, http.StatusCreated, view, err)
}

// GetBooking returns the current state of a session.
func (h *Handler) GetBooking(c *gin.Context) {
	view, err := h.bookings.Get(c.Request.Context(), c.Param("id"), owner(c))
	h.respondView(c, http.StatusOK, view, err)
}

// DiscardBooking deletes a session.
func (h *Handler) DiscardBooking(c *gin.Context) {
	if err := h.bookings.Discard(c.Request.Context(), c.Param("id"), owner(c)); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectSpot takes a spot picked on the map. Only spots the catalog
// currently reports as available can be chosen.
func (h *Handler) SelectSpot(c *gin.Context) {
	var req spotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	spot, ok, err := h.lookupSpot(c, req.SpotID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !ok {
		h.abortWithError(c, &booking.ValidationError{Field: "spot", Reason: "unknown spot"})
		return
	}
	if spot.Status != booking.SpotAvailable {
		h.abortWithError(c, &booking.ValidationError{Field: "spot", Reason: "spot is not available"})
		return
	}

	view, err := h.bookings.SelectSpot(c.Request.Context(), c.Param("id"), owner(c), &spot)
	h.respondView(c, http.StatusOK, view, err)
}

// SelectDay records the day and loads its availability.
func (h *Handler) SelectDay(c *gin.Context) {
	var req dayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := h.bookings.SelectDay(c.Request.Context(), c.Param("id"), owner(c), req.Day)
	h.respondView(c, http.StatusOK, view, err)
}

// SelectStartTime picks the start slot.
func (h *Handler) SelectStartTime(c *gin.Context) {
	var req timeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := h.bookings.SelectStartTime(c.Request.Context(), c.Param("id"), owner(c), req.Time)
	h.respondView(c, http.StatusOK, view, err)
}

// SelectEndTime picks the end slot.
func (h *Handler) SelectEndTime(c *gin.Context) {
	var req timeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := h.bookings.SelectEndTime(c.Request.Context(), c.Param("id"), owner(c), req.Time)
	h.respondView(c, http.StatusOK, view, err)
}

// EnterVehicle records plate and vehicle type. Empty fields are left to
// the wizard so they come back as field errors.
func (h *Handler) EnterVehicle(c *gin.Context) {
	var req vehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	view, err := h.bookings.EnterVehicle(c.Request.Context(), c.Param("id"), owner(c), req.Plate, req.VehicleType)
	h.respondView(c, http.StatusOK, view, err)
}

// SubmitBooking sends the reservation.
func (h *Handler) SubmitBooking(c *gin.Context) {
	view, err := h.bookings.Submit(c.Request.Context(), c.Param("id"), owner(c))
	h.respondView(c, http.StatusOK, view, err)
}

// RetryBooking returns a failed submission to confirmation.
func (h *Handler) RetryBooking(c *gin.Context) {
	view, err := h.bookings.Retry(c.Request.Context(), c.Param("id"), owner(c))
	h.respondView(c, http.StatusOK, view, err)
}

// BackBooking moves to the previous step.
func (h *Handler) BackBooking(c *gin.Context) {
	view, err := h.bookings.Back(c.Request.Context(), c.Param("id"), owner(c))
	h.respondView(c, http.StatusOK, view, err)
}

// ResetBooking starts the session over.
func (h *Handler) ResetBooking(c *gin.Context) {
	view, err := h.bookings.Reset(c.Request.Context(), c.Param("id"), owner(c))
	h.respondView(c, http.StatusOK, view, err)
}
