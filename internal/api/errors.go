package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/store"
)

// abortWithError maps domain errors to HTTP responses.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	var (
		ve *booking.ValidationError
		se *backend.StatusError
	)
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.Is(err, booking.ErrSessionNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "booking session not found"})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, booking.ErrOperationPending), errors.Is(err, booking.ErrInvalidTransition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &se):
		status := se.Code
		if status < 400 || status >= 500 {
			status = http.StatusBadGateway
		}
		msg := se.UserMessage()
		if msg == "" {
			msg = http.StatusText(status)
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn("backend timed out", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{"error": "the reservation service did not answer in time"})
	default:
		h.logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Debug("rejecting malformed request", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
}
