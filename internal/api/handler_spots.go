package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking-reservation-backend/internal/booking"
)

const spotsPath = "/spots"

type spotsResponse struct {
	Spots     []booking.Spot `json:"spots"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// snapshot returns the catalog. Without the poller the catalog is filled
// from the backend on demand and refetched once older than the cache TTL; a
// failed refetch falls back to the previous snapshot.
func (h *Handler) snapshot(c *gin.Context) ([]booking.Spot, time.Time, error) {
	list, updatedAt := h.catalog.List()
	if !h.snapshotStale(updatedAt) {
		return list, updatedAt, nil
	}
	fetched, err := h.backend.ListSpots(c.Request.Context())
	if err != nil {
		if updatedAt.IsZero() {
			return nil, time.Time{}, err
		}
		h.logger.Warn("failed to refresh spots, serving previous snapshot",
			zap.Time("updatedAt", updatedAt), zap.Error(err))
		return list, updatedAt, nil
	}
	h.catalog.Replace(fetched, h.now().UTC())
	h.RenderSpots(fetched)
	list, updatedAt = h.catalog.List()
	return list, updatedAt, nil
}

func (h *Handler) snapshotStale(updatedAt time.Time) bool {
	if updatedAt.IsZero() {
		return true
	}
	if h.cfg.Spots.Enabled {
		return false
	}
	maxAge := time.Duration(h.cfg.Server.CacheTTLSeconds) * time.Second
	return h.now().Sub(updatedAt) > maxAge
}

func (h *Handler) lookupSpot(c *gin.Context, id string) (booking.Spot, bool, error) {
	if _, _, err := h.snapshot(c); err != nil {
		return booking.Spot{}, false, err
	}
	spot, ok := h.catalog.Lookup(id)
	return spot, ok, nil
}

// GetSpots returns every spot with its last known status.
func (h *Handler) GetSpots(c *gin.Context) {
	list, updatedAt, err := h.snapshot(c)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, spotsResponse{Spots: list, UpdatedAt: updatedAt})
}

// RenderSpots implements spots.Renderer: cached spot listings are dropped so
// the next request sees the new snapshot.
func (h *Handler) RenderSpots([]booking.Spot) {
	h.responses.Invalidate("/api" + spotsPath)
}
