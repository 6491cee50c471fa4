package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gopkg.in/guregu/null.v4"

	"parking-reservation-backend/internal/model"
	"parking-reservation-backend/internal/store"
)

type putSubscriptionRequest struct {
	Endpoint     string   `json:"endpoint" binding:"required"`
	P256DH       string   `json:"p256dh" binding:"required"`
	Auth         string   `json:"auth" binding:"required"`
	WatchedSpots []string `json:"watchedSpots"`
}

type subscriptionResponse struct {
	Endpoint     string   `json:"endpoint"`
	WatchedSpots []string `json:"watchedSpots"`
}

// PutSubscription creates or replaces the caller's push subscription and
// the set of spots it watches.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	existing, err := h.store.GetSubscription(c.Request.Context(), req.Endpoint)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.abortWithError(c, err)
		return
	}
	if existing != nil && !ownedBy(existing, owner(c)) {
		h.abortWithError(c, store.ErrNotFound)
		return
	}

	subscription := model.PushSubscription{
		Endpoint:  req.Endpoint,
		P256DH:    req.P256DH,
		Auth:      req.Auth,
		UserID:    null.NewString(owner(c), owner(c) != ""),
		CreatedAt: h.now().UTC(),
	}
	if err := h.store.SaveSubscription(c.Request.Context(), &subscription, req.WatchedSpots); err != nil {
		h.abortWithError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	existing, err := h.store.GetSubscription(c.Request.Context(), req.Endpoint)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !ownedBy(existing, owner(c)) {
		h.abortWithError(c, store.ErrNotFound)
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		h.abortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam returns a query value without URL decoding. Push endpoints
// are opaque URLs and must be matched byte for byte.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the spots a subscription watches.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}

	subscription, err := h.store.GetSubscription(c.Request.Context(), raw)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !ownedBy(subscription, owner(c)) {
		h.abortWithError(c, store.ErrNotFound)
		return
	}

	spotIDs := make([]string, len(subscription.Spots))
	for i, spot := range subscription.Spots {
		spotIDs[i] = spot.ID
	}

	c.JSON(http.StatusOK, subscriptionResponse{Endpoint: subscription.Endpoint, WatchedSpots: spotIDs})
}

// ownedBy reports whether user may see or change sub. Subscriptions saved
// without a user belong to whoever claims them.
func ownedBy(sub *model.PushSubscription, user string) bool {
	return !sub.UserID.Valid || sub.UserID.String == user
}
