package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type clientConfigResponse struct {
	VAPIDPublicKey string `json:"vapidPublicKey,omitempty"`
	MapAccessToken string `json:"mapAccessToken,omitempty"`
	MapStyleURL    string `json:"mapStyleUrl,omitempty"`
	LoginPath      string `json:"loginPath"`
}

// GetClientConfig returns the public settings the web client needs: the
// VAPID public key for push and the map provider token.
func (h *Handler) GetClientConfig(c *gin.Context) {
	resp := clientConfigResponse{
		MapAccessToken: h.cfg.Map.AccessToken,
		MapStyleURL:    h.cfg.Map.StyleURL,
		LoginPath:      h.cfg.Auth.LoginPath,
	}
	if h.webpush != nil {
		resp.VAPIDPublicKey = h.webpush.VAPIDPublicKey
	}
	c.JSON(http.StatusOK, resp)
}

// GetVAPIDPublicKey returns the VAPID public key to the client.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vapid keys are not configured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
