package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"parking-reservation-backend/internal/auth"
	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/gate"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Principal *auth.Principal `json:"principal"`
	Home      string          `json:"home,omitempty"`
}

func (h *Handler) sessionResponse(p *auth.Principal) sessionResponse {
	home, _ := h.routes.Home(p.Role)
	return sessionResponse{Principal: p, Home: home}
}

// Login exchanges credentials for a backend token and stores it in the
// session cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	resp, err := h.backend.Login(c.Request.Context(), backend.Credentials{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	p, err := h.decoder.Decode(resp.Token)
	if err != nil {
		h.logger.Error("backend issued an unusable token", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "login failed"})
		return
	}

	maxAge := 0
	if !p.ExpiresAt.IsZero() {
		maxAge = int(p.ExpiresAt.Sub(h.now()).Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, resp.Token, maxAge, "/", "", c.Request.TLS != nil, true)

	h.logger.Info("user logged in", zap.String("subject", p.Subject), zap.String("role", p.Role))
	c.JSON(http.StatusOK, h.sessionResponse(p))
}

// Logout drops the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.Auth.CookieName, "", -1, "/", "", c.Request.TLS != nil, true)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated caller.
func (h *Handler) Me(c *gin.Context) {
	p, ok := gate.Principal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(p))
}
