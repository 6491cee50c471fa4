package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"parking-reservation-backend/internal/gate"
	"parking-reservation-backend/internal/live"
	"parking-reservation-backend/internal/mw"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "X-Cache"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// NewRouter creates and configures a new Gin router. hub may be nil.
func NewRouter(h *Handler, hub *live.Hub) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestLogger(h.logger), mw.Recovery(h.logger))
	r.Use(cors.New(corsConfig(h.cfg.Server.AllowedOrigins)))

	server := h.cfg.Server
	rateLimiter := mw.RateLimiter(server.RateLimitPerSec, server.RateLimitBurst)

	authenticate := gate.Authenticate(h.decoder, h.cfg.Auth.CookieName)

	r.GET("/health", h.Health)
	if hub != nil {
		r.GET("/ws/spots", hub.ServeWS)
	}

	session := r.Group("/auth", rateLimiter)
	{
		session.POST("/login", h.Login)
		session.POST("/logout", h.Logout)
		session.GET("/me", authenticate, h.Me)
	}

	api := r.Group("/api", rateLimiter)
	{
		api.GET("/client-config", h.GetClientConfig)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		api.GET(spotsPath, h.responses.Handler(), h.GetSpots)

		authed := api.Group("", authenticate)

		bookings := authed.Group("/booking/sessions", gate.RequireRole("driver", "manager"))
		bookings.POST("", h.StartBooking)
		bookings.GET("/:id", h.GetBooking)
		bookings.DELETE("/:id", h.DiscardBooking)
		bookings.POST("/:id/spot", h.SelectSpot)
		bookings.POST("/:id/day", h.SelectDay)
		bookings.POST("/:id/start", h.SelectStartTime)
		bookings.POST("/:id/end", h.SelectEndTime)
		bookings.POST("/:id/vehicle", h.EnterVehicle)
		bookings.POST("/:id/submit", h.SubmitBooking)
		bookings.POST("/:id/retry", h.RetryBooking)
		bookings.POST("/:id/back", h.BackBooking)
		bookings.POST("/:id/reset", h.ResetBooking)

		reservations := authed.Group("/reservations", gate.RequireRole("driver", "manager"))
		reservations.GET("/:id", h.GetReservation)
		reservations.POST("/:id/cancel", h.CancelReservation)

		vehicles := authed.Group("/vehicles", gate.RequireRole("driver"))
		vehicles.GET("", h.ListVehicles)
		vehicles.POST("", h.CreateVehicle)

		complaints := authed.Group("/complaints", gate.RequireRole("agent"))
		complaints.GET("", h.ListComplaints)
		complaints.POST("", h.FileComplaint)

		authed.GET("/subscriptions", h.GetSubscription)
		authed.PUT("/subscriptions", h.PutSubscription)
		authed.DELETE("/subscriptions", h.DeleteSubscription)
	}

	// Everything else is a page; role areas go through the route gate.
	r.NoRoute(gate.Pages(h.routes, h.decoder, h.cfg.Auth.CookieName, h.logger), h.Page)

	return r
}

// Page serves the web build, falling back to index.html for client-side
// routes. Without a build, role areas answer with a small JSON landing.
func (h *Handler) Page(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if dir := h.cfg.Server.StaticDir; dir != "" {
		c.File(staticFile(dir, c.Request.URL.Path))
		return
	}

	area, ok := h.routes.Owner(c.Request.URL.Path)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	resp := gin.H{"area": area}
	if p, ok := gate.Principal(c); ok {
		resp["subject"] = p.Subject
	}
	c.JSON(http.StatusOK, resp)
}
