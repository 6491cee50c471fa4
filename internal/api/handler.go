package api

import (
	"context"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/auth"
	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/gate"
	"parking-reservation-backend/internal/mw"
	"parking-reservation-backend/internal/spots"
	"parking-reservation-backend/internal/store"
)

// Backend is the part of the reservation backend the handlers call directly.
type Backend interface {
	ListSpots(ctx context.Context) ([]booking.Spot, error)
	GetReservation(ctx context.Context, id string) (*backend.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*backend.Reservation, error)
	ListVehicles(ctx context.Context) ([]backend.Vehicle, error)
	CreateVehicle(ctx context.Context, v backend.Vehicle) (*backend.Vehicle, error)
	ListComplaints(ctx context.Context) ([]backend.Complaint, error)
	FileComplaint(ctx context.Context, complaint backend.Complaint) (*backend.Complaint, error)
	Login(ctx context.Context, creds backend.Credentials) (*backend.LoginResponse, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	cfg       *config.Config
	bookings  *booking.Service
	backend   Backend
	store     store.Store
	catalog   *spots.Catalog
	decoder   *auth.Decoder
	routes    *gate.Table
	webpush   *webpush.Options
	responses *mw.ResponseCache
	logger    *zap.Logger
	now       func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(
	cfg *config.Config,
	bookings *booking.Service,
	be Backend,
	s store.Store,
	catalog *spots.Catalog,
	decoder *auth.Decoder,
	routes *gate.Table,
	webpushOptions *webpush.Options,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		cfg:       cfg,
		bookings:  bookings,
		backend:   be,
		store:     s,
		catalog:   catalog,
		decoder:   decoder,
		routes:    routes,
		webpush:   webpushOptions,
		responses: mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second),
		logger:    logger,
		now:       time.Now,
	}
}
