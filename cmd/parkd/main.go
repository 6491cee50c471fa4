package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"parking-reservation-backend/config"
	"parking-reservation-backend/internal/api"
	"parking-reservation-backend/internal/auth"
	"parking-reservation-backend/internal/backend"
	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/db"
	"parking-reservation-backend/internal/gate"
	"parking-reservation-backend/internal/live"
	"parking-reservation-backend/internal/logging"
	"parking-reservation-backend/internal/notification"
	"parking-reservation-backend/internal/sessions"
	"parking-reservation-backend/internal/spots"
	"parking-reservation-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	logger.Info("configuration loaded", zap.String("path", configPath))

	if err := run(cfg, logger); err != nil {
		logger.Fatal("parkd stopped with error", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	loc, err := time.LoadLocation(cfg.Backend.Timezone)
	if err != nil {
		return err
	}

	// Push is optional: without VAPID keys subscriptions are stored but nothing is sent.
	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Warn("VAPID keys are not configured, push notifications are disabled")
	}

	gormDB, err := db.Init(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("database initialized", zap.String("driver", cfg.Database.Driver))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, logger)

	sessionStore, closeSessions, err := newSessionStore(ctx, cfg.Sessions)
	if err != nil {
		return err
	}
	defer closeSessions()

	client := backend.NewClient(cfg.Backend, logger.Named("backend"))

	bookingOpts := []booking.Option{booking.WithPendingTimeout(2 * cfg.Backend.Timeout)}
	var pool *notification.WorkerPool
	if webpushOptions != nil {
		pool = notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions, logger.Named("push"))
		pool.Start(ctx)
		bookingOpts = append(bookingOpts, booking.WithNotifier(pool))
	}
	bookings := booking.NewService(sessionStore, client, loc, logger.Named("booking"), bookingOpts...)

	hub := live.NewHub(cfg.Server.AllowedOrigins, logger.Named("live"))
	go hub.Run(ctx)

	routes, err := gate.NewTable(cfg.Auth.Routes, cfg.Auth.LoginPath)
	if err != nil {
		return fmt.Errorf("invalid route table: %w", err)
	}
	decoder := auth.NewDecoder(cfg.Auth.JWTSecret, cfg.Auth.RoleClaim)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.insecure_decode is set, token signatures are not verified")
	}

	catalog := spots.NewCatalog()
	handler := api.NewHandler(cfg, bookings, client, appStore, catalog, decoder, routes, webpushOptions, logger.Named("api"))

	if cfg.Spots.Enabled {
		var dispatcher spots.Dispatcher
		if pool != nil {
			dispatcher = pool
		}
		renderer := spots.Renderers{hub, handler}
		poller := spots.NewPoller(client, appStore, catalog, dispatcher, renderer, cfg.Spots.Schedule, logger.Named("spots"))
		go func() {
			if err := poller.Run(ctx); err != nil {
				logger.Error("spot poller stopped", zap.Error(err))
			}
		}()
	} else {
		logger.Info("spot poller is disabled")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received, stopping services")
	case err := <-serveErr:
		return fmt.Errorf("HTTP server: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func newSessionStore(ctx context.Context, cfg config.SessionsConfig) (booking.SessionStore, func(), error) {
	if cfg.Store != "redis" {
		return sessions.NewMemoryStore(cfg.TTL), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	return sessions.NewRedisStore(rdb, cfg.TTL), func() { rdb.Close() }, nil
}
