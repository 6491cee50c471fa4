package spots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/store"
)

// Source lists spots with their live status.
type Source interface {
	ListSpots(ctx context.Context) ([]booking.Spot, error)
}

// Dispatcher is told about spots that just became available.
type Dispatcher interface {
	SpotAvailable(spotID string)
}

// Renderer receives every fresh snapshot, e.g. to redraw a map.
type Renderer interface {
	RenderSpots(spots []booking.Spot)
}

// Renderers fans a snapshot out to several renderers.
type Renderers []Renderer

// RenderSpots implements Renderer.
func (rs Renderers) RenderSpots(spots []booking.Spot) {
	for _, r := range rs {
		r.RenderSpots(spots)
	}
}

// Poller keeps the store, the catalog and the renderer in sync with the backend.
type Poller struct {
	source     Source
	store      store.Store
	catalog    *Catalog
	dispatcher Dispatcher
	renderer   Renderer
	schedule   string
	logger     *zap.Logger
	now        func() time.Time
}

// NewPoller creates a Poller. dispatcher and renderer may be nil.
func NewPoller(source Source, st store.Store, catalog *Catalog, dispatcher Dispatcher, renderer Renderer, schedule string, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		source:     source,
		store:      st,
		catalog:    catalog,
		dispatcher: dispatcher,
		renderer:   renderer,
		schedule:   schedule,
		logger:     logger,
		now:        time.Now,
	}
}

// Run polls once immediately and then on the configured schedule until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger{p.logger}),
		cron.SkipIfStillRunning(cronLogger{p.logger}),
	))
	if _, err := c.AddFunc(p.schedule, func() {
		if err := p.PollOnce(ctx); err != nil {
			p.logger.Warn("spot poll failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid spot poll schedule %q: %w", p.schedule, err)
	}

	p.logger.Info("starting spot poller", zap.String("schedule", p.schedule))
	if err := p.PollOnce(ctx); err != nil {
		p.logger.Warn("initial spot poll failed", zap.Error(err))
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("spot poller shutting down")
	return nil
}

// PollOnce performs a single round. A failed fetch leaves every piece of
// stored state untouched.
func (p *Poller) PollOnce(ctx context.Context) error {
	now := p.now().UTC()

	spots, err := p.source.ListSpots(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch spots: %w", err)
	}

	if err := p.store.UpsertSpots(ctx, spots); err != nil {
		return fmt.Errorf("failed to store spots: %w", err)
	}

	// The catalog and renderer still get the snapshot when status tracking fails.
	freed, statusErr := p.store.UpdateSpotStatus(ctx, now, spots)
	if statusErr != nil {
		p.logger.Error("failed to update spot status", zap.Error(statusErr))
	}

	if p.dispatcher != nil && len(freed) > 0 {
		p.logger.Info("dispatching spot notifications", zap.Int("count", len(freed)))
		for _, id := range freed {
			p.dispatcher.SpotAvailable(id)
		}
	}

	p.catalog.Replace(spots, now)
	if p.renderer != nil {
		snapshot, _ := p.catalog.List()
		p.renderer.RenderSpots(snapshot)
	}

	p.logger.Debug("spot poll finished", zap.Int("spots", len(spots)))
	return statusErr
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	if errors.Is(err, context.Canceled) {
		return
	}
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
