package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"parking-reservation-backend/internal/booking"
	"parking-reservation-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// JobKind selects who receives a notification.
type JobKind int

const (
	// JobSpotAvailable goes to every subscription watching SpotID.
	JobSpotAvailable JobKind = iota
	// JobReservationConfirmed goes to every subscription of UserID.
	JobReservationConfirmed
)

// Job is one notification to fan out.
type Job struct {
	Kind          JobKind
	SpotID        string
	UserID        string
	ReservationID string
	Selection     booking.Selection
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("notification worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.process(ctx, job)
		case <-ctx.Done():
			wp.logger.Debug("notification worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a job, blocking while the queue is full.
func (wp *WorkerPool) Dispatch(job Job) {
	wp.jobs <- job
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// SpotAvailable queues a notification for the watchers of spotID.
func (wp *WorkerPool) SpotAvailable(spotID string) {
	wp.Dispatch(Job{Kind: JobSpotAvailable, SpotID: spotID})
}

// ReservationConfirmed implements booking.Notifier. It never blocks the
// request path: when the queue is full the notification is dropped.
func (wp *WorkerPool) ReservationConfirmed(owner, reservationID string, sel booking.Selection) {
	job := Job{Kind: JobReservationConfirmed, UserID: owner, ReservationID: reservationID, SpotID: sel.SpotID, Selection: sel}
	select {
	case wp.jobs <- job:
	default:
		wp.logger.Warn("notification queue full, dropping reservation confirmation",
			zap.String("user", owner), zap.String("reservation", reservationID))
	}
}

func (wp *WorkerPool) process(ctx context.Context, job Job) {
	var (
		subscriptions []model.PushSubscription
		err           error
	)
	switch job.Kind {
	case JobSpotAvailable:
		err = wp.db.WithContext(ctx).
			Joins("JOIN subscription_spot_mapping ssm ON ssm.push_subscription_endpoint = push_subscriptions.endpoint").
			Where("ssm.spot_id = ?", job.SpotID).
			Find(&subscriptions).Error
	case JobReservationConfirmed:
		err = wp.db.WithContext(ctx).
			Where("user_id = ?", job.UserID).
			Find(&subscriptions).Error
	default:
		wp.logger.Warn("unknown notification job", zap.Int("kind", int(job.Kind)))
		return
	}
	if err != nil {
		wp.logger.Error("failed to fetch subscriptions", zap.String("spot", job.SpotID), zap.String("user", job.UserID), zap.Error(err))
		return
	}

	if len(subscriptions) == 0 {
		return
	}

	message := wp.message(ctx, job)
	wp.logger.Info("sending notifications", zap.Int("count", len(subscriptions)), zap.String("spot", job.SpotID))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) message(ctx context.Context, job Job) string {
	label := wp.spotLabel(ctx, job)
	if job.Kind == JobReservationConfirmed {
		sel := job.Selection
		return fmt.Sprintf("Reserva %s confirmada: vaga %s em %s, das %s às %s.",
			job.ReservationID, label, sel.Day, sel.StartTime, sel.EndTime)
	}
	return fmt.Sprintf("Vaga %s está disponível!", label)
}

// spotLabel falls back to the spot ID when no label is known.
func (wp *WorkerPool) spotLabel(ctx context.Context, job Job) string {
	if job.Selection.SpotLabel != "" {
		return job.Selection.SpotLabel
	}
	var spot model.Spot
	if err := wp.db.WithContext(ctx).
		Select("label").
		First(&spot, "id = ?", job.SpotID).Error; err != nil {
		wp.logger.Debug("spot label lookup failed", zap.String("spot", job.SpotID), zap.Error(err))
		return job.SpotID
	}
	if spot.Label == "" {
		return job.SpotID
	}
	return spot.Label
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are removed.
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.deleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}

// deleteSubscription removes the subscription together with its spot mappings.
func (wp *WorkerPool) deleteSubscription(ctx context.Context, endpoint string) error {
	return wp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Spots").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}
