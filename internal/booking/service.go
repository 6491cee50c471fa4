package booking

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is the remote reservation service as used by the wizard.
type Backend interface {
	FetchAvailability(ctx context.Context, spotID, day string) (AvailabilityWindow, error)
	SubmitReservation(ctx context.Context, req ReservationRequest) (*ReservationResponse, error)
}

// SessionStore persists wizards between requests. Get returns
// ErrSessionNotFound for unknown or expired ids.
type SessionStore interface {
	Get(ctx context.Context, id string) (*Wizard, error)
	Put(ctx context.Context, w *Wizard) error
	Delete(ctx context.Context, id string) error
}

// Notifier is told about reservations the backend confirmed.
type Notifier interface {
	ReservationConfirmed(owner, reservationID string, sel Selection)
}

const (
	lockStripes = 64

	defaultPendingTimeout = time.Minute

	// An outcome that cannot be saved is retried this many times.
	settleAttempts = 3
	settleBackoff  = 50 * time.Millisecond
)

// Service drives wizards stored in a SessionStore against a Backend.
type Service struct {
	store          SessionStore
	backend        Backend
	loc            *time.Location
	now            func() time.Time
	notifier       Notifier
	pendingTimeout time.Duration
	logger         *zap.Logger

	locks [lockStripes]sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier registers a receiver for confirmed reservations.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPendingTimeout sets how long a query or submission may stay pending
// before it is treated as failed. It should exceed the backend timeout.
func WithPendingTimeout(d time.Duration) Option {
	return func(s *Service) { s.pendingTimeout = d }
}

// NewService creates a booking service. Days and times are interpreted in loc.
func NewService(store SessionStore, backend Backend, loc *time.Location, logger *zap.Logger, opts ...Option) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:          store,
		backend:        backend,
		loc:            loc,
		now:            time.Now,
		pendingTimeout: defaultPendingTimeout,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lock serializes load-modify-save sections for one session id.
func (s *Service) lock(id string) func() {
	h := fnv.New32a()
	h.Write([]byte(id))
	m := &s.locks[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}

func (s *Service) update(ctx context.Context, id, owner string, fn func(w *Wizard) error) (*Wizard, error) {
	unlock := s.lock(id)
	defer unlock()

	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Owner != owner {
		return nil, ErrSessionNotFound
	}
	s.expire(w)
	if err := fn(w); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// settle records the outcome of a backend call. The caller may be gone by
// now, and a failed save is retried so the wizard does not stay pending.
func (s *Service) settle(ctx context.Context, id, owner string, fn func(w *Wizard) error) (*Wizard, error) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < settleAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(settleBackoff << (attempt - 1))
		}
		var w *Wizard
		if w, err = s.update(ctx, id, owner, fn); err == nil {
			return w, nil
		}
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		s.logger.Warn("failed to save booking outcome",
			zap.String("session", id), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return nil, err
}

func (s *Service) expire(w *Wizard) {
	if w.ExpirePending(s.now(), s.pendingTimeout) {
		s.logger.Warn("pending booking operation expired", zap.String("session", w.ID))
	}
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// Start opens a new booking session owned by owner.
func (s *Service) Start(ctx context.Context, owner string) (View, error) {
	w := New(uuid.NewString(), owner)
	if err := s.store.Put(ctx, w); err != nil {
		return View{}, err
	}
	s.logger.Debug("booking session started", zap.String("session", w.ID), zap.String("owner", owner))
	return w.View(), nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, id, owner string) (View, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if w.Owner != owner {
		return View{}, ErrSessionNotFound
	}
	s.expire(w)
	return w.View(), nil
}

// Discard deletes a session.
func (s *Service) Discard(ctx context.Context, id, owner string) error {
	unlock := s.lock(id)
	defer unlock()

	w, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if w.Owner != owner {
		return ErrSessionNotFound
	}
	return s.store.Delete(ctx, id)
}

// SelectSpot forwards a spot chosen on the map.
func (s *Service) SelectSpot(ctx context.Context, id, owner string, spot *Spot) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error { return w.SelectSpot(spot) })
}

// SelectDay records the day and performs its single availability query.
// A failed query is recorded on the wizard rather than returned.
func (s *Service) SelectDay(ctx context.Context, id, owner, day string) (View, error) {
	var ticket AvailabilityTicket
	if _, err := s.update(ctx, id, owner, func(w *Wizard) error {
		t, err := w.BeginDaySelection(day, s.today())
		ticket = t
		return err
	}); err != nil {
		return View{}, err
	}

	window, fetchErr := s.backend.FetchAvailability(ctx, ticket.SpotID, ticket.Day)
	if fetchErr != nil {
		s.logger.Warn("availability query failed",
			zap.String("session", id), zap.String("spot", ticket.SpotID), zap.String("day", ticket.Day), zap.Error(fetchErr))
	}

	w, err := s.settle(ctx, id, owner, func(w *Wizard) error {
		if !w.ApplyAvailability(ticket, window, fetchErr) {
			s.logger.Debug("discarding stale availability response",
				zap.String("session", id), zap.Uint64("seq", ticket.Seq), zap.String("day", ticket.Day))
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}
	return w.View(), nil
}

// SelectStartTime picks the start slot.
func (s *Service) SelectStartTime(ctx context.Context, id, owner, t string) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error { return w.SelectStartTime(t) })
}

// SelectEndTime picks the end slot.
func (s *Service) SelectEndTime(ctx context.Context, id, owner, t string) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error { return w.SelectEndTime(t) })
}

// EnterVehicle records the vehicle information.
func (s *Service) EnterVehicle(ctx context.Context, id, owner, plate, vehicleType string) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error { return w.EnterVehicle(plate, vehicleType) })
}

// Submit sends the reservation once. The outcome is recorded on the wizard;
// only local validation and state errors are returned.
func (s *Service) Submit(ctx context.Context, id, owner string) (View, error) {
	var ticket SubmissionTicket
	if _, err := s.update(ctx, id, owner, func(w *Wizard) error {
		t, err := w.BeginSubmit(s.today())
		ticket = t
		return err
	}); err != nil {
		return View{}, err
	}

	resp, submitErr := s.backend.SubmitReservation(ctx, ticket.Request)
	if submitErr != nil {
		s.logger.Warn("reservation submission failed", zap.String("session", id), zap.Error(submitErr))
	}

	w, err := s.settle(ctx, id, owner, func(w *Wizard) error {
		if !w.ApplySubmission(ticket, resp, submitErr) {
			s.logger.Debug("discarding stale submission response", zap.String("session", id), zap.Uint64("seq", ticket.Seq))
		}
		return nil
	})
	if err != nil {
		return View{}, err
	}

	if w.Submission == SubmissionSuccess {
		s.logger.Info("reservation confirmed",
			zap.String("session", id), zap.String("reservation", w.ReservationID), zap.String("spot", w.Selection.SpotID))
		if s.notifier != nil {
			s.notifier.ReservationConfirmed(owner, w.ReservationID, w.Selection)
		}
	}
	return w.View(), nil
}

// Retry returns a failed submission to confirmation.
func (s *Service) Retry(ctx context.Context, id, owner string) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error { return w.Retry() })
}

// Back moves to the previous step.
func (s *Service) Back(ctx context.Context, id, owner string) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error { return w.Back() })
}

// Reset restores the initial state of a session.
func (s *Service) Reset(ctx context.Context, id, owner string) (View, error) {
	return s.apply(ctx, id, owner, func(w *Wizard) error {
		w.Reset()
		return nil
	})
}

func (s *Service) apply(ctx context.Context, id, owner string, fn func(w *Wizard) error) (View, error) {
	w, err := s.update(ctx, id, owner, fn)
	if err != nil {
		return View{}, err
	}
	return w.View(), nil
}
