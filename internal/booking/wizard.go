package booking

import (
	"errors"
	"strings"
	"time"

	"parking-reservation-backend/internal/parse"
)

const (
	availabilityFailedMessage = "Could not load availability for this day. Choose the day again to retry."
	submissionFailedMessage   = "Could not reach the reservation service. Please try again."
	submissionRejectedMessage = "The reservation was not accepted."
)

var errOutcomeLost = errors.New("outcome was not recorded in time")

// Rejection is implemented by errors that carry a message meant for the user.
type Rejection interface {
	error
	UserMessage() string
}

// AvailabilityTicket identifies one availability query. Responses are only
// applied when the ticket is still the wizard's current one.
type AvailabilityTicket struct {
	Seq    uint64
	SpotID string
	Day    string
}

// SubmissionTicket identifies one reservation submission.
type SubmissionTicket struct {
	Seq     uint64
	Request ReservationRequest
}

// Wizard is the booking flow state of one session. It performs no I/O:
// network calls are started from tickets and their outcomes applied back.
type Wizard struct {
	ID        string              `json:"id"`
	Owner     string              `json:"owner"`
	Step      Step                `json:"step"`
	Selection Selection           `json:"selection"`
	Window    *AvailabilityWindow `json:"window,omitempty"`

	// Seq only ever grows, so tickets issued before a reset stay stale.
	Seq                 uint64    `json:"seq"`
	PendingAvailability uint64    `json:"pendingAvailability,omitempty"`
	PendingDay          string    `json:"pendingDay,omitempty"`
	AvailabilityIssued  time.Time `json:"availabilityIssued"`
	AvailabilityError   string    `json:"availabilityError,omitempty"`

	Submission        SubmissionStatus `json:"submission"`
	PendingSubmission uint64           `json:"pendingSubmission,omitempty"`
	SubmissionIssued  time.Time        `json:"submissionIssued"`
	ReservationID     string           `json:"reservationId,omitempty"`
	FailureReason     string           `json:"failureReason,omitempty"`
}

// New returns a wizard at the first step with an empty selection.
func New(id, owner string) *Wizard {
	return &Wizard{
		ID:         id,
		Owner:      owner,
		Step:       StepSelectSpot,
		Submission: SubmissionNotStarted,
	}
}

// SelectSpot stores the chosen spot and moves to day selection.
func (w *Wizard) SelectSpot(spot *Spot) error {
	if w.Step != StepSelectSpot {
		return ErrInvalidTransition
	}
	if spot == nil || strings.TrimSpace(spot.ID) == "" {
		return invalid("spot", "no spot selected")
	}

	w.Selection = Selection{SpotID: spot.ID, SpotLabel: spot.Label}
	w.Window = nil
	w.AvailabilityError = ""
	w.Step = StepSelectDay
	return nil
}

// BeginDaySelection records the chosen day and issues the ticket for its
// availability query. Choosing the day whose query is still in flight is
// refused so that no duplicate query is made.
func (w *Wizard) BeginDaySelection(day string, today time.Time) (AvailabilityTicket, error) {
	if w.Step != StepSelectDay {
		return AvailabilityTicket{}, ErrInvalidTransition
	}
	d, ok := parseDay(day, today.Location())
	if !ok {
		return AvailabilityTicket{}, invalid("day", "expected YYYY-MM-DD, got %q", day)
	}
	if d.Before(startOfDay(today)) {
		return AvailabilityTicket{}, invalid("day", "%s is in the past", day)
	}
	if w.PendingAvailability != 0 && w.PendingDay == day {
		return AvailabilityTicket{}, ErrOperationPending
	}

	w.Seq++
	w.PendingAvailability = w.Seq
	w.PendingDay = day
	w.AvailabilityIssued = today
	w.AvailabilityError = ""
	w.Window = nil
	w.Selection.Day = day
	w.Selection.StartTime = ""
	w.Selection.EndTime = ""

	return AvailabilityTicket{Seq: w.Seq, SpotID: w.Selection.SpotID, Day: day}, nil
}

// ApplyAvailability applies the outcome of an availability query. It returns
// false and changes nothing when the ticket is stale.
func (w *Wizard) ApplyAvailability(t AvailabilityTicket, window AvailabilityWindow, fetchErr error) bool {
	if t.Seq == 0 || t.Seq != w.PendingAvailability {
		return false
	}
	w.PendingAvailability = 0
	w.PendingDay = ""
	w.AvailabilityIssued = time.Time{}

	if fetchErr != nil {
		empty := emptyWindow(t.SpotID, t.Day)
		w.Window = &empty
		w.AvailabilityError = availabilityFailedMessage
		return true
	}

	n := normalizeWindow(window)
	n.SpotID = t.SpotID
	n.Day = t.Day
	w.Window = &n
	w.Step = StepSelectStartTime
	return true
}

// SelectStartTime picks one of the day's available slots.
func (w *Wizard) SelectStartTime(t string) error {
	if w.Step != StepSelectStartTime {
		return ErrInvalidTransition
	}
	if w.Window == nil || !contains(w.Window.AvailableSlots, t) {
		return invalid("startTime", "%s is not an available slot", t)
	}

	w.Selection.StartTime = t
	w.Selection.EndTime = ""
	w.Step = StepSelectEndTime
	return nil
}

// EndTimeOptions lists the end times allowed for the chosen start time.
func (w *Wizard) EndTimeOptions() []string {
	if w.Window == nil || w.Selection.StartTime == "" {
		return []string{}
	}
	return EndTimeOptions(*w.Window, w.Selection.StartTime)
}

// SelectEndTime picks one of EndTimeOptions.
func (w *Wizard) SelectEndTime(t string) error {
	if w.Step != StepSelectEndTime {
		return ErrInvalidTransition
	}
	if !contains(w.EndTimeOptions(), t) {
		return invalid("endTime", "%s is not a valid end time after %s", t, w.Selection.StartTime)
	}

	w.Selection.EndTime = t
	w.Step = StepEnterVehicleInfo
	return nil
}

// EnterVehicle stores the normalized plate and vehicle type and moves to
// confirmation once every field of the selection is populated.
func (w *Wizard) EnterVehicle(plate, vehicleType string) error {
	if w.Step != StepEnterVehicleInfo {
		return ErrInvalidTransition
	}
	p, err := parse.ParsePlate(plate)
	if err != nil {
		return invalid("vehiclePlate", "%v", err)
	}
	vt := strings.ToLower(strings.TrimSpace(vehicleType))
	if vt == "" {
		return invalid("vehicleType", "required")
	}

	w.Selection.VehiclePlate = p.Number
	w.Selection.VehicleType = vt
	if err := w.Selection.Validate(); err != nil {
		return err
	}
	w.Step = StepConfirm
	return nil
}

// BeginSubmit validates the selection and issues the ticket for the
// reservation request. Times are interpreted in now's location and sent in UTC.
func (w *Wizard) BeginSubmit(now time.Time) (SubmissionTicket, error) {
	if w.PendingSubmission != 0 {
		return SubmissionTicket{}, ErrOperationPending
	}
	if w.Step != StepConfirm {
		return SubmissionTicket{}, ErrInvalidTransition
	}
	req, err := w.Selection.Request(now.Location())
	if err != nil {
		return SubmissionTicket{}, err
	}
	if req.StartTimestamp.Before(startOfDay(now)) {
		return SubmissionTicket{}, invalid("day", "%s is in the past", w.Selection.Day)
	}

	w.Seq++
	w.PendingSubmission = w.Seq
	w.SubmissionIssued = now
	w.Submission = SubmissionPending
	w.ReservationID = ""
	w.FailureReason = ""
	return SubmissionTicket{Seq: w.Seq, Request: req}, nil
}

// ApplySubmission applies the outcome of a reservation request. It returns
// false and changes nothing when the ticket is stale.
func (w *Wizard) ApplySubmission(t SubmissionTicket, resp *ReservationResponse, submitErr error) bool {
	if t.Seq == 0 || t.Seq != w.PendingSubmission {
		return false
	}
	w.PendingSubmission = 0
	w.SubmissionIssued = time.Time{}
	w.Step = StepResult

	switch {
	case submitErr != nil:
		w.Submission = SubmissionFailure
		w.FailureReason = failureReason(submitErr)
	case resp == nil || !resp.Success:
		w.Submission = SubmissionFailure
		w.FailureReason = submissionRejectedMessage
		if resp != nil && resp.Message != "" {
			w.FailureReason = resp.Message
		}
	default:
		w.Submission = SubmissionSuccess
		w.ReservationID = resp.ReservationID
	}
	return true
}

func failureReason(err error) string {
	var rej Rejection
	if errors.As(err, &rej) && rej.UserMessage() != "" {
		return rej.UserMessage()
	}
	return submissionFailedMessage
}

// Retry returns a failed submission to the confirmation step with the
// selection intact.
func (w *Wizard) Retry() error {
	if w.Step != StepResult || w.Submission != SubmissionFailure {
		return ErrInvalidTransition
	}
	w.Step = StepConfirm
	w.Submission = SubmissionNotStarted
	w.FailureReason = ""
	return nil
}

// Back moves to the previous step. Landing on day selection or earlier
// clears the chosen times and abandons any availability query in flight.
func (w *Wizard) Back() error {
	if w.PendingSubmission != 0 {
		return ErrOperationPending
	}

	switch w.Step {
	case StepSelectSpot:
		return ErrInvalidTransition
	case StepResult:
		if w.Submission == SubmissionSuccess {
			return ErrInvalidTransition
		}
		return w.Retry()
	}

	w.Step--
	if w.Step <= StepSelectDay {
		w.Selection.StartTime = ""
		w.Selection.EndTime = ""
		w.PendingAvailability = 0
		w.PendingDay = ""
		w.AvailabilityIssued = time.Time{}
	}
	if w.Step == StepSelectSpot {
		w.Window = nil
		w.AvailabilityError = ""
	}
	return nil
}

// ExpirePending fails any operation still pending more than timeout after it
// was issued, as if its request had failed. The selection is kept. It
// reports whether the wizard changed.
func (w *Wizard) ExpirePending(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	changed := false
	if w.PendingAvailability != 0 && now.Sub(w.AvailabilityIssued) > timeout {
		t := AvailabilityTicket{Seq: w.PendingAvailability, SpotID: w.Selection.SpotID, Day: w.PendingDay}
		changed = w.ApplyAvailability(t, AvailabilityWindow{}, errOutcomeLost)
	}
	if w.PendingSubmission != 0 && now.Sub(w.SubmissionIssued) > timeout {
		t := SubmissionTicket{Seq: w.PendingSubmission}
		changed = w.ApplySubmission(t, nil, errOutcomeLost) || changed
	}
	return changed
}

// Reset returns the wizard to its initial state. Pending tickets become stale.
func (w *Wizard) Reset() {
	seq := w.Seq
	*w = *New(w.ID, w.Owner)
	w.Seq = seq
}

// Validate checks that the selection is complete and internally consistent.
func (s Selection) Validate() error {
	if strings.TrimSpace(s.SpotID) == "" {
		return invalid("spot", "no spot selected")
	}
	if _, ok := parseDay(s.Day, time.UTC); !ok {
		return invalid("day", "expected YYYY-MM-DD, got %q", s.Day)
	}
	start, ok := clockMinutes(s.StartTime)
	if !ok {
		return invalid("startTime", "expected HH:MM, got %q", s.StartTime)
	}
	end, ok := clockMinutes(s.EndTime)
	if !ok {
		return invalid("endTime", "expected HH:MM, got %q", s.EndTime)
	}
	if start >= end {
		return invalid("endTime", "%s must be after %s", s.EndTime, s.StartTime)
	}
	if s.VehiclePlate == "" {
		return invalid("vehiclePlate", "required")
	}
	if s.VehicleType == "" {
		return invalid("vehicleType", "required")
	}
	return nil
}

// Request builds the reservation payload with absolute UTC timestamps.
func (s Selection) Request(loc *time.Location) (ReservationRequest, error) {
	if err := s.Validate(); err != nil {
		return ReservationRequest{}, err
	}
	day, _ := parseDay(s.Day, loc)
	start, _ := clockMinutes(s.StartTime)
	end, _ := clockMinutes(s.EndTime)

	at := func(minutes int) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), minutes/60, minutes%60, 0, 0, loc).UTC()
	}
	return ReservationRequest{
		SpotID:         s.SpotID,
		VehicleType:    s.VehicleType,
		Plate:          s.VehiclePlate,
		StartTimestamp: at(start),
		EndTimestamp:   at(end),
	}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
