package booking

// View is the client-facing snapshot of a wizard.
type View struct {
	ID                  string           `json:"id"`
	Step                Step             `json:"step"`
	StepName            string           `json:"stepName"`
	Selection           Selection        `json:"selection"`
	AvailableSlots      []string         `json:"availableSlots"`
	OccupiedSlots       []string         `json:"occupiedSlots"`
	EndTimeOptions      []string         `json:"endTimeOptions"`
	AvailabilityPending bool             `json:"availabilityPending"`
	AvailabilityError   string           `json:"availabilityError,omitempty"`
	Submission          SubmissionStatus `json:"submission"`
	ReservationID       string           `json:"reservationId,omitempty"`
	FailureReason       string           `json:"failureReason,omitempty"`
}

// View renders the wizard for clients.
func (w *Wizard) View() View {
	v := View{
		ID:                  w.ID,
		Step:                w.Step,
		StepName:            w.Step.String(),
		Selection:           w.Selection,
		AvailableSlots:      []string{},
		OccupiedSlots:       []string{},
		EndTimeOptions:      w.EndTimeOptions(),
		AvailabilityPending: w.PendingAvailability != 0,
		AvailabilityError:   w.AvailabilityError,
		Submission:          w.Submission,
		ReservationID:       w.ReservationID,
		FailureReason:       w.FailureReason,
	}
	if w.Window != nil {
		v.AvailableSlots = append(v.AvailableSlots, w.Window.AvailableSlots...)
		v.OccupiedSlots = append(v.OccupiedSlots, w.Window.OccupiedSlots...)
	}
	return v
}
